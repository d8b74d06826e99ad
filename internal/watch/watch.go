// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when files below a directory change.
//
// Events are collected until the tree has been quiet for the debounce
// interval, then the callback receives the sorted set of changed paths
// relative to the watched directory. Events arriving while the callback runs
// are queued and delivered in the next batch.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

// builtinIgnores never trigger a run.
var builtinIgnores = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/node_modules/**",
	"**/target/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

var errAlreadyRunning = errors.New("watch: Run called twice")

type (
	// Options configures a Watcher.
	Options struct {
		// Dir is the root of the watched tree; empty means the working directory.
		Dir string
		// Patterns select the files that trigger a run. Empty matches everything.
		Patterns []string
		// Ignore adds to the built-in ignore list.
		Ignore   []string
		Debounce time.Duration
	}

	// ChangeFunc is invoked with the paths that changed since the last call.
	ChangeFunc func(ctx context.Context, changed []string) error

	// Watcher batches filesystem events below one directory.
	Watcher struct {
		dir      string
		include  []string
		exclude  []string
		debounce time.Duration
		fsw      *fsnotify.Watcher
		ran      bool
	}
)

// New validates the patterns and registers every directory of the tree that
// is not ignored.
func New(opts Options) (*Watcher, error) {
	for _, p := range slices.Concat(opts.Patterns, opts.Ignore) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("watch: invalid pattern %q", p)
		}
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %q: %w", opts.Dir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{
		dir:      dir,
		include:  opts.Patterns,
		exclude:  slices.Concat(builtinIgnores, opts.Ignore),
		debounce: opts.Debounce,
		fsw:      fsw,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}

	if err := w.addTree(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run delivers batches to onChange until ctx is done. Callback errors are
// logged and do not stop the loop. Run closes the watcher on return.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	if w.ran {
		return errAlreadyRunning
	}
	w.ran = true
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event stream closed")
			}
			rel, relevant := w.classify(ev)
			if !relevant {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error stream closed")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: %w", err)
			}
			slog.Warn("file watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			if err := onChange(ctx, changed); err != nil && ctx.Err() == nil {
				slog.Debug("watch callback failed", "error", err)
			}
		}
	}
}

// classify reports the event path relative to the tree and whether it
// should trigger a run. New directories are added to the watch list.
func (w *Watcher) classify(ev fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.dir, ev.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.ignored(rel) {
		return "", false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				slog.Warn("cannot watch new directory", "path", ev.Name, "error", err)
			}
			return "", false
		}
	}
	if ev.Op == fsnotify.Chmod {
		return "", false
	}
	return rel, w.included(rel)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.dir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && (w.ignored(rel) || w.ignored(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %q: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(rel string) bool {
	return matchAny(w.exclude, rel)
}

func (w *Watcher) included(rel string) bool {
	return len(w.include) == 0 || matchAny(w.include, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if doublestar.MatchUnvalidated(p, rel) {
			return true
		}
	}
	return false
}
