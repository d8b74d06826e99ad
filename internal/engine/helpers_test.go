// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkrun/mk/internal/container"
	"github.com/mkrun/mk/internal/runtime"
	"github.com/mkrun/mk/pkg/taskfile"
)

type (
	// fakeExecutor records every script it is asked to run and exits with
	// the code mapped to the script (0 when unmapped). It prints the mapped
	// output, or the script itself. Scripts listed in rendezvous block until
	// all of them are running at the same time.
	fakeExecutor struct {
		mu         sync.Mutex
		codes      map[string]runtime.ExitCode
		outputs    map[string]string
		calls      []runtime.Invocation
		rendezvous *rendezvous
	}

	rendezvous struct {
		scripts map[string]bool
		wg      sync.WaitGroup
	}

	// fakeContainerEngine records container requests.
	fakeContainerEngine struct {
		mu       sync.Mutex
		runs     []container.RunOptions
		builds   []container.BuildOptions
		exitCode int
		buildErr error
	}
)

func newRendezvous(scripts ...string) *rendezvous {
	r := &rendezvous{scripts: make(map[string]bool)}
	for _, s := range scripts {
		r.scripts[s] = true
	}
	r.wg.Add(len(scripts))
	return r
}

// arrive blocks until every rendezvous script has started, or fails after a
// timeout when they never overlap.
func (r *rendezvous) arrive() error {
	r.wg.Done()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("commands did not run concurrently")
	}
}

func (f *fakeExecutor) Execute(_ context.Context, inv *runtime.Invocation) *runtime.Result {
	f.mu.Lock()
	f.calls = append(f.calls, *inv)
	code := f.codes[inv.Script]
	output, ok := f.outputs[inv.Script]
	if !ok {
		output = inv.Script
	}
	rv := f.rendezvous
	f.mu.Unlock()

	if rv != nil && rv.scripts[inv.Script] {
		if err := rv.arrive(); err != nil {
			return runtime.NewErrorResult(1, err)
		}
	}
	if inv.Stdout != nil {
		_, _ = io.WriteString(inv.Stdout, output+"\n")
	}
	return runtime.NewExitCodeResult(code)
}

func (f *fakeExecutor) scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Script
	}
	return out
}

func (f *fakeExecutor) count(script string) int {
	n := 0
	for _, s := range f.scripts() {
		if s == script {
			n++
		}
	}
	return n
}

func (f *fakeExecutor) call(script string) (runtime.Invocation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.Script == script {
			return c, true
		}
	}
	return runtime.Invocation{}, false
}

func (f *fakeContainerEngine) Name() string    { return "fake" }
func (f *fakeContainerEngine) Available() bool { return true }

func (f *fakeContainerEngine) Build(_ context.Context, opts container.BuildOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds = append(f.builds, opts)
	return f.buildErr
}

func (f *fakeContainerEngine) Run(_ context.Context, opts container.RunOptions) (*container.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, opts)
	return &container.RunResult{ExitCode: f.exitCode}, nil
}

// loadTasks parses a YAML task file rooted in a fresh temp directory.
func loadTasks(t *testing.T, content string) *taskfile.TaskFile {
	t.Helper()
	f, err := taskfile.LoadBytes([]byte(strings.TrimLeft(content, "\n")), filepath.Join(t.TempDir(), "tasks.yaml"))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	return f
}

// newTestEngine builds an engine that never touches the host: scripts go
// to ex and container requests to a fake engine.
func newTestEngine(f *taskfile.TaskFile, ex *fakeExecutor, opts ...Option) *Engine {
	base := []Option{
		WithExecutor(ex),
		WithHostEnv(map[string]string{"HOME": "/home/test"}),
		WithStreams(strings.NewReader(""), io.Discard, io.Discard),
		WithContainerProbe(func() (container.Engine, error) {
			return nil, &container.ErrEngineNotAvailable{Engine: "docker", Reason: "test"}
		}),
		WithVCS(nil),
	}
	return New(f, append(base, opts...)...)
}

func boolPtr(b bool) *bool { return &b }

func assertScripts(t *testing.T, ex *fakeExecutor, want ...string) {
	t.Helper()
	if got := ex.scripts(); !slices.Equal(got, want) {
		t.Errorf("executed %v, want %v", got, want)
	}
}
