// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"slices"
	"sync"

	"github.com/mkrun/mk/internal/dag"
)

type (
	// record is the run-scoped execution record. It guarantees that each
	// task runs at most once: the first caller owns the run and later callers
	// wait on the entry's done channel for its result.
	//
	// waits is a wait-for relation between task names. An edge a -> b means
	// a cannot finish before b does, either because a runs b inline or
	// because a is blocked waiting for b elsewhere. A caller that would wait
	// for a task which already (transitively) waits for it has found a cycle.
	record struct {
		mu      sync.Mutex
		entries map[string]*entry
		waits   map[string]map[string]int
	}

	entry struct {
		status Status
		err    error
		done   chan struct{}
	}
)

func newRecord() *record {
	return &record{
		entries: make(map[string]*entry),
		waits:   make(map[string]map[string]int),
	}
}

// status returns the recorded state of a task.
func (r *record) status(name string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		return e.status
	}
	return NotStarted
}

// acquire claims name for caller. It returns owner=true when the caller must
// run the task and later call release. Otherwise the task has finished and
// its recorded error is returned; a task running elsewhere is waited for.
// Reaching a task that waits on the caller is a *dag.CycleError.
func (r *record) acquire(ctx context.Context, caller, name string) (owner bool, err error) {
	r.mu.Lock()

	e, ok := r.entries[name]
	if !ok {
		r.entries[name] = &entry{status: Running, done: make(chan struct{})}
		r.addEdge(caller, name)
		r.mu.Unlock()
		return true, nil
	}

	if e.status != Running {
		r.mu.Unlock()
		return false, e.err
	}

	if caller != "" {
		if path := r.path(name, caller); path != nil {
			r.mu.Unlock()
			return false, &dag.CycleError{Path: append(path, name)}
		}
	}
	r.addEdge(caller, name)
	r.mu.Unlock()

	select {
	case <-e.done:
	case <-ctx.Done():
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeEdge(caller, name)
	if e.status == Running {
		return false, ctx.Err()
	}
	return false, e.err
}

// release records the outcome of a task claimed by caller and wakes every
// waiter.
func (r *record) release(caller, name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[name]
	e.err = err
	if err != nil {
		e.status = Failed
	} else {
		e.status = Succeeded
	}
	r.removeEdge(caller, name)
	close(e.done)
}

func (r *record) addEdge(from, to string) {
	if from == "" {
		return
	}
	if r.waits[from] == nil {
		r.waits[from] = make(map[string]int)
	}
	r.waits[from][to]++
}

func (r *record) removeEdge(from, to string) {
	if from == "" {
		return
	}
	if r.waits[from][to]--; r.waits[from][to] <= 0 {
		delete(r.waits[from], to)
	}
}

// path returns a wait-for path from -> ... -> to, or nil if to is not
// reachable. Neighbours are visited in name order so the reported cycle is
// stable.
func (r *record) path(from, to string) []string {
	seen := make(map[string]bool)
	var walk func(n string) []string
	walk = func(n string) []string {
		if n == to {
			return []string{n}
		}
		if seen[n] {
			return nil
		}
		seen[n] = true
		next := make([]string, 0, len(r.waits[n]))
		for m := range r.waits[n] {
			next = append(next, m)
		}
		slices.Sort(next)
		for _, m := range next {
			if p := walk(m); p != nil {
				return append([]string{n}, p...)
			}
		}
		return nil
	}
	return walk(from)
}
