// SPDX-License-Identifier: MPL-2.0

// Package engine executes the tasks of a loaded task file.
//
// A run first validates everything reachable from the requested tasks:
// unknown references, dependency cycles and commands that cannot run as
// declared all fail before any command starts. Tasks then run one at a time
// in dependency order. Each task runs at most once per run, whether it is
// reached as a dependency, as a root or through a task command; the
// execution record makes concurrent callers of the same task wait for the
// first one and turns a task command that would wait on itself into a
// cycle error.
package engine
