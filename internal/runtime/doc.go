// SPDX-License-Identifier: MPL-2.0

// Package runtime runs shell scripts for tasks and resolves their environment.
//
// Scripts run under a host shell (sh, bash, PowerShell, ...) or, when the
// shell is named "mk-sh", under an embedded mvdan/sh interpreter. The
// Resolver merges environment scopes with fixed precedence, from the host
// environment (lowest) to task env files (highest). Gate evaluates a task's
// preconditions before its commands run.
package runtime
