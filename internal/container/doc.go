// SPDX-License-Identifier: MPL-2.0

// Package container drives Docker and Podman through their CLIs for the
// container_command and container_build task commands.
//
// NewEngine probes the configured engine and falls back to the other one.
// Both engines embed BaseCLIEngine, which owns argument construction and
// command execution; the exec function is injectable so argument vectors
// can be asserted without a daemon. ValueResolver expands the MK_NOW,
// MK_GIT_REVISION and MK_GIT_REMOTE_ORIGIN label tokens along with $(cmd)
// and ${{ env.NAME }} values.
package container
