// SPDX-License-Identifier: MPL-2.0

// Package config handles mk settings using Viper with CUE as the file format.
//
// Settings are read from ~/.config/mk/config.cue (XDG on Linux,
// ~/Library/Application Support/mk on macOS, %APPDATA%\mk on Windows), or
// from a project-local .mk.cue. Files are validated against the embedded
// config_schema.cue before they are merged over the defaults, and MK_*
// environment variables override both.
package config
