// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/dsdgen/config.cue (or the XDG equivalent on Linux,
// ~/Library/Application Support/dsdgen/config.cue on macOS, %APPDATA%\dsdgen\config.cue
// on Windows), falling back to ./config.cue. Values are validated against the embedded
// config_schema.cue, merged over DefaultConfig, and may be overridden by DSDGEN_*
// environment variables (DSDGEN_SCAN_DEPTH overrides scan.depth).
package config
