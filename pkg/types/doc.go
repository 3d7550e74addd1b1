// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by the CLI and the internal
// packages. These are leaf types that carry validation but no domain logic.
//
// This package imports only the standard library.
package types
