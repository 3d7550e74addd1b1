// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. Errors that abort a whole batch may also point at an
// entry of the markdown issue catalog (see Get), which the CLI renders with
// glamour when running interactively.
package issue
