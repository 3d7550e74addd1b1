// SPDX-License-Identifier: MPL-2.0

// Package tui provides terminal UI components built on Bubble Tea.
//
// Components render only when their input is a terminal; callers check
// ShouldUseAccessible first and fall back to plain line prompts otherwise.
package tui
