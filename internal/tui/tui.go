// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

const keyCtrlC = "ctrl+c"

// ErrCancelled is returned when the user leaves a prompt with Esc or Ctrl+C.
var ErrCancelled = errors.New("cancelled by user")

type (
	// TerminalDimension is a width or height in terminal cells.
	TerminalDimension int

	// Config holds common configuration for TUI components.
	Config struct {
		// Input is where key presses are read from.
		Input io.Reader
		// Output is where the component renders.
		Output io.Writer
	}
)

// DefaultConfig reads keys from stdin and renders to stderr, so prompts stay
// visible when stdout is redirected.
func DefaultConfig() Config {
	return Config{Input: os.Stdin, Output: os.Stderr}
}

// IsTerminal reports whether r is backed by a terminal file descriptor.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// ShouldUseAccessible reports whether a prompt reading from in must use
// plain line input instead of a TUI component. This is the case when in is
// not a terminal (pipes, scripted stdin, command substitution) or the
// ACCESSIBLE environment variable is set.
func ShouldUseAccessible(in io.Reader) bool {
	return !IsTerminal(in) || os.Getenv("ACCESSIBLE") != ""
}
