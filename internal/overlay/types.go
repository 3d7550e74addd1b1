// SPDX-License-Identifier: MPL-2.0

package overlay

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// ScanTopLevel inspects only the direct entries of each package root.
	ScanTopLevel ScanDepth = "top_level"
	// ScanRecursive walks each package root completely.
	ScanRecursive ScanDepth = "recursive"

	// SeverityWarning indicates a recoverable resolver warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal error diagnostic.
	SeverityError Severity = "error"
)

// ErrInvalidScanDepth is returned when a ScanDepth value is not recognized.
var ErrInvalidScanDepth = errors.New("invalid scan depth")

type (
	// ContentPackage is one independently toggleable directory tree overlaid
	// onto the base installation. Higher Priority wins overrides.
	ContentPackage struct {
		Name     string
		Priority int
		Root     string
		// ExternalID is an optional host-assigned id (e.g. a Nexus mod id).
		ExternalID string
		Active     bool
	}

	// RelativePath is a slash-separated path relative to a package root.
	RelativePath string

	// OverridePair is a candidate translation pair: a file in a higher-priority
	// package shadowing the same relative path in a strictly lower one.
	OverridePair struct {
		RelativePath       RelativePath
		OriginalPath       string
		OverridePath       string
		OriginalPackage    string
		OverridingPackage  string
		OverridingPriority int
	}

	// EffectiveFile is the winning file for one relative path together with
	// the file it directly shadows (empty when nothing was overridden).
	EffectiveFile struct {
		RelativePath    RelativePath
		Path            string
		Package         string
		Priority        int
		ShadowedPath    string
		ShadowedPackage string
	}

	// ExtensionSet is the set of recognized plugin extensions, stored
	// lowercase with the leading dot.
	ExtensionSet map[string]struct{}

	// ScanDepth selects how deep package roots are scanned.
	ScanDepth string

	// InvalidScanDepthError is returned when a ScanDepth value is not recognized.
	InvalidScanDepthError struct {
		Value ScanDepth
	}

	// Filter holds case-folded package names and bare file names to skip.
	Filter struct {
		ExcludePackages map[string]struct{}
		ExcludeNames    map[string]struct{}
	}

	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic is a structured, non-fatal finding returned to callers
	// (rather than written to stderr) so the CLI decides how to render it.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "package_scan_failed").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}

	// Result bundles the resolver output with its diagnostics.
	Result struct {
		Pairs       []OverridePair
		Effective   []EffectiveFile
		Diagnostics []Diagnostic
	}
)

// Key returns the case-folded, slash-normalized form used for equality.
func (p RelativePath) Key() string {
	return strings.ToLower(filepath.ToSlash(string(p)))
}

// Base returns the last element of the path.
func (p RelativePath) Base() string {
	s := filepath.ToSlash(string(p))
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func (p RelativePath) String() string { return string(p) }

// NewExtensionSet builds a set from extensions with or without the leading dot.
func NewExtensionSet(exts ...string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// DefaultExtensions returns the Bethesda plugin container extensions.
func DefaultExtensions() ExtensionSet {
	return NewExtensionSet(".esp", ".esm", ".esl")
}

// Matches reports whether name's extension is in the set.
func (s ExtensionSet) Matches(name string) bool {
	_, ok := s[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Sorted returns the extensions in lexical order.
func (s ExtensionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for ext := range s {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// IsValid returns whether the ScanDepth is one of the defined depths.
func (d ScanDepth) IsValid() (bool, []error) {
	switch d {
	case ScanTopLevel, ScanRecursive:
		return true, nil
	default:
		return false, []error{&InvalidScanDepthError{Value: d}}
	}
}

func (e *InvalidScanDepthError) Error() string {
	return fmt.Sprintf("invalid scan depth %q", e.Value)
}

func (e *InvalidScanDepthError) Unwrap() error { return ErrInvalidScanDepth }

// NewFilter case-folds the given package names and file names.
func NewFilter(packages, names []string) Filter {
	f := Filter{
		ExcludePackages: make(map[string]struct{}, len(packages)),
		ExcludeNames:    make(map[string]struct{}, len(names)),
	}
	for _, p := range packages {
		f.ExcludePackages[strings.ToLower(p)] = struct{}{}
	}
	for _, n := range names {
		f.ExcludeNames[strings.ToLower(n)] = struct{}{}
	}
	return f
}

// ExcludesPackage reports whether the package name is excluded.
func (f Filter) ExcludesPackage(name string) bool {
	_, ok := f.ExcludePackages[strings.ToLower(name)]
	return ok
}

// ExcludesName reports whether the bare file name is excluded.
func (f Filter) ExcludesName(name string) bool {
	_, ok := f.ExcludeNames[strings.ToLower(name)]
	return ok
}
