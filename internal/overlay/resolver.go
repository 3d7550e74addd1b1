// SPDX-License-Identifier: MPL-2.0

package overlay

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// ErrUnsortedPackages is returned when packages are not strictly ascending by
// priority. Two packages sharing a priority have no defined winner.
var ErrUnsortedPackages = errors.New("content packages are not ordered by ascending priority")

type (
	// Resolver detects overrides across content packages.
	Resolver struct {
		extensions ExtensionSet
		depth      ScanDepth
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	// known is the most recent occurrence of a relative path during a scan.
	known struct {
		rel      RelativePath
		path     string
		pkg      string
		priority int
	}
)

// WithExtensions replaces the recognized extension set.
func WithExtensions(set ExtensionSet) Option {
	return func(r *Resolver) { r.extensions = set }
}

// WithScanDepth selects top-level or recursive scanning.
func WithScanDepth(depth ScanDepth) Option {
	return func(r *Resolver) { r.depth = depth }
}

// NewResolver creates a Resolver with the default extension set and a
// top-level scan unless overridden by options.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{extensions: DefaultExtensions(), depth: ScanTopLevel}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve scans packages from lowest to highest priority and returns every
// override pair in discovery order. Packages must already be sorted
// strictly ascending by priority; Resolve never reorders them.
//
// A package root that cannot be listed produces a warning diagnostic and is
// skipped. Cancellation is checked between packages.
func (r *Resolver) Resolve(ctx context.Context, packages []ContentPackage, filter Filter) (Result, error) {
	if valid, errs := r.depth.IsValid(); !valid {
		return Result{}, errs[0]
	}
	for i := 1; i < len(packages); i++ {
		if packages[i].Priority <= packages[i-1].Priority {
			return Result{}, fmt.Errorf("%w: %q (%d) after %q (%d)", ErrUnsortedPackages,
				packages[i].Name, packages[i].Priority, packages[i-1].Name, packages[i-1].Priority)
		}
	}

	var res Result
	latest := make(map[string]known)
	first := make(map[string]known)
	shadow := make(map[string]known)
	var order []string

	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if filter.ExcludesPackage(pkg.Name) {
			continue
		}

		files, err := r.listPackage(pkg.Root)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Severity: SeverityWarning,
				Code:     "package_scan_failed",
				Message:  fmt.Sprintf("skipping package %q: root directory could not be listed", pkg.Name),
				Path:     pkg.Root,
				Cause:    err,
			})
			continue
		}

		for _, rel := range files {
			if filter.ExcludesName(rel.Base()) {
				continue
			}
			key := rel.Key()
			abs := filepath.Join(pkg.Root, filepath.FromSlash(string(rel)))
			cur := known{rel: rel, path: abs, pkg: pkg.Name, priority: pkg.Priority}

			prev, seen := latest[key]
			switch {
			case !seen:
				first[key] = cur
				order = append(order, key)
			case prev.pkg == pkg.Name:
				// Case variants inside one package on a case-sensitive filesystem.
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Severity: SeverityWarning,
					Code:     "duplicate_relative_path",
					Message:  fmt.Sprintf("package %q contains %q more than once (case differs)", pkg.Name, rel),
					Path:     abs,
				})
				continue
			default:
				res.Pairs = append(res.Pairs, OverridePair{
					RelativePath:       rel,
					OriginalPath:       prev.path,
					OverridePath:       abs,
					OriginalPackage:    prev.pkg,
					OverridingPackage:  pkg.Name,
					OverridingPriority: pkg.Priority,
				})
			}
			cur.rel = first[key].rel
			latest[key] = cur
			if seen {
				// Remember what the new winner shadows.
				shadow[key] = prev
			}
		}
	}

	for _, key := range order {
		win := latest[key]
		eff := EffectiveFile{
			RelativePath: win.rel,
			Path:         win.path,
			Package:      win.pkg,
			Priority:     win.priority,
		}
		if prev, ok := shadow[key]; ok {
			eff.ShadowedPath = prev.path
			eff.ShadowedPackage = prev.pkg
		}
		res.Effective = append(res.Effective, eff)
	}

	return res, nil
}

// listPackage returns the recognized files under root as slash-separated
// relative paths in directory order.
func (r *Resolver) listPackage(root string) ([]RelativePath, error) {
	if r.depth == ScanTopLevel {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		var out []RelativePath
		for _, e := range entries {
			if e.Type().IsRegular() && r.extensions.Matches(e.Name()) {
				out = append(out, RelativePath(e.Name()))
			}
		}
		return out, nil
	}

	if _, err := os.ReadDir(root); err != nil {
		return nil, err
	}
	var out []RelativePath
	err := fs.WalkDir(os.DirFS(root), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subdirectories are skipped, the root was checked above.
			if d != nil && d.IsDir() && p != "." {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && r.extensions.Matches(path.Base(p)) {
			out = append(out, RelativePath(p))
		}
		return nil
	})
	return out, err
}
