// SPDX-License-Identifier: MPL-2.0

// Package exclude parses the user's exclusion list.
//
// One entry per line; blank lines and lines starting with '#' are ignored:
//
//	@1234          every package whose external id is 1234
//	Some Mod/      the package named "Some Mod"
//	Patch.esp      any plugin file named Patch.esp
//
// All comparisons are case-insensitive.
package exclude

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

type (
	// List is a parsed exclusion list. All entries are lowercase.
	List struct {
		PackageIDs   []string
		PackageNames []string
		FileNames    []string
	}

	// File loads a List from disk, re-reading only when the modification
	// time changes.
	File struct {
		path string

		mu     sync.Mutex
		list   List
		mtime  time.Time
		loaded bool
	}
)

// Parse reads an exclusion list. Duplicate entries are kept once.
func Parse(r io.Reader) (List, error) {
	var l List
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.ToLower(line)
		switch {
		case strings.HasPrefix(line, "@"):
			if id := strings.TrimSpace(line[1:]); id != "" {
				l.PackageIDs = appendUnique(l.PackageIDs, id)
			}
		case strings.HasSuffix(line, "/") || strings.HasSuffix(line, `\`):
			if name := strings.TrimSpace(strings.TrimRight(line, `/\`)); name != "" {
				l.PackageNames = appendUnique(l.PackageNames, name)
			}
		default:
			l.FileNames = appendUnique(l.FileNames, line)
		}
	}
	if err := sc.Err(); err != nil {
		return List{}, fmt.Errorf("reading exclusion list: %w", err)
	}
	return l, nil
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

// IsEmpty reports whether the list excludes nothing.
func (l List) IsEmpty() bool {
	return len(l.PackageIDs) == 0 && len(l.PackageNames) == 0 && len(l.FileNames) == 0
}

// ExcludesID reports whether a package external id is excluded.
func (l List) ExcludesID(id string) bool {
	return id != "" && slices.Contains(l.PackageIDs, strings.ToLower(strings.TrimSpace(id)))
}

// Merge returns the union of l and other.
func (l List) Merge(other List) List {
	out := List{
		PackageIDs:   slices.Clone(l.PackageIDs),
		PackageNames: slices.Clone(l.PackageNames),
		FileNames:    slices.Clone(l.FileNames),
	}
	for _, s := range other.PackageIDs {
		out.PackageIDs = appendUnique(out.PackageIDs, s)
	}
	for _, s := range other.PackageNames {
		out.PackageNames = appendUnique(out.PackageNames, s)
	}
	for _, s := range other.FileNames {
		out.FileNames = appendUnique(out.FileNames, s)
	}
	return out
}

// NewFile returns a loader for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the list location.
func (f *File) Path() string { return f.path }

// Load returns the current list. A missing file is an empty list.
func (f *File) Load() (List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.path == "" {
		return List{}, nil
	}
	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.list, f.loaded, f.mtime = List{}, false, time.Time{}
		return List{}, nil
	}
	if err != nil {
		return List{}, fmt.Errorf("stat exclusion list: %w", err)
	}
	if f.loaded && info.ModTime().Equal(f.mtime) {
		return f.list, nil
	}

	file, err := os.Open(f.path)
	if err != nil {
		return List{}, fmt.Errorf("opening exclusion list: %w", err)
	}
	defer func() { _ = file.Close() }()

	list, err := Parse(file)
	if err != nil {
		return List{}, err
	}
	f.list, f.loaded, f.mtime = list, true, info.ModTime()
	return list, nil
}
