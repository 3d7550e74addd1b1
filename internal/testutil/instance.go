// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

// NewInstanceDir creates an instance layout in a temporary directory with
// the given profile's modlist and returns the instance root. Package
// directories are not created; use AddPackage.
func NewInstanceDir(t testing.TB, profile, modlist string) string {
	t.Helper()
	root := t.TempDir()
	MustWriteFile(t, ModlistPath(root, profile), []byte(modlist))
	MustMkdirAll(t, filepath.Join(root, "mods"))
	return root
}

// ModlistPath returns the modlist location of profile below root.
func ModlistPath(root, profile string) string {
	return filepath.Join(root, "profiles", profile, "modlist.txt")
}

// AddPackage creates mods/<name> below root and writes files into it. Keys
// of files are slash-separated paths relative to the package root.
func AddPackage(t testing.TB, root, name string, files map[string][]byte) string {
	t.Helper()
	dir := filepath.Join(root, "mods", name)
	MustMkdirAll(t, dir)
	for rel, data := range files {
		MustWriteFile(t, filepath.Join(dir, filepath.FromSlash(rel)), data)
	}
	return dir
}
