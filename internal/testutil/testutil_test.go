// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewInstanceDir(t *testing.T) {
	t.Parallel()

	root := NewInstanceDir(t, "Default", "+A\n")
	if got := MustReadFile(t, ModlistPath(root, "Default")); got != "+A\n" {
		t.Errorf("modlist = %q, want %q", got, "+A\n")
	}
	if info, err := os.Stat(filepath.Join(root, "mods")); err != nil || !info.IsDir() {
		t.Errorf("mods directory missing: %v", err)
	}
}

func TestAddPackage(t *testing.T) {
	t.Parallel()

	root := NewInstanceDir(t, "Default", "")
	dir := AddPackage(t, root, "Pkg", map[string][]byte{
		"A.esp":            []byte("a"),
		"Sub/Deeper/B.esp": []byte("b"),
	})

	if dir != filepath.Join(root, "mods", "Pkg") {
		t.Errorf("AddPackage() = %q", dir)
	}
	if got := MustReadFile(t, filepath.Join(dir, "Sub", "Deeper", "B.esp")); got != "b" {
		t.Errorf("nested file = %q, want %q", got, "b")
	}
	MustNotExist(t, filepath.Join(dir, "C.esp"))
}
