// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFilesystemPath_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path FilesystemPath
		want bool
	}{
		{"absolute path", FilesystemPath("/games/skyrim/mods"), true},
		{"relative path", FilesystemPath("mods"), true},
		{"windows style", FilesystemPath("C:\\Modding\\MO2\\mods"), true},
		{"path with spaces", FilesystemPath("/path/to/Unofficial Patch"), true},
		{"empty is invalid", FilesystemPath(""), false},
		{"whitespace only is invalid", FilesystemPath("   "), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			valid, errs := tt.path.IsValid()
			if valid != tt.want {
				t.Fatalf("FilesystemPath(%q).IsValid() = %v, want %v", tt.path, valid, tt.want)
			}
			if tt.want {
				return
			}
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d", len(errs))
			}
			if !errors.Is(errs[0], ErrInvalidFilesystemPath) {
				t.Errorf("error should wrap ErrInvalidFilesystemPath, got: %v", errs[0])
			}
			var fpErr *InvalidFilesystemPathError
			if !errors.As(errs[0], &fpErr) {
				t.Errorf("error should be *InvalidFilesystemPathError, got: %T", errs[0])
			}
		})
	}
}

func TestFilesystemPath_Join(t *testing.T) {
	t.Parallel()

	got := FilesystemPath("instance").Join("mods", "Patch")
	want := FilesystemPath(filepath.Join("instance", "mods", "Patch"))
	if got != want {
		t.Errorf("Join() = %q, want %q", got, want)
	}
}
