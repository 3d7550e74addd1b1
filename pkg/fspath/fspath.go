// SPDX-License-Identifier: MPL-2.0

// Package fspath provides the small filesystem primitives shared by the cache,
// the artifact writer and the instance layer: crash-safe whole-file replacement,
// file copies, and existence checks on typed paths.
package fspath

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/LightSofa/dsd-generator/pkg/types"
)

// WriteFileAtomic replaces path with data. The bytes are written to a temp
// file in the same directory, synced and renamed over the destination, so
// readers observe either the old or the new content. Parent directories are
// created as needed.
func WriteFileAtomic(path types.FilesystemPath, data []byte, perm fs.FileMode) (err error) {
	dir := filepath.Dir(string(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(string(path))+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			// Best-effort removal of the partially written temp file.
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmpPath, string(path)); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	_ = syncDir(dir)
	return nil
}

// CopyFile copies src to dst atomically, preserving nothing but the bytes.
func CopyFile(src, dst types.FilesystemPath) error {
	in, err := os.Open(string(src))
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer func() { _ = in.Close() }() // Read-only handle; close errors are exotic.

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	return WriteFileAtomic(dst, data, 0o644)
}

// Exists reports whether path exists. Errors other than "not exist" count as existing
// so callers never overwrite something they could not inspect.
func Exists(path types.FilesystemPath) bool {
	_, err := os.Lstat(string(path))
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
