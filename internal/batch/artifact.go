// SPDX-License-Identifier: MPL-2.0

package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LightSofa/dsd-generator/internal/merge"
	"github.com/LightSofa/dsd-generator/internal/overlay"
	"github.com/LightSofa/dsd-generator/pkg/fspath"
	"github.com/LightSofa/dsd-generator/pkg/types"
)

// hiddenSuffix hides a file from the mod manager's virtual filesystem.
const hiddenSuffix = ".mohidden"

var (
	errOutputUnavailable = errors.New("output package unavailable")
	errArtifactCollision = errors.New("artifact name already taken in this run")
)

// ArtifactPath returns <root>/<subpath>/<base>/<base>.json for a plugin base
// name.
func ArtifactPath(root, subpath, base string) string {
	return filepath.Join(root, filepath.FromSlash(subpath), base, base+".json")
}

// writeArtifact encodes records and writes them below the output package,
// creating the package on first use. Artifacts are named by plugin base name
// only, so the first pair to claim a name keeps it and later pairs with the
// same base name fail.
func (o *Orchestrator) writeArtifact(ctx context.Context, r *run, pair overlay.OverridePair, records []merge.MergedRecord) (Artifact, error) {
	base := pair.RelativePath.Base()
	key := strings.ToLower(base)
	if prev, taken := r.written[key]; taken {
		r.warn(CodeArtifactCollision,
			fmt.Sprintf("%q and %q both produce artifact %q, keeping the first", prev, pair.RelativePath, base+".json"),
			pair.OverridePath, errArtifactCollision)
		return Artifact{}, errArtifactCollision
	}

	root, err := o.outputDir(ctx, r)
	if err != nil {
		return Artifact{}, err
	}

	data, err := merge.EncodeArtifact(records)
	if err != nil {
		r.warn(CodeArtifactWriteFailed, "could not encode artifact", pair.OverridePath, err)
		return Artifact{}, err
	}

	path := ArtifactPath(root, o.subpath, base)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.warn(CodeArtifactWriteFailed, "could not create artifact directory", path, err)
		return Artifact{}, err
	}
	if err := fspath.WriteFileAtomic(types.FilesystemPath(path), data, 0o644); err != nil {
		r.warn(CodeArtifactWriteFailed, "could not write artifact", path, err)
		return Artifact{}, err
	}
	r.written[key] = pair.RelativePath

	return Artifact{
		RelativePath: pair.RelativePath,
		Translation:  pair.OverridePath,
		Original:     pair.OriginalPath,
		Path:         path,
		Records:      len(records),
	}, nil
}

// outputDir creates the output package once per run. A failure is reported
// once and then fails every later pair.
func (o *Orchestrator) outputDir(ctx context.Context, r *run) (string, error) {
	if r.summary.OutputDir != "" {
		return r.summary.OutputDir, nil
	}
	if r.outputErr != nil {
		return "", r.outputErr
	}

	dir, err := o.deps.Output.CreateOutputLocation(ctx, r.summary.OutputName)
	if err != nil {
		r.outputErr = fmt.Errorf("%w: %w", errOutputUnavailable, err)
		r.warn(CodeOutputLocationFailed, "could not create output package", r.summary.OutputName, err)
		return "", r.outputErr
	}
	r.summary.OutputDir = dir
	return dir, nil
}

// copyToSource places a copy of the artifact inside the translation's own
// package and then hides the translation plugin. It returns the copy's path,
// or "" when the copy was skipped or failed.
func (o *Orchestrator) copyToSource(r *run, pair overlay.OverridePair, artifactPath string) string {
	hidden := pair.OverridePath + hiddenSuffix
	if fspath.Exists(types.FilesystemPath(hidden)) {
		r.warn(CodeCopyToSourceSkipped, "hidden plugin already exists", hidden, nil)
		return ""
	}
	if err := checkWritable(pair.OverridePath); err != nil {
		r.warn(CodeCopyToSourceSkipped, "translation plugin is not writable", pair.OverridePath, err)
		return ""
	}

	root, ok := r.roots[pair.OverridingPackage]
	if !ok {
		root = filepath.Dir(pair.OverridePath)
	}
	target := ArtifactPath(root, o.subpath, pair.RelativePath.Base())

	// The plugin is hidden only once the copy is in place, so a failure
	// leaves the translation package as it was.
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		r.warn(CodeCopyToSourceFailed, "could not create artifact directory", target, err)
		return ""
	}
	if err := fspath.CopyFile(types.FilesystemPath(artifactPath), types.FilesystemPath(target)); err != nil {
		r.warn(CodeCopyToSourceFailed, "could not copy artifact", target, err)
		return ""
	}
	if err := os.Rename(pair.OverridePath, hidden); err != nil {
		if rmErr := os.Remove(target); rmErr != nil {
			r.logger.Warn("could not remove copied artifact", "path", target, "err", rmErr)
		}
		r.warn(CodeCopyToSourceFailed, "could not hide translation plugin", pair.OverridePath, err)
		return ""
	}
	r.logger.Info("copied artifact to translation package", "path", target, "hidden", hidden)
	return target
}

func checkWritable(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	return f.Close()
}
