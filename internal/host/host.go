// SPDX-License-Identifier: MPL-2.0

// Package host defines the narrow capabilities the batch needs from the mod
// manager and implements them over a Mod Organizer 2 style instance
// directory.
//
// Each capability is a separate interface so the orchestrator depends only
// on what it uses and tests can substitute any one of them.
package host

import (
	"context"

	"github.com/LightSofa/dsd-generator/internal/overlay"
)

type (
	// ContentPackageSource enumerates content packages and their metadata.
	ContentPackageSource interface {
		// ListActiveContentPackages returns the enabled packages with their
		// priorities. Order is implementation-defined.
		ListActiveContentPackages(ctx context.Context) ([]overlay.ContentPackage, error)
		// PackageMetadata returns the package's metadata, or nil when it has none.
		PackageMetadata(ctx context.Context, name string) (map[string]string, error)
	}

	// SettingsStore persists the user-facing settings.
	SettingsStore interface {
		Settings(ctx context.Context) (Settings, error)
		SaveSettings(ctx context.Context, s Settings) error
	}

	// OutputSink creates and activates the package that receives artifacts.
	OutputSink interface {
		// CreateOutputLocation creates (or reuses) the named package and
		// returns its root directory.
		CreateOutputLocation(ctx context.Context, name string) (string, error)
		// ActivateOutputLocation enables the package at the highest priority.
		ActivateOutputLocation(ctx context.Context, name string) error
	}

	// PreLaunchHook runs before a program is started. A returned error is
	// logged and never prevents the launch.
	PreLaunchHook func(ctx context.Context, executable string) error

	// Launcher starts programs through the host, running hooks first.
	Launcher interface {
		RegisterPreLaunchHook(hook PreLaunchHook)
		// Launch runs argv with stdio attached and returns its exit code.
		Launch(ctx context.Context, argv []string) (int, error)
	}
)
