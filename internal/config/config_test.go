// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LightSofa/dsd-generator/internal/issue"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Profile != "Default" {
		t.Errorf("Profile = %q, want Default", cfg.Profile)
	}
	if cfg.Scan.Depth != ScanDepthTopLevel {
		t.Errorf("Scan.Depth = %q, want %q", cfg.Scan.Depth, ScanDepthTopLevel)
	}
	if diff := cmp.Diff([]string{".esp", ".esm", ".esl"}, cfg.Scan.Extensions); diff != "" {
		t.Errorf("Scan.Extensions mismatch (-want +got):\n%s", diff)
	}
	if cfg.Pairing.MinSizeRatio != 0.8 || cfg.Pairing.MaxSizeRatio != 1.2 {
		t.Errorf("Pairing = %+v, want 0.8/1.2", cfg.Pairing)
	}
	if cfg.Output.Subpath != "SKSE/Plugins/DynamicStringDistributor" {
		t.Errorf("Output.Subpath = %q", cfg.Output.Subpath)
	}
	if cfg.Launch.TriggerExecutable != "skse64_loader.exe" {
		t.Errorf("Launch.TriggerExecutable = %q", cfg.Launch.TriggerExecutable)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("DefaultConfig().IsValid() = false: %v", errs)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Source != "" {
		t.Errorf("Source = %q, want empty", loaded.Source)
	}
	if diff := cmp.Diff(DefaultConfig(), loaded.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	path := writeConfig(t, dir, `
instance_dir: "/games/skyrim"
profile: "Translated"
scan: depth: "recursive"
pairing: {
	min_size_ratio: 0.5
	max_size_ratio: 2.0
}
ui: log_level: "debug"
`)

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	cfg := loaded.Config
	if loaded.Source != path {
		t.Errorf("Source = %q, want %q", loaded.Source, path)
	}
	if cfg.InstanceDir != "/games/skyrim" || cfg.Profile != "Translated" {
		t.Errorf("unexpected instance/profile: %q/%q", cfg.InstanceDir, cfg.Profile)
	}
	if cfg.Scan.Depth != ScanDepthRecursive {
		t.Errorf("Scan.Depth = %q", cfg.Scan.Depth)
	}
	if cfg.Pairing.MinSizeRatio != 0.5 || cfg.Pairing.MaxSizeRatio != 2.0 {
		t.Errorf("Pairing = %+v", cfg.Pairing)
	}
	if cfg.UI.LogLevel != LogLevelDebug {
		t.Errorf("UI.LogLevel = %q", cfg.UI.LogLevel)
	}
	// Untouched sections keep defaults.
	if cfg.Output.NamePrefix != "DSD_Configs_" {
		t.Errorf("Output.NamePrefix = %q", cfg.Output.NamePrefix)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", `colour: "blue"`},
		{"bad depth", `scan: depth: "deep"`},
		{"ratio above one as min", `pairing: min_size_ratio: 1.5`},
		{"negative cache size", `cache: extraction_cache_size: -1`},
		{"extension without dot", `scan: extensions: ["esp"]`},
		{"syntax error", `profile: `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T", err)
			}
			if ae.IssueID != issue.ConfigLoadFailedId {
				t.Errorf("IssueID = %d, want %d", ae.IssueID, issue.ConfigLoadFailedId)
			}
		})
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "missing.cue"),
	})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v, want config file not found", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DSDGEN_PROFILE", "FromEnv")
	t.Setenv("DSDGEN_SCAN_DEPTH", "recursive")
	t.Setenv("DSDGEN_PAIRING_MAX_SIZE_RATIO", "1.5")

	dir := t.TempDir()
	writeConfig(t, dir, `profile: "FromFile"`)

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Config.Profile != "FromEnv" {
		t.Errorf("Profile = %q, want FromEnv", loaded.Config.Profile)
	}
	if loaded.Config.Scan.Depth != ScanDepthRecursive {
		t.Errorf("Scan.Depth = %q", loaded.Config.Scan.Depth)
	}
	if loaded.Config.Pairing.MaxSizeRatio != 1.5 {
		t.Errorf("MaxSizeRatio = %v", loaded.Config.Pairing.MaxSizeRatio)
	}
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DSDGEN_UI_LOG_LEVEL", "chatty")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("Load() error = %v, want ErrInvalidLogLevel", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := DefaultConfig()
	cfg.InstanceDir = `C:\Modding\Skyrim`
	cfg.Pairing.MaxSizeRatio = 2
	cfg.Launch.Command = `"C:\Games\skse64_loader.exe" -forcesteamloader`

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE(cfg))

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v\n%s", err, GenerateCUE(cfg))
	}
	if diff := cmp.Diff(cfg, loaded.Config); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.cue")

	written, err := CreateDefaultConfig(path, false)
	if err != nil || !written {
		t.Fatalf("CreateDefaultConfig() = %v, %v", written, err)
	}
	if err := os.WriteFile(path, []byte(`profile: "Mine"`), 0o644); err != nil {
		t.Fatal(err)
	}

	written, err = CreateDefaultConfig(path, false)
	if err != nil || written {
		t.Errorf("second CreateDefaultConfig() = %v, %v, want false, nil", written, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != `profile: "Mine"` {
		t.Error("existing config should not be overwritten without force")
	}

	if written, err = CreateDefaultConfig(path, true); err != nil || !written {
		t.Errorf("forced CreateDefaultConfig() = %v, %v", written, err)
	}
}

func TestConfigDirFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, dir)

	got, err := ConfigDir()
	if err != nil || got != dir {
		t.Errorf("ConfigDir() = %q, %v, want %q", got, err, dir)
	}
	path, err := DefaultConfigPath()
	if err != nil || path != filepath.Join(dir, "config.cue") {
		t.Errorf("DefaultConfigPath() = %q, %v", path, err)
	}
}

func TestResolvedPaths(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.NegativeCacheFile() != "" || cfg.ExclusionListFile() != "" {
		t.Error("paths should be empty without an instance directory")
	}

	cfg.InstanceDir = filepath.Join("games", "skyrim")
	if got, want := cfg.NegativeCacheFile(), filepath.Join("games", "skyrim", "dsdgen_negative_cache.json"); got != want {
		t.Errorf("NegativeCacheFile() = %q, want %q", got, want)
	}
	cfg.ExclusionFile = "custom.txt"
	if cfg.ExclusionListFile() != "custom.txt" {
		t.Errorf("ExclusionListFile() = %q", cfg.ExclusionListFile())
	}
}
