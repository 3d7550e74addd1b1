// SPDX-License-Identifier: MPL-2.0

package host

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/LightSofa/dsd-generator/internal/issue"
	"github.com/LightSofa/dsd-generator/internal/overlay"
)

func newTestInstance(t *testing.T, modlist string, opts ...Option) *Instance {
	t.Helper()

	root := t.TempDir()
	if modlist != "" {
		path := filepath.Join(root, profilesDirName, DefaultProfile, modlistFileName)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(modlist), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	inst, err := OpenInstance(root, opts...)
	if err != nil {
		t.Fatalf("OpenInstance() error = %v", err)
	}
	return inst
}

func issueIDOf(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.IssueID
	}
	return 0
}

func TestOpenInstance(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, root := range []string{"", filepath.Join(t.TempDir(), "missing"), file} {
		_, err := OpenInstance(root)
		if err == nil {
			t.Errorf("OpenInstance(%q) error = nil, want error", root)
			continue
		}
		if got := issueIDOf(err); got != issue.InstanceNotFoundId {
			t.Errorf("OpenInstance(%q) issue = %d, want %d", root, got, issue.InstanceNotFoundId)
		}
	}

	inst := newTestInstance(t, "", WithProfile("Survival"))
	if inst.Profile() != "Survival" {
		t.Errorf("Profile() = %q, want Survival", inst.Profile())
	}
	want := filepath.Join(inst.Root(), "profiles", "Survival", "modlist.txt")
	if inst.ModlistPath() != want {
		t.Errorf("ModlistPath() = %q, want %q", inst.ModlistPath(), want)
	}
}

func TestListActiveContentPackages(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t, "# header\n+Translation\n-Off\n+Group_separator\n+Base\n")

	got, err := inst.ListActiveContentPackages(context.Background())
	if err != nil {
		t.Fatalf("ListActiveContentPackages() error = %v", err)
	}
	want := []overlay.ContentPackage{
		{Name: "Translation", Priority: 3, Root: filepath.Join(inst.ModsDir(), "Translation"), Active: true},
		{Name: "Base", Priority: 0, Root: filepath.Join(inst.ModsDir(), "Base"), Active: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListActiveContentPackages() mismatch (-want +got):\n%s", diff)
	}
}

func TestListActiveContentPackagesMissingModlist(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t, "")
	_, err := inst.ListActiveContentPackages(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
	if got := issueIDOf(err); got != issue.ModListUnreadableId {
		t.Errorf("issue = %d, want %d", got, issue.ModListUnreadableId)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := inst.ListActiveContentPackages(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled error = %v, want context.Canceled", err)
	}
}

func TestPackageMetadata(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t, "+With Meta\n+Bare\n")
	metaDir := filepath.Join(inst.ModsDir(), "With Meta")
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		t.Fatal(err)
	}
	meta := "[General]\nmodid=12345\nversion=1.2.0\n\n[installedFiles]\n1\\modid=12345\nsize=1\n"
	if err := os.WriteFile(filepath.Join(metaDir, metaFileName), []byte(meta), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := inst.PackageMetadata(context.Background(), "With Meta")
	if err != nil {
		t.Fatalf("PackageMetadata() error = %v", err)
	}
	if got["modid"] != "12345" || got["version"] != "1.2.0" {
		t.Errorf("PackageMetadata() = %v, want modid and version", got)
	}
	if got["installedfiles.size"] != "1" {
		t.Errorf("PackageMetadata()[installedfiles.size] = %q, want 1", got["installedfiles.size"])
	}

	bare, err := inst.PackageMetadata(context.Background(), "Bare")
	if err != nil || bare != nil {
		t.Errorf("PackageMetadata(Bare) = %v, %v; want nil, nil", bare, err)
	}

	if _, err := inst.PackageMetadata(context.Background(), "../escape"); !errors.Is(err, ErrInvalidPackageName) {
		t.Errorf("PackageMetadata(../escape) error = %v, want ErrInvalidPackageName", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t, "")
	ctx := context.Background()

	got, err := inst.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if diff := cmp.Diff(DefaultSettings(), got); diff != "" {
		t.Errorf("Settings() without file mismatch (-want +got):\n%s", diff)
	}

	want := Settings{AutoRun: true, ShowProgress: false, CopyToSource: true, OutputName: "My DSD"}
	if err := inst.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	got, err = inst.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Settings() mismatch (-want +got):\n%s", diff)
	}
}

func TestSettingsPartialAndCorrupt(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t, "")
	ctx := context.Background()

	if err := os.WriteFile(inst.SettingsPath(), []byte("auto_run = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := inst.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if !got.AutoRun || !got.ShowProgress {
		t.Errorf("Settings() = %+v, want auto_run set and show_progress defaulted", got)
	}

	if err := os.WriteFile(inst.SettingsPath(), []byte("auto_run = [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = inst.Settings(ctx)
	if issueIDOf(err) != issue.SettingsInvalidId {
		t.Errorf("Settings() error = %v, want SettingsInvalid issue", err)
	}
	if diff := cmp.Diff(DefaultSettings(), got); diff != "" {
		t.Errorf("Settings() on corrupt file mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateAndActivateOutputLocation(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t, "# header\n+Base\n")
	ctx := context.Background()

	dir, err := inst.CreateOutputLocation(ctx, "DSD_Configs_26-10-16-12-00")
	if err != nil {
		t.Fatalf("CreateOutputLocation() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("output dir %q not created: %v", dir, err)
	}
	if _, err := inst.CreateOutputLocation(ctx, "DSD_Configs_26-10-16-12-00"); err != nil {
		t.Fatalf("CreateOutputLocation() on existing dir error = %v", err)
	}

	for range 2 {
		if err := inst.ActivateOutputLocation(ctx, "DSD_Configs_26-10-16-12-00"); err != nil {
			t.Fatalf("ActivateOutputLocation() error = %v", err)
		}
	}
	data, err := os.ReadFile(inst.ModlistPath())
	if err != nil {
		t.Fatal(err)
	}
	want := "# header\n+DSD_Configs_26-10-16-12-00\n+Base\n"
	if string(data) != want {
		t.Errorf("modlist = %q, want %q", data, want)
	}

	pkgs, err := inst.ListActiveContentPackages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pkgs[0].Name != "DSD_Configs_26-10-16-12-00" || pkgs[0].Priority != 1 {
		t.Errorf("first package = %+v, want output at priority 1", pkgs[0])
	}
}

func TestOutputLocationInvalidNames(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t, "")
	for _, name := range []string{"", " ", ".", "..", "a/b", `a\b`, "c:"} {
		if _, err := inst.CreateOutputLocation(context.Background(), name); !errors.Is(err, ErrInvalidPackageName) {
			t.Errorf("CreateOutputLocation(%q) error = %v, want ErrInvalidPackageName", name, err)
		}
		if err := inst.ActivateOutputLocation(context.Background(), name); !errors.Is(err, ErrInvalidPackageName) {
			t.Errorf("ActivateOutputLocation(%q) error = %v, want ErrInvalidPackageName", name, err)
		}
	}
}

func TestLaunchRunsHooksThenCommand(t *testing.T) {
	t.Parallel()

	var calls []string
	runner := func(_ context.Context, argv []string, _ Stdio) (int, error) {
		calls = append(calls, "run:"+argv[0])
		return 7, nil
	}
	inst := newTestInstance(t, "", WithCommandRunner(runner))
	inst.RegisterPreLaunchHook(func(_ context.Context, exe string) error {
		calls = append(calls, "hook1:"+exe)
		return errors.New("hook failed")
	})
	inst.RegisterPreLaunchHook(nil)
	inst.RegisterPreLaunchHook(func(_ context.Context, exe string) error {
		calls = append(calls, "hook2:"+exe)
		return nil
	})

	code, err := inst.Launch(context.Background(), []string{"skse64_loader.exe", "-forcesteamloader"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if code != 7 {
		t.Errorf("Launch() code = %d, want 7", code)
	}
	want := []string{"hook1:skse64_loader.exe", "hook2:skse64_loader.exe", "run:skse64_loader.exe"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestLaunchErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("exec format error")
	inst := newTestInstance(t, "", WithCommandRunner(func(context.Context, []string, Stdio) (int, error) {
		return 0, boom
	}))

	if _, err := inst.Launch(context.Background(), nil); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Launch(nil) error = %v, want ErrEmptyCommand", err)
	}
	_, err := inst.Launch(context.Background(), []string{"game.exe"})
	if !errors.Is(err, boom) || issueIDOf(err) != issue.LaunchFailedId {
		t.Errorf("Launch() error = %v, want wrapped runner error with LaunchFailed issue", err)
	}
}
