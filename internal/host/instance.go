// SPDX-License-Identifier: MPL-2.0

package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"

	"github.com/LightSofa/dsd-generator/internal/issue"
	"github.com/LightSofa/dsd-generator/internal/overlay"
	"github.com/LightSofa/dsd-generator/pkg/fspath"
	"github.com/LightSofa/dsd-generator/pkg/types"
)

const (
	// DefaultProfile is the profile used when none is configured.
	DefaultProfile = "Default"

	// SettingsFileName is the per-instance settings document.
	SettingsFileName = "dsdgen.toml"

	modsDirName     = "mods"
	profilesDirName = "profiles"
	modlistFileName = "modlist.txt"
	metaFileName    = "meta.ini"
)

var (
	// ErrInvalidPackageName is returned for output names that are not a single
	// path element.
	ErrInvalidPackageName = errors.New("invalid package name")
	// ErrEmptyCommand is returned by Launch for an empty argv.
	ErrEmptyCommand = errors.New("empty command")

	_ ContentPackageSource = (*Instance)(nil)
	_ SettingsStore        = (*Instance)(nil)
	_ OutputSink           = (*Instance)(nil)
	_ Launcher             = (*Instance)(nil)
)

type (
	// Instance is a mod manager instance laid out as
	//
	//	<root>/mods/<package>/...
	//	<root>/mods/<package>/meta.ini
	//	<root>/profiles/<profile>/modlist.txt
	//	<root>/dsdgen.toml
	//
	// It is safe for concurrent use.
	Instance struct {
		root    string
		profile string
		logger  *log.Logger
		runner  CommandRunner
		stdio   Stdio

		mu    sync.Mutex // guards hooks and modlist rewrites
		hooks []PreLaunchHook
	}

	// Stdio is attached to launched programs.
	Stdio struct {
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// CommandRunner executes argv and returns its exit code.
	CommandRunner func(ctx context.Context, argv []string, stdio Stdio) (int, error)

	// Option configures an Instance.
	Option func(*Instance)
)

// WithProfile selects the profile whose modlist defines active packages.
func WithProfile(profile string) Option {
	return func(i *Instance) {
		if profile != "" {
			i.profile = profile
		}
	}
}

// WithLogger sets the logger used for hook failures and launches.
func WithLogger(logger *log.Logger) Option {
	return func(i *Instance) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithStdio sets the streams attached to launched programs.
func WithStdio(stdio Stdio) Option {
	return func(i *Instance) { i.stdio = stdio }
}

// WithCommandRunner replaces process execution, mainly for tests.
func WithCommandRunner(runner CommandRunner) Option {
	return func(i *Instance) {
		if runner != nil {
			i.runner = runner
		}
	}
}

// OpenInstance opens the instance rooted at root. The directory must exist.
func OpenInstance(root string, opts ...Option) (*Instance, error) {
	if strings.TrimSpace(root) == "" {
		return nil, issue.NewErrorContext().
			WithOperation("open instance").
			WithSuggestion("Pass --instance or set instance_dir in the config file").
			WithIssue(issue.InstanceNotFoundId).
			Wrap(fs.ErrNotExist).
			BuildError()
	}
	info, err := os.Stat(root)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%s is not a directory", root)
	}
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("open instance").
			WithResource(root).
			WithSuggestion("Check that the path points at the mod manager instance directory").
			WithIssue(issue.InstanceNotFoundId).
			Wrap(err).
			BuildError()
	}

	inst := &Instance{
		root:    root,
		profile: DefaultProfile,
		logger:  log.New(io.Discard),
		runner:  execRunner,
		stdio:   Stdio{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr},
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst, nil
}

// Root returns the instance directory.
func (i *Instance) Root() string { return i.root }

// Profile returns the selected profile name.
func (i *Instance) Profile() string { return i.profile }

// ModsDir returns the directory holding every package.
func (i *Instance) ModsDir() string { return filepath.Join(i.root, modsDirName) }

// ModlistPath returns the selected profile's modlist file.
func (i *Instance) ModlistPath() string {
	return filepath.Join(i.root, profilesDirName, i.profile, modlistFileName)
}

// SettingsPath returns the settings document path.
func (i *Instance) SettingsPath() string { return filepath.Join(i.root, SettingsFileName) }

// ListActiveContentPackages returns enabled packages in modlist order, highest
// priority first. The bottom managed line has priority 0.
func (i *Instance) ListActiveContentPackages(ctx context.Context) ([]overlay.ContentPackage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := i.readModlist()
	if err != nil {
		return nil, err
	}

	pkgs := make([]overlay.ContentPackage, 0, len(entries))
	for idx, e := range entries {
		if e.State != stateEnabled || e.IsSeparator() {
			continue
		}
		pkgs = append(pkgs, overlay.ContentPackage{
			Name:     e.Name,
			Priority: len(entries) - 1 - idx,
			Root:     filepath.Join(i.ModsDir(), e.Name),
			Active:   true,
		})
	}
	return pkgs, nil
}

func (i *Instance) readModlist() ([]modlistEntry, error) {
	path := i.ModlistPath()
	f, err := os.Open(path)
	if err != nil {
		return nil, modlistError(path, err)
	}
	defer func() { _ = f.Close() }()

	entries, err := parseModlist(f)
	if err != nil {
		return nil, modlistError(path, err)
	}
	return entries, nil
}

func modlistError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("read modlist").
		WithResource(path).
		WithSuggestion("Check the profile name (--profile) and that the mod manager has written its modlist").
		WithIssue(issue.ModListUnreadableId).
		Wrap(err).
		BuildError()
}

// PackageMetadata flattens the package's meta.ini. Keys in the [General]
// section are returned bare, others as "section.key"; all names are
// lowercased. A package without meta.ini has nil metadata.
func (i *Instance) PackageMetadata(ctx context.Context, name string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validatePackageName(name); err != nil {
		return nil, err
	}

	path := filepath.Join(i.ModsDir(), name, metaFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	file, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:             true,
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	meta := make(map[string]string)
	for _, sec := range file.Sections() {
		prefix := ""
		if sec.Name() != "general" && !strings.EqualFold(sec.Name(), ini.DefaultSection) {
			prefix = sec.Name() + "."
		}
		for _, key := range sec.Keys() {
			meta[prefix+key.Name()] = key.String()
		}
	}
	return meta, nil
}

// Settings loads the settings document. Missing keys keep their defaults and
// a missing file yields DefaultSettings.
func (i *Instance) Settings(ctx context.Context) (Settings, error) {
	s := DefaultSettings()
	if err := ctx.Err(); err != nil {
		return s, err
	}
	data, err := os.ReadFile(i.SettingsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), issue.NewErrorContext().
			WithOperation("load settings").
			WithResource(i.SettingsPath()).
			WithSuggestion("Fix the file or reset a value with 'dsdgen settings set <key> <value>'").
			WithIssue(issue.SettingsInvalidId).
			Wrap(err).
			BuildError()
	}
	return s, nil
}

// SaveSettings writes the settings document atomically.
func (i *Instance) SaveSettings(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := fspath.WriteFileAtomic(types.FilesystemPath(i.SettingsPath()), data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// CreateOutputLocation creates mods/<name> if needed and returns it.
func (i *Instance) CreateOutputLocation(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validatePackageName(name); err != nil {
		return "", err
	}
	dir := filepath.Join(i.ModsDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", issue.NewErrorContext().
			WithOperation("create output package").
			WithResource(dir).
			WithIssue(issue.OutputNotWritableId).
			Wrap(err).
			BuildError()
	}
	return dir, nil
}

// ActivateOutputLocation enables name as the highest priority package of the
// selected profile. Repeated calls leave a single entry.
func (i *Instance) ActivateOutputLocation(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePackageName(name); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	path := i.ModlistPath()
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return modlistError(path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return modlistError(path, err)
	}
	updated := withActivated(string(content), name)
	if bytes.Equal(content, []byte(updated)) {
		return nil
	}
	if err := fspath.WriteFileAtomic(types.FilesystemPath(path), []byte(updated), 0o644); err != nil {
		return issue.NewErrorContext().
			WithOperation("activate output package").
			WithResource(path).
			WithIssue(issue.OutputNotWritableId).
			Wrap(err).
			BuildError()
	}
	return nil
}

// RegisterPreLaunchHook adds a hook run by every Launch, in registration order.
func (i *Instance) RegisterPreLaunchHook(hook PreLaunchHook) {
	if hook == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hooks = append(i.hooks, hook)
}

// Launch runs the registered hooks with argv[0] and then starts argv. Hook
// failures are logged and do not block the launch.
func (i *Instance) Launch(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return 0, ErrEmptyCommand
	}

	i.mu.Lock()
	hooks := append([]PreLaunchHook(nil), i.hooks...)
	i.mu.Unlock()

	for _, hook := range hooks {
		if err := hook(ctx, argv[0]); err != nil {
			i.logger.Warn("pre-launch hook failed", "executable", argv[0], "err", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	i.logger.Info("launching", "command", argv[0], "args", argv[1:])
	code, err := i.runner(ctx, argv, i.stdio)
	if err != nil {
		return code, issue.NewErrorContext().
			WithOperation("launch").
			WithResource(argv[0]).
			WithSuggestion("Check launch.command in the config file").
			WithIssue(issue.LaunchFailedId).
			Wrap(err).
			BuildError()
	}
	return code, nil
}

func execRunner(ctx context.Context, argv []string, stdio Stdio) (int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, err
	}
	return 0, nil
}

func validatePackageName(name string) error {
	switch {
	case strings.TrimSpace(name) == "",
		name == ".", name == "..",
		strings.ContainsAny(name, `/\:`):
		return fmt.Errorf("%w: %q", ErrInvalidPackageName, name)
	}
	return nil
}
