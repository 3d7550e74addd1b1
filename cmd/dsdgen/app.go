// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/LightSofa/dsd-generator/internal/batch"
	"github.com/LightSofa/dsd-generator/internal/clock"
	"github.com/LightSofa/dsd-generator/internal/config"
	"github.com/LightSofa/dsd-generator/internal/exclude"
	"github.com/LightSofa/dsd-generator/internal/host"
	"github.com/LightSofa/dsd-generator/internal/merge"
	"github.com/LightSofa/dsd-generator/internal/negcache"
	"github.com/LightSofa/dsd-generator/internal/overlay"
	"github.com/LightSofa/dsd-generator/internal/pairing"
	"github.com/LightSofa/dsd-generator/internal/plugin"
)

type (
	// App is the composition root of the CLI. Every command handler receives
	// it and builds its collaborators through a session.
	App struct {
		Config    config.Provider
		runner    host.CommandRunner
		configDir string
		clock     clock.Clock
		stdin     io.Reader
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config config.Provider
		// ConfigDir replaces the platform config directory lookup.
		ConfigDir string
		// CommandRunner replaces process execution for `dsdgen launch`.
		CommandRunner host.CommandRunner
		Clock         clock.Clock
		Stdin         io.Reader
		Stdout        io.Writer
		Stderr        io.Writer
	}

	// rootFlagValues holds the persistent flags.
	rootFlagValues struct {
		configPath  string
		instanceDir string
		profile     string
		logLevel    string
		verbose     bool
	}

	// session is the wiring for one command invocation.
	session struct {
		cfg        *config.Config
		cfgSource  string
		verbose    bool
		logger     *log.Logger
		instance   *host.Instance
		cache      *negcache.Store
		validator  *pairing.Validator
		resolver   *overlay.Resolver
		extractor  plugin.Extractor
		exclusions *exclude.File
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{
		Config:    deps.Config,
		runner:    deps.CommandRunner,
		configDir: deps.ConfigDir,
		clock:     deps.Clock,
		stdin:     deps.Stdin,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

// loadConfig loads the config file and applies flag overrides.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (config.Loaded, error) {
	loaded, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		ConfigDirPath:  a.configDir,
	})
	if err != nil {
		return config.Loaded{}, err
	}

	cfg := loaded.Config
	if flags.instanceDir != "" {
		cfg.InstanceDir = flags.instanceDir
	}
	if flags.profile != "" {
		cfg.Profile = flags.profile
	}
	if flags.logLevel != "" {
		level := config.LogLevel(flags.logLevel)
		if valid, errs := level.IsValid(); !valid {
			return config.Loaded{}, errs[0]
		}
		cfg.UI.LogLevel = level
	}
	if flags.verbose {
		cfg.UI.Verbose = true
	}
	return loaded, nil
}

// newSession loads configuration and, when needInstance is set, opens the
// instance and wires the batch collaborators.
func (a *App) newSession(ctx context.Context, flags *rootFlagValues, needInstance bool) (*session, error) {
	loaded, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config
	s := &session{
		cfg:       cfg,
		cfgSource: loaded.Source,
		verbose:   cfg.UI.Verbose,
		logger:    newLogger(a.stderr, cfg.UI.LogLevel, cfg.UI.Verbose),
	}
	if !needInstance {
		return s, nil
	}

	opts := []host.Option{
		host.WithProfile(cfg.Profile),
		host.WithLogger(s.logger),
		host.WithStdio(host.Stdio{Stdin: a.stdin, Stdout: a.stdout, Stderr: a.stderr}),
	}
	if a.runner != nil {
		opts = append(opts, host.WithCommandRunner(a.runner))
	}
	if s.instance, err = host.OpenInstance(cfg.InstanceDir, opts...); err != nil {
		return nil, err
	}

	s.cache = negcache.Open(cfg.NegativeCacheFile(), s.logger)
	s.validator, err = pairing.New(s.cache, cfg.Pairing.MinSizeRatio, cfg.Pairing.MaxSizeRatio, pairing.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.resolver = overlay.NewResolver(
		overlay.WithExtensions(overlay.NewExtensionSet(cfg.Scan.Extensions...)),
		overlay.WithScanDepth(overlay.ScanDepth(cfg.Scan.Depth)),
	)
	s.extractor, err = plugin.NewCachingExtractor(plugin.NewESPExtractor(), cfg.Cache.ExtractionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create extraction cache: %w", err)
	}
	s.exclusions = exclude.NewFile(cfg.ExclusionListFile())
	return s, nil
}

// orchestrator builds a batch orchestrator reporting to r.
func (s *session) orchestrator(a *App, r batch.Reporter) (*batch.Orchestrator, error) {
	return batch.New(batch.Dependencies{
		Packages:  s.instance,
		Settings:  s.instance,
		Output:    s.instance,
		Resolver:  s.resolver,
		Validator: s.validator,
		Merger:    merge.NewMerger(s.extractor, s.logger),
	},
		batch.WithReporter(r),
		batch.WithLogger(s.logger),
		batch.WithClock(a.clock),
		batch.WithSubpath(s.cfg.Output.Subpath),
		batch.WithNamePrefix(s.cfg.Output.NamePrefix),
	)
}

// exclusionList loads the exclusion file merged with ad hoc entries.
func (s *session) exclusionList(extra []string) (exclude.List, error) {
	flagList, err := parseExclusionArgs(extra)
	if err != nil {
		return exclude.List{}, err
	}
	return batch.Exclusions(s.exclusions, flagList)
}

// configFilePath returns the config file dsdgen reads and `config init`
// writes.
func (a *App) configFilePath(flags *rootFlagValues) (string, error) {
	if flags.configPath != "" {
		return flags.configPath, nil
	}
	if a.configDir != "" {
		return filepath.Join(a.configDir, config.ConfigFileName+"."+config.ConfigFileExt), nil
	}
	return config.DefaultConfigPath()
}
