// SPDX-License-Identifier: MPL-2.0

package batch

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/LightSofa/dsd-generator/internal/clock"
	"github.com/LightSofa/dsd-generator/internal/exclude"
	"github.com/LightSofa/dsd-generator/internal/host"
	"github.com/LightSofa/dsd-generator/internal/issue"
	"github.com/LightSofa/dsd-generator/internal/merge"
	"github.com/LightSofa/dsd-generator/internal/overlay"
	"github.com/LightSofa/dsd-generator/internal/pairing"
)

const (
	// DefaultSubpath is where the string distributor looks for artifacts.
	DefaultSubpath = "SKSE/Plugins/DynamicStringDistributor"
	// DefaultNamePrefix prefixes the timestamped default output name.
	DefaultNamePrefix = "DSD_Configs_"

	outputNameLayout = "06-01-02-15-04"
	metadataIDKey    = "modid"
)

type (
	// Dependencies are the collaborators of an Orchestrator. All are required.
	Dependencies struct {
		Packages  host.ContentPackageSource
		Settings  host.SettingsStore
		Output    host.OutputSink
		Resolver  *overlay.Resolver
		Validator *pairing.Validator
		Merger    *merge.Merger
	}

	// Orchestrator runs batches. A single Orchestrator must not run two
	// batches at once because they share the negative cache.
	Orchestrator struct {
		deps       Dependencies
		reporter   Reporter
		logger     *log.Logger
		clock      clock.Clock
		subpath    string
		namePrefix string
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// run carries the mutable state of one Run.
	run struct {
		req      Request
		settings host.Settings
		summary  *Summary
		logger   *log.Logger
		roots    map[string]string
		// written maps a lowercased plugin base name to the pair whose
		// artifact claimed it.
		written map[string]overlay.RelativePath
		// outputErr is set once creating the output package failed.
		outputErr error
	}
)

// WithReporter sets the confirmation and progress reporter.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock used for default output names.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithSubpath sets the slash-separated artifact directory inside the output
// package.
func WithSubpath(subpath string) Option {
	return func(o *Orchestrator) {
		if subpath != "" {
			o.subpath = subpath
		}
	}
}

// WithNamePrefix sets the prefix of the default output name.
func WithNamePrefix(prefix string) Option {
	return func(o *Orchestrator) {
		if prefix != "" {
			o.namePrefix = prefix
		}
	}
}

// New creates an Orchestrator.
func New(deps Dependencies, opts ...Option) (*Orchestrator, error) {
	var missing []string
	if deps.Packages == nil {
		missing = append(missing, "Packages")
	}
	if deps.Settings == nil {
		missing = append(missing, "Settings")
	}
	if deps.Output == nil {
		missing = append(missing, "Output")
	}
	if deps.Resolver == nil {
		missing = append(missing, "Resolver")
	}
	if deps.Validator == nil {
		missing = append(missing, "Validator")
	}
	if deps.Merger == nil {
		missing = append(missing, "Merger")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingDependency, missing)
	}

	o := &Orchestrator{
		deps:       deps,
		reporter:   NopReporter(),
		logger:     log.New(io.Discard),
		clock:      clock.Real{},
		subpath:    DefaultSubpath,
		namePrefix: DefaultNamePrefix,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes one batch. The returned error is non-nil only when packages
// cannot be enumerated, the resolver rejects its input, the reporter fails,
// or ctx is canceled; the Summary is populated as far as the batch got.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Summary, error) {
	if req.Trigger == "" {
		req.Trigger = TriggerInteractive
	}
	if valid, errs := req.Trigger.IsValid(); !valid {
		return Summary{}, errs[0]
	}
	if err := ctx.Err(); err != nil {
		return Summary{Trigger: req.Trigger}, err
	}

	summary := Summary{
		RunID:   ulid.Make().String(),
		Trigger: req.Trigger,
		State:   StateScanning,
	}
	r := &run{
		req:     req,
		summary: &summary,
		logger:  o.logger.With("run", summary.RunID),
		roots:   make(map[string]string),
		written: make(map[string]overlay.RelativePath),
	}
	r.settings = o.loadSettings(ctx, r)

	// Scanning
	pkgs, err := o.deps.Packages.ListActiveContentPackages(ctx)
	if err != nil {
		return summary, enumerationError(err)
	}
	slices.SortStableFunc(pkgs, func(a, b overlay.ContentPackage) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	pkgs = o.excludeByID(ctx, r, pkgs)
	for _, p := range pkgs {
		r.roots[p.Name] = p.Root
	}
	summary.Packages = len(pkgs)

	// Resolving
	summary.State = StateResolving
	filter := overlay.NewFilter(req.Exclusions.PackageNames, req.Exclusions.FileNames)
	res, err := o.deps.Resolver.Resolve(ctx, pkgs, filter)
	if err != nil {
		return summary, fmt.Errorf("resolve overrides: %w", err)
	}
	summary.Diagnostics = append(summary.Diagnostics, res.Diagnostics...)
	summary.Candidates = len(res.Pairs)

	plausible, skipped := o.plausiblePairs(r, res.Pairs)
	pairs, conflicts := ResolveConflicts(plausible)
	summary.Plausible = len(plausible)
	summary.Conflicts = conflicts
	summary.OutputName = o.outputName(r)

	if req.Trigger == TriggerInteractive {
		ok, err := o.reporter.Confirm(ctx, Plan{OutputName: summary.OutputName, Pairs: slices.Clone(pairs), Skipped: skipped})
		if err != nil {
			return summary, fmt.Errorf("confirm batch: %w", err)
		}
		if !ok {
			r.logger.Info("batch declined", "pairs", len(pairs))
			summary.State = StateDone
			return summary, nil
		}
	}

	// Merging
	summary.State = StateMerging
	showProgress := req.Trigger == TriggerInteractive || r.settings.ShowProgress
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome := o.processPair(ctx, r, pair)
		if showProgress {
			o.reporter.Progress(Progress{Done: i + 1, Total: len(pairs), Pair: pair, Outcome: outcome})
		}
	}

	// Finalizing
	summary.State = StateFinalizing
	if req.Trigger == TriggerAutonomous && !req.SkipActivation && len(summary.Artifacts) > 0 {
		if err := o.deps.Output.ActivateOutputLocation(ctx, summary.OutputName); err != nil {
			r.warn(CodeActivationFailed, "could not activate output package", summary.OutputName, err)
		} else {
			summary.Activated = true
		}
	}

	r.logger.Info("batch finished",
		"trigger", summary.Trigger,
		"pairs", len(pairs),
		"artifacts", len(summary.Artifacts),
		"empty", summary.Empty,
		"failed", summary.Failed)
	summary.State = StateDone
	return summary, nil
}

func (o *Orchestrator) loadSettings(ctx context.Context, r *run) host.Settings {
	s, err := o.deps.Settings.Settings(ctx)
	if err != nil {
		r.warn(CodeSettingsUnreadable, "using default settings", "", err)
		return host.DefaultSettings()
	}
	return s
}

func enumerationError(err error) error {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}
	return issue.NewErrorContext().
		WithOperation("list content packages").
		WithIssue(issue.ModListUnreadableId).
		Wrap(err).
		BuildError()
}

// excludeByID drops packages whose external id is excluded. Metadata is only
// read when the exclusion list names ids.
func (o *Orchestrator) excludeByID(ctx context.Context, r *run, pkgs []overlay.ContentPackage) []overlay.ContentPackage {
	if len(r.req.Exclusions.PackageIDs) == 0 {
		return pkgs
	}

	kept := make([]overlay.ContentPackage, 0, len(pkgs))
	for _, p := range pkgs {
		if p.ExternalID == "" {
			meta, err := o.deps.Packages.PackageMetadata(ctx, p.Name)
			if err != nil {
				r.warn(CodeMetadataUnreadable, "could not read package metadata", p.Root, err)
			}
			p.ExternalID = meta[metadataIDKey]
		}
		if r.req.Exclusions.ExcludesID(p.ExternalID) {
			r.logger.Info("excluding package by id", "package", p.Name, "id", p.ExternalID)
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func (o *Orchestrator) plausiblePairs(r *run, pairs []overlay.OverridePair) ([]overlay.OverridePair, []SkippedPair) {
	var (
		out     []overlay.OverridePair
		skipped []SkippedPair
	)
	for _, pair := range pairs {
		verdict, err := o.deps.Validator.Check(pair.OriginalPath, pair.OverridePath)
		switch verdict {
		case pairing.VerdictPlausible:
			out = append(out, pair)
			continue
		case pairing.VerdictUnreadable:
			r.warn(CodePairUnreadable, "skipping unreadable pair", pair.OverridePath, err)
		default:
			r.logger.Debug("skipping pair", "path", pair.OverridePath, "original", pair.OriginalPath, "verdict", verdict)
		}
		skipped = append(skipped, SkippedPair{Pair: pair, Verdict: verdict})
	}
	return out, skipped
}

// ResolveConflicts keeps one pair per relative path: the one whose overriding
// package has the highest priority. The survivor takes the position of the
// first pair seen for its path. It returns the kept pairs and the number
// dropped.
func ResolveConflicts(pairs []overlay.OverridePair) ([]overlay.OverridePair, int) {
	index := make(map[string]int, len(pairs))
	out := make([]overlay.OverridePair, 0, len(pairs))
	dropped := 0
	for _, pair := range pairs {
		key := pair.RelativePath.Key()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, pair)
			continue
		}
		dropped++
		if pair.OverridingPriority > out[i].OverridingPriority {
			out[i] = pair
		}
	}
	return out, dropped
}

// OutputName returns the output package name a run requesting requested
// would use at this moment. Callers that run repeatedly pass the result as
// Request.OutputName so every run writes into the same package instead of a
// new timestamped one.
func (o *Orchestrator) OutputName(ctx context.Context, requested string) string {
	settings, err := o.deps.Settings.Settings(ctx)
	if err != nil {
		settings = host.DefaultSettings()
	}
	return o.resolveOutputName(requested, settings)
}

func (o *Orchestrator) outputName(r *run) string {
	return o.resolveOutputName(r.req.OutputName, r.settings)
}

func (o *Orchestrator) resolveOutputName(requested string, s host.Settings) string {
	switch {
	case requested != "":
		return requested
	case s.OutputName != "":
		return s.OutputName
	default:
		return o.namePrefix + o.clock.Now().Format(outputNameLayout)
	}
}

func (o *Orchestrator) processPair(ctx context.Context, r *run, pair overlay.OverridePair) PairOutcome {
	outcome, err := o.deps.Merger.Merge(ctx, pair.OverridePath, pair.OriginalPath)
	if err != nil {
		r.summary.Failed++
		r.warn(CodeExtractionFailed, "skipping pair, extraction failed", pair.OverridePath, err)
		return PairFailed
	}

	if outcome.Kind() == merge.OutcomeEmpty {
		r.summary.Empty++
		r.logger.Debug("no translated records", "path", pair.OverridePath, "original", pair.OriginalPath)
		if err := o.deps.Validator.RecordRejection(pair.OriginalPath, pair.OverridePath); err != nil {
			r.warn(CodeNegativeCacheFailed, "could not record rejected pair", pair.OverridePath, err)
		}
		return PairEmpty
	}

	artifact, err := o.writeArtifact(ctx, r, pair, outcome.Records)
	if err != nil {
		r.summary.Failed++
		return PairFailed
	}
	if r.settings.CopyToSource {
		artifact.CopiedTo = o.copyToSource(r, pair, artifact.Path)
	}
	r.summary.Merged++
	r.summary.Artifacts = append(r.summary.Artifacts, artifact)
	r.logger.Info("wrote artifact", "path", artifact.Path, "records", artifact.Records)
	return PairMerged
}

// warn records a warning diagnostic and logs it.
func (r *run) warn(code, msg, path string, err error) {
	r.summary.Diagnostics = append(r.summary.Diagnostics, overlay.Diagnostic{
		Severity: overlay.SeverityWarning,
		Code:     code,
		Message:  msg,
		Path:     path,
		Cause:    err,
	})
	r.logger.Warn(msg, "code", code, "path", path, "err", err)
}

// DiagnosticsWithCode returns the diagnostics with the given code.
func DiagnosticsWithCode(diags []overlay.Diagnostic, code string) []overlay.Diagnostic {
	var out []overlay.Diagnostic
	for _, d := range diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Exclusions is a convenience for loading an exclusion file and merging ad
// hoc entries, such as command line flags.
func Exclusions(file *exclude.File, extra exclude.List) (exclude.List, error) {
	if file == nil {
		return extra, nil
	}
	list, err := file.Load()
	if err != nil {
		return extra, issue.NewErrorContext().
			WithOperation("read exclusion list").
			WithResource(file.Path()).
			WithIssue(issue.ExclusionFileUnreadableId).
			Wrap(err).
			BuildError()
	}
	return list.Merge(extra), nil
}
