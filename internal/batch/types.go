// SPDX-License-Identifier: MPL-2.0

package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/LightSofa/dsd-generator/internal/exclude"
	"github.com/LightSofa/dsd-generator/internal/overlay"
	"github.com/LightSofa/dsd-generator/internal/pairing"
)

const (
	// TriggerInteractive runs after user confirmation and never activates output.
	TriggerInteractive Trigger = "interactive"
	// TriggerAutonomous runs unattended, e.g. before the game launches.
	TriggerAutonomous Trigger = "autonomous"

	StateScanning   State = "scanning"
	StateResolving  State = "resolving"
	StateMerging    State = "merging"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"

	// PairMerged means an artifact was written for the pair.
	PairMerged PairOutcome = "merged"
	// PairEmpty means the pair had no translated records.
	PairEmpty PairOutcome = "empty"
	// PairFailed means extraction or writing failed.
	PairFailed PairOutcome = "failed"
)

// Diagnostic codes emitted by the orchestrator.
const (
	CodeSettingsUnreadable   = "settings_unreadable"
	CodeMetadataUnreadable   = "package_metadata_unreadable"
	CodePairUnreadable       = "pair_unreadable"
	CodeExtractionFailed     = "extraction_failed"
	CodeArtifactWriteFailed  = "artifact_write_failed"
	CodeArtifactCollision    = "artifact_name_collision"
	CodeNegativeCacheFailed  = "negative_cache_write_failed"
	CodeCopyToSourceSkipped  = "copy_to_source_skipped"
	CodeCopyToSourceFailed   = "copy_to_source_failed"
	CodeActivationFailed     = "activation_failed"
	CodeOutputLocationFailed = "output_location_failed"
)

var (
	// ErrInvalidTrigger is the sentinel wrapped by InvalidTriggerError.
	ErrInvalidTrigger = errors.New("invalid trigger")
	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("missing batch dependency")
)

type (
	// Trigger identifies who started the batch.
	Trigger string

	// State is a batch state-machine state.
	State string

	// PairOutcome is what happened to one pair during merging.
	PairOutcome string

	// InvalidTriggerError is returned for unknown Trigger values.
	InvalidTriggerError struct {
		Value Trigger
	}

	// Request parameterizes one Run.
	Request struct {
		Trigger Trigger
		// Exclusions filter packages by id or name and plugins by file name.
		Exclusions exclude.List
		// OutputName overrides the output_name setting.
		OutputName string
		// SkipActivation suppresses activation even for autonomous runs.
		SkipActivation bool
	}

	// Plan is shown to the user before an interactive batch merges anything.
	Plan struct {
		OutputName string
		Pairs      []overlay.OverridePair
		// Skipped holds the candidates the validator turned down.
		Skipped []SkippedPair
	}

	// SkippedPair is a candidate pair left out of the plan.
	SkippedPair struct {
		Pair    overlay.OverridePair
		Verdict pairing.Verdict
	}

	// Progress is reported after each pair.
	Progress struct {
		Done    int
		Total   int
		Pair    overlay.OverridePair
		Outcome PairOutcome
	}

	// Reporter is the confirmation and progress surface of the host UI.
	Reporter interface {
		// Confirm is called once per interactive batch, after resolving.
		// Returning false ends the batch without merging.
		Confirm(ctx context.Context, plan Plan) (bool, error)
		Progress(p Progress)
	}

	// Artifact describes one written output file.
	Artifact struct {
		RelativePath overlay.RelativePath `json:"relative_path" yaml:"relative_path"`
		Translation  string               `json:"translation" yaml:"translation"`
		Original     string               `json:"original" yaml:"original"`
		Path         string               `json:"path" yaml:"path"`
		Records      int                  `json:"records" yaml:"records"`
		// CopiedTo is set when the artifact was also copied next to the
		// translation plugin.
		CopiedTo string `json:"copied_to,omitempty" yaml:"copied_to,omitempty"`
	}

	// Summary is the result of one Run.
	Summary struct {
		RunID      string  `json:"run_id" yaml:"run_id"`
		Trigger    Trigger `json:"trigger" yaml:"trigger"`
		State      State   `json:"state" yaml:"state"`
		OutputName string  `json:"output_name" yaml:"output_name"`
		OutputDir  string  `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
		// Packages is the number of packages after id exclusion.
		Packages int `json:"packages" yaml:"packages"`
		// Candidates is the number of override pairs found.
		Candidates int `json:"candidates" yaml:"candidates"`
		// Plausible counts pairs accepted by the validator.
		Plausible int `json:"plausible" yaml:"plausible"`
		// Conflicts counts plausible pairs dropped for a higher-priority pair
		// on the same relative path.
		Conflicts   int                  `json:"conflicts" yaml:"conflicts"`
		Merged      int                  `json:"merged" yaml:"merged"`
		Empty       int                  `json:"empty" yaml:"empty"`
		Failed      int                  `json:"failed" yaml:"failed"`
		Activated   bool                 `json:"activated" yaml:"activated"`
		Artifacts   []Artifact           `json:"artifacts" yaml:"artifacts"`
		Diagnostics []overlay.Diagnostic `json:"-" yaml:"-"`
	}

	nopReporter struct{}
)

// NopReporter confirms every batch and ignores progress.
func NopReporter() Reporter { return nopReporter{} }

func (nopReporter) Confirm(context.Context, Plan) (bool, error) { return true, nil }

func (nopReporter) Progress(Progress) {}

// IsValid returns whether the Trigger is recognized.
func (t Trigger) IsValid() (bool, []error) {
	switch t {
	case TriggerInteractive, TriggerAutonomous:
		return true, nil
	default:
		return false, []error{&InvalidTriggerError{Value: t}}
	}
}

func (e *InvalidTriggerError) Error() string {
	return fmt.Sprintf("invalid trigger %q (valid: interactive, autonomous)", e.Value)
}

func (e *InvalidTriggerError) Unwrap() error { return ErrInvalidTrigger }

// ArtifactsProduced returns the number of artifacts written.
func (s Summary) ArtifactsProduced() int { return len(s.Artifacts) }
