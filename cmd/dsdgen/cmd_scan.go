// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/LightSofa/dsd-generator/internal/batch"
	"github.com/LightSofa/dsd-generator/internal/overlay"
	"github.com/LightSofa/dsd-generator/internal/pairing"
)

// planRecorder keeps the plan of a batch and declines it, turning a batch
// into a dry run.
type planRecorder struct {
	plan batch.Plan
}

func (r *planRecorder) Confirm(_ context.Context, plan batch.Plan) (bool, error) {
	r.plan = plan
	return false, nil
}

func (r *planRecorder) Progress(batch.Progress) {}

func newScanCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var excludes []string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List translation pairs and their verdicts without converting anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd.Context(), app, flags, excludes)
		},
	}
	cmd.Flags().StringArrayVarP(&excludes, "exclude", "x", nil, "exclusion entry: @id, package/ or file name (repeatable)")
	return cmd
}

func runScan(ctx context.Context, app *App, flags *rootFlagValues, excludes []string) error {
	s, err := app.newSession(ctx, flags, true)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}
	exclusions, err := s.exclusionList(excludes)
	if err != nil {
		renderError(app.stderr, err, s.verbose)
		return err
	}

	recorder := &planRecorder{}
	orch, err := s.orchestrator(app, recorder)
	if err != nil {
		return err
	}
	summary, err := orch.Run(ctx, batch.Request{Trigger: batch.TriggerInteractive, Exclusions: exclusions})
	if err != nil {
		renderError(app.stderr, err, s.verbose)
		return err
	}

	renderDiagnostics(app.stderr, summary.Diagnostics, s.verbose)
	printPlan(app.stdout, recorder.plan)
	fmt.Fprintln(app.stdout, VerboseStyle.Render(fmt.Sprintf(
		"packages %d, candidates %d, plausible %d, conflicts %d",
		summary.Packages, summary.Candidates, summary.Plausible, summary.Conflicts)))
	return nil
}

func printPlan(w io.Writer, plan batch.Plan) {
	if len(plan.Pairs) == 0 && len(plan.Skipped) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("No translation pairs found."))
		return
	}

	width := 0
	for _, p := range plan.Pairs {
		width = max(width, lipgloss.Width(string(p.RelativePath)))
	}
	for _, sp := range plan.Skipped {
		width = max(width, lipgloss.Width(string(sp.Pair.RelativePath)))
	}

	if len(plan.Pairs) > 0 {
		fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Translation pairs"), SubtitleStyle.Render("(would be written to "+plan.OutputName+")"))
		for _, p := range plan.Pairs {
			printPair(w, width, p, SuccessStyle.Render(pairing.VerdictPlausible.String()))
		}
	}
	if len(plan.Skipped) > 0 {
		fmt.Fprintln(w, TitleStyle.Render("Skipped candidates"))
		for _, sp := range plan.Skipped {
			printPair(w, width, sp.Pair, WarningStyle.Render(sp.Verdict.String()))
		}
	}
}

func printPair(w io.Writer, width int, p overlay.OverridePair, verdict string) {
	fmt.Fprintf(w, "  %-*s  %s %s %s  %s\n",
		width, p.RelativePath,
		CmdStyle.Render(p.OverridingPackage),
		SubtitleStyle.Render("overrides"),
		p.OriginalPackage,
		verdict)
}
