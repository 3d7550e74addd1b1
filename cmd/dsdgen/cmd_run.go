// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LightSofa/dsd-generator/internal/batch"
	"github.com/LightSofa/dsd-generator/internal/exclude"
	"github.com/LightSofa/dsd-generator/internal/issue"
	"github.com/LightSofa/dsd-generator/pkg/types"
)

type runFlagValues struct {
	yes        bool
	autonomous bool
	output     string
	report     string
	exclude    []string
}

func newRunCommand(app *App, flags *rootFlagValues) *cobra.Command {
	rf := &runFlagValues{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert translation plugins into string distributor configs",
		Long: `Run one batch over the active packages of the instance.

Every plugin that overrides a plugin of a lower-priority package with a
similar size is treated as a translation. The strings that differ are
written to <output>/` + batch.DefaultSubpath + `/<plugin>/<plugin>.json.

Interactive runs list the pairs and ask before converting. Autonomous
runs do not ask and enable the output package when anything was written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd.Context(), app, flags, rf)
		},
	}

	cmd.Flags().BoolVarP(&rf.yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&rf.autonomous, "autonomous", false, "run unattended and activate the output package")
	cmd.Flags().StringVarP(&rf.output, "output", "o", "", "output package name (default: output_name setting or a timestamped name)")
	cmd.Flags().StringVar(&rf.report, "report", "", "write a YAML batch report to this file")
	cmd.Flags().StringArrayVarP(&rf.exclude, "exclude", "x", nil, "exclusion entry: @id, package/ or file name (repeatable)")
	return cmd
}

func runBatch(ctx context.Context, app *App, flags *rootFlagValues, rf *runFlagValues) error {
	s, err := app.newSession(ctx, flags, true)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}
	exclusions, err := s.exclusionList(rf.exclude)
	if err != nil {
		renderError(app.stderr, err, s.verbose)
		return err
	}

	trigger := batch.TriggerInteractive
	if rf.autonomous {
		trigger = batch.TriggerAutonomous
	}
	orch, err := s.orchestrator(app, newTerminalReporter(app.stdin, app.stdout, rf.yes, s.verbose))
	if err != nil {
		return err
	}

	summary, err := orch.Run(ctx, batch.Request{
		Trigger:    trigger,
		Exclusions: exclusions,
		OutputName: rf.output,
	})
	if err != nil {
		var ae *issue.ActionableError
		if errors.As(err, &ae) && rf.autonomous {
			// Autonomous runs are started by the host; an unreadable load
			// order only means there is nothing to convert this time.
			s.logger.Error("batch aborted, nothing converted", "err", err)
			return nil
		}
		renderError(app.stderr, err, s.verbose)
		if ae != nil {
			return &ExitError{Code: types.ExitBatchAborted, Err: err}
		}
		return err
	}

	renderDiagnostics(app.stderr, summary.Diagnostics, s.verbose)
	printSummary(app.stdout, summary)
	if rf.report != "" {
		if err := writeReport(rf.report, summary); err != nil {
			return err
		}
	}
	if summary.Failed > 0 {
		return &ExitError{Code: types.ExitPartialFailure, Err: fmt.Errorf("%d of %d pair(s) failed", summary.Failed, summary.Merged+summary.Empty+summary.Failed)}
	}
	return nil
}

func printSummary(w io.Writer, s batch.Summary) {
	if n := s.ArtifactsProduced(); n > 0 {
		fmt.Fprintf(w, "%s Wrote %d artifact(s) to %s\n", SuccessStyle.Render("✓"), n, CmdStyle.Render(s.OutputDir))
	} else {
		fmt.Fprintln(w, SubtitleStyle.Render("No artifacts written."))
	}
	fmt.Fprintln(w, VerboseStyle.Render(fmt.Sprintf(
		"packages %d, candidates %d, plausible %d, conflicts %d, merged %d, empty %d, failed %d",
		s.Packages, s.Candidates, s.Plausible, s.Conflicts, s.Merged, s.Empty, s.Failed)))
	if s.Activated {
		fmt.Fprintf(w, "%s Activated %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(s.OutputName))
	}
}

// parseExclusionArgs reads --exclude values with the exclusion file syntax.
func parseExclusionArgs(args []string) (exclude.List, error) {
	if len(args) == 0 {
		return exclude.List{}, nil
	}
	return exclude.Parse(strings.NewReader(strings.Join(args, "\n")))
}
