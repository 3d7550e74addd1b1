// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LightSofa/dsd-generator/internal/batch"
	"github.com/LightSofa/dsd-generator/internal/config"
	"github.com/LightSofa/dsd-generator/internal/watch"
)

// topLevelWatchDepth registers mods/<package> and nothing deeper.
const topLevelWatchDepth = 2

// watchSession runs one batch per change. The output name is fixed when the
// session starts so every re-run refreshes the same package.
type watchSession struct {
	app        *App
	s          *session
	orch       *batch.Orchestrator
	outputName string
}

func newWatchSession(ctx context.Context, app *App, s *session) (*watchSession, error) {
	orch, err := s.orchestrator(app, newTerminalReporter(app.stdin, app.stdout, true, s.verbose))
	if err != nil {
		return nil, err
	}
	return &watchSession{app: app, s: s, orch: orch, outputName: orch.OutputName(ctx, "")}, nil
}

func (w *watchSession) runOnce(ctx context.Context) error {
	exclusions, err := w.s.exclusionList(nil)
	if err != nil {
		return err
	}
	summary, err := w.orch.Run(ctx, batch.Request{
		Trigger:        batch.TriggerAutonomous,
		Exclusions:     exclusions,
		OutputName:     w.outputName,
		SkipActivation: true,
	})
	if err != nil {
		return err
	}
	renderDiagnostics(w.app.stderr, summary.Diagnostics, w.s.verbose)
	printSummary(w.app.stdout, summary)
	return nil
}

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the conversion whenever the load order or plugins change",
		Long: `Run one batch, then watch the profile's modlist and the plugins of
every package and run again after changes settle.

Watch runs never ask for confirmation and never enable the output package.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), app, flags, debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-running")
	return cmd
}

func runWatch(ctx context.Context, app *App, flags *rootFlagValues, debounce time.Duration) error {
	s, err := app.newSession(ctx, flags, true)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}
	ws, err := newWatchSession(ctx, app, s)
	if err != nil {
		return err
	}

	recursive := s.cfg.Scan.Depth == config.ScanDepthRecursive
	maxDepth := topLevelWatchDepth
	if recursive {
		maxDepth = 0
	}
	w, err := watch.New(watch.Config{
		BaseDir:  s.instance.Root(),
		Patterns: watch.Patterns(s.instance.Profile(), s.cfg.Scan.Extensions, recursive),
		MaxDepth: maxDepth,
		Debounce: debounce,
		Logger:   s.logger,
		OnChange: func(ctx context.Context, _ []string) error {
			return ws.runOnce(ctx)
		},
	})
	if err != nil {
		return err
	}

	if err := ws.runOnce(ctx); err != nil {
		renderError(app.stderr, err, s.verbose)
		s.logger.Error("initial run failed", "err", err)
	}
	fmt.Fprintf(app.stdout, "%s %s %s\n",
		TitleStyle.Render("Watching"), CmdStyle.Render(s.instance.Root()), SubtitleStyle.Render("(Ctrl+C to stop)"))
	return w.Run(ctx)
}
