// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/shell"

	"github.com/LightSofa/dsd-generator/internal/batch"
	"github.com/LightSofa/dsd-generator/internal/host"
	"github.com/LightSofa/dsd-generator/internal/issue"
	"github.com/LightSofa/dsd-generator/pkg/types"
)

func newLaunchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "launch [-- command [args...]]",
		Short: "Start the game, converting first when auto_run is on",
		Long: `Start a program through the instance.

When the program is the configured trigger executable and the auto_run
setting is on, an autonomous batch runs first and the output package is
enabled before the program starts. A failing batch never blocks the launch.

Without arguments the launch.command from the config file is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd.Context(), app, flags, args)
		},
	}
}

func runLaunch(ctx context.Context, app *App, flags *rootFlagValues, args []string) error {
	s, err := app.newSession(ctx, flags, true)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}

	argv := args
	if len(argv) == 0 {
		if argv, err = shell.Fields(s.cfg.Launch.Command, nil); err != nil {
			return fmt.Errorf("parse launch.command: %w", err)
		}
	}
	if len(argv) == 0 {
		err := issue.NewErrorContext().
			WithOperation("launch").
			WithSuggestion("Pass the command after --, e.g. dsdgen launch -- skse64_loader.exe").
			WithSuggestion("Or set launch.command in the config file (see `dsdgen config path`)").
			Wrap(host.ErrEmptyCommand).
			BuildError()
		renderError(app.stderr, err, s.verbose)
		return err
	}

	s.instance.RegisterPreLaunchHook(s.autoRunHook(app))
	code, err := s.instance.Launch(ctx, argv)
	if err != nil {
		renderError(app.stderr, err, s.verbose)
		return err
	}
	exit := types.ExitCode(code)
	if exit.IsSuccess() {
		return nil
	}
	// Windows status codes such as 0xC0000005 do not fit a POSIX exit code.
	if exit.Validate() != nil {
		exit = types.ExitFailure
	}
	return &ExitError{Code: exit, Err: fmt.Errorf("%s exited with status %d", argv[0], code)}
}

// autoRunHook converts translations before the trigger executable starts.
func (s *session) autoRunHook(app *App) host.PreLaunchHook {
	return func(ctx context.Context, executable string) error {
		trigger := s.cfg.Launch.TriggerExecutable
		if trigger == "" || !strings.EqualFold(executableBase(executable), trigger) {
			return nil
		}
		settings, err := s.instance.Settings(ctx)
		if err != nil {
			s.logger.Warn("using default settings", "err", err)
		}
		if !settings.AutoRun {
			s.logger.Debug("auto_run is off, skipping conversion", "executable", executable)
			return nil
		}

		exclusions, err := s.exclusionList(nil)
		if err != nil {
			return err
		}
		orch, err := s.orchestrator(app, newTerminalReporter(app.stdin, app.stdout, true, s.verbose))
		if err != nil {
			return err
		}
		summary, err := orch.Run(ctx, batch.Request{Trigger: batch.TriggerAutonomous, Exclusions: exclusions})
		if err != nil {
			return err
		}
		renderDiagnostics(app.stderr, summary.Diagnostics, s.verbose)
		printSummary(app.stdout, summary)
		return nil
	}
}

// executableBase returns the file name of a launch target written with
// either path separator.
func executableBase(exe string) string {
	if i := strings.LastIndexAny(exe, `/\`); i >= 0 {
		return exe[i+1:]
	}
	return exe
}
