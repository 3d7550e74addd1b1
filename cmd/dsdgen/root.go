// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/LightSofa/dsd-generator/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the dsdgen command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	root := &cobra.Command{
		Use:   "dsdgen",
		Short: "Generate Dynamic String Distributor configs from translation plugins",
		Long: TitleStyle.Render("dsdgen") + SubtitleStyle.Render(" - translation plugins to string distributor configs") + `

dsdgen finds translation plugins that override an original plugin in a
mod manager instance, extracts the strings that actually changed and
writes them as Dynamic String Distributor JSON files into one output
package. The translation plugins can then be disabled.

` + SubtitleStyle.Render("Examples:") + `
  dsdgen run --instance ~/MO2/Skyrim     Convert every plausible pair
  dsdgen scan                            Show pairs without converting
  dsdgen launch                          Convert if auto_run is on, then start the game
  dsdgen watch                           Re-run when the load order changes`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is <config dir>/dsdgen/config.cue)")
	pf.StringVar(&flags.instanceDir, "instance", "", "mod manager instance directory")
	pf.StringVar(&flags.profile, "profile", "", "profile whose modlist defines the load order")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging and full error chains")

	root.AddCommand(
		newRunCommand(app, flags),
		newScanCommand(app, flags),
		newLaunchCommand(app, flags),
		newWatchCommand(app, flags),
		newSettingsCommand(app, flags),
		newCacheCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return root
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command tree and exits with the resulting code.
func Execute() {
	app := NewApp(Dependencies{})
	root := NewRootCommand(app)

	err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	os.Exit(int(exitCodeFor(err)))
}

// exitCodeFor maps a command error to the process exit code.
func exitCodeFor(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return types.ExitFailure
}
