// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LightSofa/dsd-generator/internal/config"
	"github.com/LightSofa/dsd-generator/internal/issue"
)

// newConfigCommand creates the `dsdgen config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage dsdgen configuration",
		Long: `Manage dsdgen configuration.

Configuration is stored in:
  - Linux: ~/.config/dsdgen/config.cue
  - macOS: ~/Library/Application Support/dsdgen/config.cue
  - Windows: %APPDATA%\dsdgen\config.cue

Every value can be overridden with a DSDGEN_ environment variable, for
example DSDGEN_INSTANCE_DIR or DSDGEN_SCAN_DEPTH.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, flags)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(app, flags, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := app.configFilePath(flags)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlagValues) error {
	loaded, err := app.loadConfig(ctx, flags)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		var ae *issue.ActionableError
		if !errors.As(err, &ae) {
			if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render(issueStyle); renderErr == nil {
				fmt.Fprint(app.stderr, rendered)
			}
		}
		return err
	}

	source := loaded.Source
	if source == "" {
		source = "(using defaults)"
	}
	fmt.Fprintf(app.stdout, "%s %s\n\n", TitleStyle.Render("Config file:"), SubtitleStyle.Render(source))
	fmt.Fprint(app.stdout, config.GenerateCUE(loaded.Config))
	return nil
}

func initConfig(app *App, flags *rootFlagValues, force bool) error {
	path, err := app.configFilePath(flags)
	if err != nil {
		return err
	}
	written, err := config.CreateDefaultConfig(path, force)
	if err != nil {
		return err
	}
	if !written {
		fmt.Fprintf(app.stdout, "%s %s already exists (use --force to overwrite)\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
