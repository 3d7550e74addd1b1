// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LightSofa/dsd-generator/internal/host"
)

func newSettingsCommand(app *App, flags *rootFlagValues) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the per-instance settings",
		Long: `Show or change the settings stored in the instance's ` + host.SettingsFileName + `.

Keys:
  auto_run        convert before ` + "`dsdgen launch`" + ` starts the trigger executable
  show_progress   print per-pair progress during autonomous runs
  copy_to_source  also copy each artifact next to its translation and hide it
  output_name     fixed output package name (empty: timestamped name)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showSettings(cmd.Context(), app, flags)
		},
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showSettings(cmd.Context(), app, flags)
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change one setting",
		Args:      cobra.ExactArgs(2),
		ValidArgs: host.SettingKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setSetting(cmd.Context(), app, flags, args[0], args[1])
		},
	})

	return settingsCmd
}

func showSettings(ctx context.Context, app *App, flags *rootFlagValues) error {
	s, err := app.newSession(ctx, flags, true)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}
	settings, err := s.instance.Settings(ctx)
	if err != nil {
		renderError(app.stderr, err, s.verbose)
		s.logger.Warn("showing default settings", "err", err)
	}

	fmt.Fprintf(app.stdout, "%s %s\n", TitleStyle.Render("Settings"), SubtitleStyle.Render(s.instance.SettingsPath()))
	for _, key := range host.SettingKeys() {
		value, _ := settings.Get(key)
		if value == "" {
			value = SubtitleStyle.Render("(unset)")
		} else {
			value = SuccessStyle.Render(value)
		}
		fmt.Fprintf(app.stdout, "  %s: %s\n", CmdStyle.Render(key), value)
	}
	return nil
}

func setSetting(ctx context.Context, app *App, flags *rootFlagValues, key, value string) error {
	s, err := app.newSession(ctx, flags, true)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}
	// A corrupt file is replaced; the defaults stand in for its values.
	settings, err := s.instance.Settings(ctx)
	if err != nil {
		s.logger.Warn("replacing unreadable settings", "path", s.instance.SettingsPath(), "err", err)
	}
	if err := settings.Set(key, value); err != nil {
		return err
	}
	if err := s.instance.SaveSettings(ctx, settings); err != nil {
		renderError(app.stderr, err, s.verbose)
		return err
	}

	stored, _ := settings.Get(key)
	fmt.Fprintf(app.stdout, "%s %s = %q\n", SuccessStyle.Render("✓"), CmdStyle.Render(strings.ToLower(key)), stored)
	return nil
}
