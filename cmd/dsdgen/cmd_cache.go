// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the rejected pair cache",
		Long: `Pairs that produced no translated strings are remembered and skipped
by later runs until the original or the translation changes on disk.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List originals with rejected translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showCache(cmd.Context(), app, flags)
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every rejected pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return clearCache(cmd.Context(), app, flags)
		},
	})

	return cacheCmd
}

func showCache(ctx context.Context, app *App, flags *rootFlagValues) error {
	s, err := app.newSession(ctx, flags, true)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}

	fmt.Fprintf(app.stdout, "%s %s\n", TitleStyle.Render("Rejected pairs"), SubtitleStyle.Render(s.cache.Path()))
	doc := s.cache.Snapshot()
	names := s.cache.Names()
	if len(names) == 0 {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none)"))
		return nil
	}
	for _, name := range names {
		fmt.Fprintf(app.stdout, "  %s %s\n", CmdStyle.Render(name),
			SubtitleStyle.Render(fmt.Sprintf("%d translation(s)", len(doc[name].Translations))))
	}
	return nil
}

func clearCache(ctx context.Context, app *App, flags *rootFlagValues) error {
	s, err := app.newSession(ctx, flags, true)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}
	if err := s.cache.Clear(); err != nil {
		return fmt.Errorf("clear %s: %w", s.cache.Path(), err)
	}
	fmt.Fprintf(app.stdout, "%s Cleared %s\n", SuccessStyle.Render("✓"), s.cache.Path())
	return nil
}
