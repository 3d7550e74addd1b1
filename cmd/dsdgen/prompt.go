// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/LightSofa/dsd-generator/internal/batch"
	"github.com/LightSofa/dsd-generator/internal/tui"
)

// planPreviewLimit caps how many pairs Confirm lists outside verbose mode.
const planPreviewLimit = 20

// terminalReporter asks for confirmation and prints one line per processed
// pair. On a terminal the question is a TUI prompt; any other input is read
// as a y/N line.
type terminalReporter struct {
	in         io.Reader
	lines      *bufio.Reader
	out        io.Writer
	assumeYes  bool
	verbose    bool
	accessible bool
}

func newTerminalReporter(in io.Reader, out io.Writer, assumeYes, verbose bool) *terminalReporter {
	return &terminalReporter{
		in:         in,
		lines:      bufio.NewReader(in),
		out:        out,
		assumeYes:  assumeYes,
		verbose:    verbose,
		accessible: tui.ShouldUseAccessible(in),
	}
}

func (r *terminalReporter) Confirm(ctx context.Context, plan batch.Plan) (bool, error) {
	if len(plan.Pairs) == 0 {
		fmt.Fprintln(r.out, SubtitleStyle.Render("No translation pairs found."))
		return false, nil
	}

	fmt.Fprintf(r.out, "%s %d translation pair(s) into %s\n",
		TitleStyle.Render("Converting"), len(plan.Pairs), CmdStyle.Render(plan.OutputName))
	for i, p := range plan.Pairs {
		if !r.verbose && i == planPreviewLimit {
			fmt.Fprintf(r.out, "  %s\n", SubtitleStyle.Render(fmt.Sprintf("... and %d more", len(plan.Pairs)-i)))
			break
		}
		fmt.Fprintf(r.out, "  %s %s %s\n", p.RelativePath, SubtitleStyle.Render("from"), p.OverridingPackage)
	}

	if r.assumeYes {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !r.accessible {
		return r.confirmInteractive(ctx, plan)
	}
	fmt.Fprint(r.out, "Proceed? [y/N] ")
	line, err := r.lines.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (r *terminalReporter) confirmInteractive(ctx context.Context, plan batch.Plan) (bool, error) {
	prompt := tui.NewConfirm().
		Title(fmt.Sprintf("Convert %d translation pair(s) into %s?", len(plan.Pairs), plan.OutputName)).
		Affirmative("Convert").
		Negative("Cancel").
		Input(r.in).
		Output(r.out)
	if n := len(plan.Skipped); n > 0 {
		prompt.Description(fmt.Sprintf("%d candidate pair(s) skipped", n))
	}
	ok, err := prompt.Run(ctx)
	if errors.Is(err, tui.ErrCancelled) {
		return false, nil
	}
	return ok, err
}

func (r *terminalReporter) Progress(p batch.Progress) {
	fmt.Fprintf(r.out, "  %s [%d/%d] %s %s\n",
		outcomeMarker(p.Outcome), p.Done, p.Total, p.Pair.RelativePath, SubtitleStyle.Render(p.Pair.OverridingPackage))
}
