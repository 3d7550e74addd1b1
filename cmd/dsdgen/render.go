// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/LightSofa/dsd-generator/internal/issue"
	"github.com/LightSofa/dsd-generator/internal/overlay"
)

// issueStyle is the glamour style used for catalog guidance.
const issueStyle = "dark"

// renderError prints the suggestions of an actionable error and the matching
// catalog guidance. The error line itself is printed by fang.
func renderError(w io.Writer, err error, verbose bool) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return
	}
	if ae.HasSuggestions() || verbose {
		fmt.Fprintln(w, ae.Format(verbose))
	}
	if ae.IssueID == 0 {
		return
	}
	entry := issue.Get(ae.IssueID)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render(issueStyle)
	if renderErr != nil {
		fmt.Fprintf(w, "%s could not render guidance: %v\n", WarningStyle.Render("!"), renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}

// renderDiagnostics prints non-fatal findings. Causes are shown in verbose
// mode only.
func renderDiagnostics(w io.Writer, diags []overlay.Diagnostic, verbose bool) {
	for _, d := range diags {
		marker := WarningStyle.Render("⚠")
		if d.Severity == overlay.SeverityError {
			marker = ErrorStyle.Render("✗")
		}
		line := fmt.Sprintf("%s %s %s", marker, VerboseStyle.Render(d.Code), d.Message)
		if d.Path != "" {
			line += " " + CmdStyle.Render(d.Path)
		}
		if verbose && d.Cause != nil {
			line += VerboseStyle.Render(": " + d.Cause.Error())
		}
		fmt.Fprintln(w, line)
	}
}
