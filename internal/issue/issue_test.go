// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	ids := []Id{
		InstanceNotFoundId,
		ModListUnreadableId,
		ConfigLoadFailedId,
		SettingsInvalidId,
		OutputNotWritableId,
		PermissionDeniedId,
		NegativeCacheCorruptId,
		ExclusionFileUnreadableId,
		LocalizedPluginId,
		LaunchFailedId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	if InstanceNotFoundId != 1 {
		t.Errorf("InstanceNotFoundId = %d, want 1", InstanceNotFoundId)
	}
}

func TestIssue_MarkdownMsg(t *testing.T) {
	tests := []struct {
		id   Id
		want string
	}{
		{InstanceNotFoundId, "No mod manager instance found"},
		{ModListUnreadableId, "modlist.txt"},
		{ConfigLoadFailedId, "dsdgen config init --force"},
		{NegativeCacheCorruptId, "dsdgen cache clear"},
		{ExclusionFileUnreadableId, "@1234"},
	}

	for _, tt := range tests {
		issue := Get(tt.id)
		if issue == nil {
			t.Fatalf("Get(%d) returned nil", tt.id)
		}
		if !strings.Contains(string(issue.MarkdownMsg()), tt.want) {
			t.Errorf("issue %d MarkdownMsg() should contain %q", tt.id, tt.want)
		}
	}
}

func TestIssue_DocLinks_ReturnsClone(t *testing.T) {
	issue := Get(OutputNotWritableId)
	links := issue.DocLinks()
	if len(links) == 0 {
		t.Fatal("DocLinks() is empty")
	}
	links[0] = "mutated"
	if issue.DocLinks()[0] == "mutated" {
		t.Error("DocLinks() should return a copy")
	}
}

func TestGet_Unknown(t *testing.T) {
	if got := Get(Id(9999)); got != nil {
		t.Errorf("Get(9999) = %v, want nil", got)
	}
}

func TestValues_SortedById(t *testing.T) {
	values := Values()
	if len(values) != len(issues) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), len(issues))
	}
	for i := 1; i < len(values); i++ {
		if values[i-1].Id() >= values[i].Id() {
			t.Errorf("Values() not sorted at %d: %d >= %d", i, values[i-1].Id(), values[i].Id())
		}
	}
}

func TestAllIssuesHaveContent(t *testing.T) {
	for _, issue := range Values() {
		if strings.TrimSpace(string(issue.MarkdownMsg())) == "" {
			t.Errorf("issue %d has empty markdown", issue.Id())
		}
		if len(issue.DocLinks()) == 0 {
			t.Errorf("issue %d has no doc links", issue.Id())
		}
	}
}

func TestIssue_Render_AppendsLinks(t *testing.T) {
	original := render
	t.Cleanup(func() { render = original })

	var got string
	render = func(in, _ string) (string, error) {
		got = in
		return in, nil
	}

	issue := Get(LaunchFailedId)
	if _, err := issue.Render("notty"); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(got, "## See also") {
		t.Error("rendered markdown should contain a See also section")
	}
	if !strings.Contains(got, string(issue.DocLinks()[0])) {
		t.Error("rendered markdown should contain the doc link")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	for _, issue := range Values() {
		out, err := issue.Render("notty")
		if err != nil {
			t.Errorf("issue %d Render() error: %v", issue.Id(), err)
			continue
		}
		if out == "" {
			t.Errorf("issue %d rendered empty output", issue.Id())
		}
	}
}
