// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func press(m *confirmModel, msg tea.KeyMsg) *confirmModel {
	updated, _ := m.Update(msg)
	return updated.(*confirmModel)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewConfirmModel_Defaults(t *testing.T) {
	t.Parallel()

	m := newConfirmModel(ConfirmOptions{Title: "Proceed?"})
	if m.done || m.cancelled {
		t.Error("expected a fresh model to be neither done nor cancelled")
	}
	if m.affirmative != "Yes" || m.negative != "No" {
		t.Errorf("labels = %q/%q, want Yes/No", m.affirmative, m.negative)
	}
	if m.selection {
		t.Error("expected the negative answer to be preselected")
	}
}

func TestConfirmModel_Keys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		defaultYes bool
		keys       []tea.KeyMsg
		want       bool
	}{
		{"y accepts", false, []tea.KeyMsg{runes("y")}, true},
		{"n declines", true, []tea.KeyMsg{runes("n")}, false},
		{"enter keeps default yes", true, []tea.KeyMsg{{Type: tea.KeyEnter}}, true},
		{"enter keeps default no", false, []tea.KeyMsg{{Type: tea.KeyEnter}}, false},
		{"left selects yes", false, []tea.KeyMsg{{Type: tea.KeyLeft}, {Type: tea.KeyEnter}}, true},
		{"right selects no", true, []tea.KeyMsg{{Type: tea.KeyRight}, {Type: tea.KeyEnter}}, false},
		{"tab toggles", false, []tea.KeyMsg{{Type: tea.KeyTab}, {Type: tea.KeyEnter}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newConfirmModel(ConfirmOptions{Default: tt.defaultYes})
			for _, k := range tt.keys {
				m = press(m, k)
			}
			if !m.done {
				t.Fatal("expected model to be done")
			}
			got, err := m.Result()
			if err != nil {
				t.Fatalf("Result() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Result() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfirmModel_Cancel(t *testing.T) {
	t.Parallel()

	for _, k := range []tea.KeyMsg{{Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		t.Run(k.String(), func(t *testing.T) {
			t.Parallel()

			m := press(newConfirmModel(ConfirmOptions{Default: true}), k)
			if !m.done || !m.cancelled {
				t.Fatalf("done = %v cancelled = %v, want both", m.done, m.cancelled)
			}
			if _, err := m.Result(); !errors.Is(err, ErrCancelled) {
				t.Errorf("Result() error = %v, want ErrCancelled", err)
			}
		})
	}
}

func TestConfirmModel_View(t *testing.T) {
	t.Parallel()

	m := newConfirmModel(ConfirmOptions{Title: "Write 2 artifact(s)?", Description: "1 pair skipped", Affirmative: "Convert", Negative: "Cancel"})
	view := m.View()
	for _, want := range []string{"Write 2 artifact(s)?", "1 pair skipped", "Convert", "Cancel", "esc cancel"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}

	m = press(m, runes("y"))
	if m.View() != "" {
		t.Errorf("View() after answer = %q, want empty", m.View())
	}
}

func TestConfirm_ReadsKeysFromInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"y", true},
		{"n", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			got, err := NewConfirm().
				Title("Proceed?").
				Input(strings.NewReader(tt.input)).
				Output(&out).
				Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Run() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldUseAccessible_NonTerminalInput(t *testing.T) {
	t.Parallel()

	if IsTerminal(strings.NewReader("y\n")) {
		t.Error("IsTerminal() = true for a string reader")
	}
	if !ShouldUseAccessible(strings.NewReader("y\n")) {
		t.Error("ShouldUseAccessible() = false for a string reader")
	}
}
