// SPDX-License-Identifier: MPL-2.0

package plugin_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LightSofa/dsd-generator/internal/plugin"
	"github.com/LightSofa/dsd-generator/internal/plugin/plugintest"

	"github.com/google/go-cmp/cmp"
)

func extract(t *testing.T, path string) []plugin.TextRecord {
	t.Helper()
	recs, err := plugin.NewESPExtractor().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	return recs
}

func TestESPExtractor_Basic(t *testing.T) {
	p := plugintest.Plugin{
		Masters: []string{"Skyrim.esm"},
		Records: []plugintest.Record{
			{Type: "WEAP", FormID: 0x00012EB7, EditorID: "IronSword", Fields: []plugintest.Field{
				plugintest.Text("FULL", "Iron Sword"),
				plugintest.Raw("DATA", []byte{1, 2, 3, 4}),
				plugintest.Text("DESC", "A sturdy blade."),
			}},
			{Type: "WEAP", FormID: 0x01000800, EditorID: "NewBlade", Fields: []plugintest.Field{
				plugintest.Text("FULL", "New Blade"),
			}},
			{Type: "INFO", FormID: 0x01000801, Fields: []plugintest.Field{
				plugintest.Text("NAM1", "First line."),
				plugintest.Text("NAM1", "Second line."),
			}},
			{Type: "GLOB", FormID: 0x01000802, EditorID: "NoText", Fields: []plugintest.Field{
				plugintest.Raw("FLTV", []byte{0, 0, 0, 0}),
			}},
		},
	}
	path := p.Write(t, t.TempDir(), "Mod.esp")

	want := []plugin.TextRecord{
		{FormID: "0x012eb7|Skyrim.esm", EditorID: "IronSword", RecordType: "WEAP FULL", OriginalString: "Iron Sword", Status: plugin.StatusUntranslated},
		{FormID: "0x012eb7|Skyrim.esm", EditorID: "IronSword", RecordType: "WEAP DESC", OriginalString: "A sturdy blade.", Status: plugin.StatusUntranslated},
		{FormID: "0x000800|Mod.esp", EditorID: "NewBlade", RecordType: "WEAP FULL", OriginalString: "New Blade", Status: plugin.StatusUntranslated},
		{FormID: "0x000801|Mod.esp", RecordType: "INFO NAM1", Index: 0, OriginalString: "First line.", Status: plugin.StatusUntranslated},
		{FormID: "0x000801|Mod.esp", RecordType: "INFO NAM1", Index: 1, OriginalString: "Second line.", Status: plugin.StatusUntranslated},
	}
	if diff := cmp.Diff(want, extract(t, path)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestESPExtractor_CompressedAndLargeFields(t *testing.T) {
	long := strings.Repeat("x", 70_000)
	p := plugintest.Plugin{Records: []plugintest.Record{
		{Type: "BOOK", FormID: 0x00000D00, EditorID: "Tome", Compressed: true, Fields: []plugintest.Field{
			plugintest.Text("FULL", "Tome of Testing"),
			plugintest.Text("DESC", long),
		}},
	}}
	recs := extract(t, p.Write(t, t.TempDir(), "Books.esp"))

	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].OriginalString != "Tome of Testing" {
		t.Errorf("FULL = %q", recs[0].OriginalString)
	}
	if recs[1].OriginalString != long {
		t.Errorf("DESC length = %d, want %d", len(recs[1].OriginalString), len(long))
	}
}

func TestESPExtractor_Windows1252Fallback(t *testing.T) {
	p := plugintest.Plugin{Records: []plugintest.Record{
		{Type: "MISC", FormID: 0x00000900, Fields: []plugintest.Field{
			// "Café" encoded as Windows-1252.
			plugintest.Raw("FULL", []byte{'C', 'a', 'f', 0xE9, 0}),
		}},
	}}
	recs := extract(t, p.Write(t, t.TempDir(), "Legacy.esp"))
	if len(recs) != 1 || recs[0].OriginalString != "Café" {
		t.Errorf("records = %+v, want Café", recs)
	}
}

func TestESPExtractor_Failures(t *testing.T) {
	dir := t.TempDir()

	localized := plugintest.Plugin{Localized: true}.Write(t, dir, "Localized.esp")

	garbage := filepath.Join(dir, "garbage.esp")
	if err := os.WriteFile(garbage, []byte("this is not a plugin file at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	full := plugintest.Plugin{Records: []plugintest.Record{
		{Type: "MISC", FormID: 0x900, Fields: []plugintest.Field{plugintest.Text("FULL", "Coin")}},
	}}.Bytes()
	truncated := filepath.Join(dir, "truncated.esp")
	if err := os.WriteFile(truncated, full[:len(full)-3], 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		reason string
	}{
		{"missing", filepath.Join(dir, "missing.esp"), plugin.ReasonUnreadable},
		{"localized", localized, plugin.ReasonLocalized},
		{"not a plugin", garbage, plugin.ReasonNotAPlugin},
		{"truncated", truncated, plugin.ReasonTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plugin.NewESPExtractor().Extract(context.Background(), tt.path)
			var xerr *plugin.ExtractionError
			if !errors.As(err, &xerr) {
				t.Fatalf("Extract() error = %v, want *ExtractionError", err)
			}
			if xerr.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", xerr.Reason, tt.reason)
			}
			if !errors.Is(err, plugin.ErrExtraction) {
				t.Error("error should wrap ErrExtraction")
			}
		})
	}
}

func TestESPExtractor_Canceled(t *testing.T) {
	p := plugintest.Plugin{Records: []plugintest.Record{
		{Type: "MISC", FormID: 0x900, Fields: []plugintest.Field{plugintest.Text("FULL", "Coin")}},
	}}
	path := p.Write(t, t.TempDir(), "Coins.esp")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := plugin.NewESPExtractor().Extract(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want context.Canceled", err)
	}
}

func TestTextRecord_Key(t *testing.T) {
	r := plugin.TextRecord{FormID: "0x00ABCD|Skyrim.ESM", EditorID: "Ed", RecordType: "WEAP FULL", Index: 2}
	want := plugin.Key{FormID: "0x00abcd|skyrim.esm", EditorID: "Ed", RecordType: "WEAP FULL", Index: 2}
	if r.Key() != want {
		t.Errorf("Key() = %+v, want %+v", r.Key(), want)
	}
}
