// SPDX-License-Identifier: MPL-2.0

// Package merge matches the text records of a translated plugin against its
// original and keeps only the slots whose text actually changed.
//
// The translated file stores its text in the same slot the original uses, so
// the merge reinterprets the translated file's original string as the
// translation and takes the true original text from the original file.
package merge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/LightSofa/dsd-generator/internal/plugin"

	"github.com/charmbracelet/log"
)

const (
	// OutcomeMerged means at least one translated record was produced.
	OutcomeMerged OutcomeKind = iota
	// OutcomeEmpty means the pair yielded nothing usable.
	OutcomeEmpty
)

type (
	// MergedRecord is one entry of the output artifact.
	MergedRecord struct {
		FormID           string        `json:"form_id"`
		EditorID         string        `json:"editor_id"`
		RecordType       string        `json:"type"`
		Index            int           `json:"index"`
		OriginalString   string        `json:"original_string"`
		TranslatedString string        `json:"translated_string"`
		Status           plugin.Status `json:"status"`
	}

	// Stats counts what happened to each record during a merge.
	Stats struct {
		OriginalCount   int `json:"original_count" yaml:"original_count"`
		TranslatedCount int `json:"translated_count" yaml:"translated_count"`
		// Missing counts translated records with no original counterpart.
		Missing int `json:"missing" yaml:"missing"`
		// Untranslated counts records whose text equals the original's.
		Untranslated int `json:"untranslated" yaml:"untranslated"`
		Merged       int `json:"merged" yaml:"merged"`
		// DuplicateOriginalKeys counts original records shadowed by a later
		// record with the same key; the later one wins.
		DuplicateOriginalKeys int `json:"duplicate_original_keys" yaml:"duplicate_original_keys"`
	}

	// OutcomeKind distinguishes a usable merge from an empty one.
	OutcomeKind int

	// Outcome is the result of merging one pair.
	Outcome struct {
		Records []MergedRecord
		Stats   Stats
	}

	// Merger extracts both files of a pair and merges them.
	Merger struct {
		extractor plugin.Extractor
		logger    *log.Logger
	}
)

func (k OutcomeKind) String() string {
	if k == OutcomeMerged {
		return "merged"
	}
	return "empty"
}

// Kind reports whether the outcome holds any records.
func (o Outcome) Kind() OutcomeKind {
	if len(o.Records) == 0 {
		return OutcomeEmpty
	}
	return OutcomeMerged
}

// MergeRecords is the pure merge. Output order follows the translated records.
func MergeRecords(original, translated []plugin.TextRecord) Outcome {
	stats := Stats{OriginalCount: len(original), TranslatedCount: len(translated)}

	byKey := make(map[plugin.Key]plugin.TextRecord, len(original))
	for _, rec := range original {
		key := rec.Key()
		if _, dup := byKey[key]; dup {
			stats.DuplicateOriginalKeys++
		}
		byKey[key] = rec
	}

	var out []MergedRecord
	for _, tr := range translated {
		orig, ok := byKey[tr.Key()]
		switch {
		case !ok:
			stats.Missing++
		case orig.OriginalString == tr.OriginalString:
			stats.Untranslated++
		default:
			out = append(out, MergedRecord{
				FormID:           tr.FormID,
				EditorID:         tr.EditorID,
				RecordType:       tr.RecordType,
				Index:            tr.Index,
				OriginalString:   orig.OriginalString,
				TranslatedString: tr.OriginalString,
				Status:           plugin.StatusTranslationComplete,
			})
		}
	}
	stats.Merged = len(out)
	return Outcome{Records: out, Stats: stats}
}

// NewMerger returns a Merger using x. A nil logger discards output.
func NewMerger(x plugin.Extractor, logger *log.Logger) *Merger {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Merger{extractor: x, logger: logger}
}

// Merge extracts the original first, then the translation, and merges them.
// Extraction failures are returned unchanged (*plugin.ExtractionError).
func (m *Merger) Merge(ctx context.Context, translatedPath, originalPath string) (Outcome, error) {
	original, err := m.extractor.Extract(ctx, originalPath)
	if err != nil {
		return Outcome{}, err
	}
	translated, err := m.extractor.Extract(ctx, translatedPath)
	if err != nil {
		return Outcome{}, err
	}

	outcome := MergeRecords(original, translated)
	m.logger.Debug("merged plugin strings",
		"translation", translatedPath,
		"original_records", outcome.Stats.OriginalCount,
		"translated_records", outcome.Stats.TranslatedCount,
		"merged", outcome.Stats.Merged,
		"untranslated", outcome.Stats.Untranslated,
		"missing", outcome.Stats.Missing)
	if outcome.Stats.DuplicateOriginalKeys > 0 {
		m.logger.Debug("original has duplicate record keys, later records win",
			"original", originalPath, "duplicates", outcome.Stats.DuplicateOriginalKeys)
	}
	return outcome, nil
}

// EncodeArtifact renders records as the DSD JSON document: an array with
// four-space indentation, HTML characters and non-ASCII text left as is.
func EncodeArtifact(records []MergedRecord) ([]byte, error) {
	if records == nil {
		records = []MergedRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encoding artifact: %w", err)
	}
	return buf.Bytes(), nil
}
