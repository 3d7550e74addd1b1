// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	StatusUntranslated        Status = "untranslated"
	StatusTranslationComplete Status = "translation_complete"
)

// Extraction failure reasons.
const (
	ReasonUnreadable = "unreadable"
	ReasonNotAPlugin = "not_a_plugin"
	ReasonLocalized  = "localized"
	ReasonTruncated  = "truncated"
	ReasonDecompress = "decompress_failed"
	ReasonCanceled   = "canceled"
)

// ErrExtraction is the sentinel wrapped by every ExtractionError.
var ErrExtraction = errors.New("plugin extraction failed")

type (
	// Status is the translation state of a record.
	Status string

	// TextRecord is one localizable string slot in a plugin.
	TextRecord struct {
		// FormID is "0x<6 hex digits>|<owning plugin>", empty for records without one.
		FormID   string
		EditorID string
		// RecordType is "<record> <subrecord>", e.g. "WEAP FULL".
		RecordType string
		// Index counts earlier occurrences of the same subrecord in the record.
		Index            int
		OriginalString   string
		TranslatedString *string
		Status           Status
	}

	// Key is the composite identity used to match records across two files.
	Key struct {
		FormID     string
		EditorID   string
		RecordType string
		Index      int
	}

	// Extractor turns a plugin file into its text records.
	Extractor interface {
		Extract(ctx context.Context, path string) ([]TextRecord, error)
	}

	// ExtractionError reports why a file could not be extracted.
	ExtractionError struct {
		Path   string
		Reason string
		Err    error
	}
)

// Key returns the composite key with the form id case-folded.
func (r TextRecord) Key() Key {
	return Key{
		FormID:     strings.ToLower(r.FormID),
		EditorID:   r.EditorID,
		RecordType: r.RecordType,
		Index:      r.Index,
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.FormID, k.EditorID, k.RecordType, k.Index)
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Reason, e.Err)
}

// Unwrap exposes ErrExtraction and the underlying cause to errors.Is.
func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExtraction}
	}
	return []error{ErrExtraction, e.Err}
}
