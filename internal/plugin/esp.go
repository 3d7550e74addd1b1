// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/charmap"
)

const (
	headerSize = 24

	flagMasterLocalized = 0x00000080
	flagCompressed      = 0x00040000

	// maxRecordSize guards against corrupt size fields allocating gigabytes.
	maxRecordSize = 256 << 20
)

// textSubrecords lists, per record type, the subrecords holding plain
// zero-terminated strings in non-localized plugins. FULL is text in every
// record type and is handled separately.
var textSubrecords = map[string][]string{
	"ACTI": {"RNAM"},
	"ALCH": {"DESC"},
	"AMMO": {"DESC"},
	"ARMO": {"DESC"},
	"AVIF": {"DESC"},
	"BOOK": {"DESC", "CNAM"},
	"CLAS": {"DESC"},
	"COLL": {"DESC"},
	"FLOR": {"RNAM"},
	"INFO": {"NAM1", "RNAM"},
	"LSCR": {"DESC"},
	"MESG": {"DESC", "ITXT"},
	"MGEF": {"DNAM"},
	"NPC_": {"SHRT"},
	"PERK": {"DESC", "EPF2"},
	"QUST": {"CNAM", "NNAM"},
	"RACE": {"DESC"},
	"SCRL": {"DESC"},
	"SHOU": {"DESC"},
	"SPEL": {"DESC"},
	"WEAP": {"DESC"},
	"WOOP": {"TNAM"},
}

type (
	// ESPExtractor reads text records from non-localized TES4 plugins.
	ESPExtractor struct{}

	recordHeader struct {
		Type     [4]byte
		DataSize uint32
		Flags    uint32
		FormID   uint32
		VC       uint32
		Version  uint16
		Unknown  uint16
	}

	subrecord struct {
		typ  string
		data []byte
	}
)

// NewESPExtractor returns the production extractor.
func NewESPExtractor() *ESPExtractor { return &ESPExtractor{} }

var _ Extractor = (*ESPExtractor)(nil)

// Extract walks every record of the plugin in file order. Groups are
// descended linearly: their headers are consumed and their contents read as
// ordinary records.
func (x *ESPExtractor) Extract(ctx context.Context, path string) ([]TextRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Reason: ReasonUnreadable, Err: err}
	}
	defer func() { _ = f.Close() }() // Read-only handle; close errors are exotic.

	r := bufio.NewReaderSize(f, 64<<10)
	self := filepath.Base(path)

	hdr, data, err := readRecord(r)
	if err != nil {
		return nil, &ExtractionError{Path: path, Reason: ReasonNotAPlugin, Err: err}
	}
	if string(hdr.Type[:]) != "TES4" {
		return nil, &ExtractionError{Path: path, Reason: ReasonNotAPlugin,
			Err: fmt.Errorf("file header is %q, want TES4", hdr.Type[:])}
	}
	if hdr.Flags&flagMasterLocalized != 0 {
		return nil, &ExtractionError{Path: path, Reason: ReasonLocalized,
			Err: errors.New("strings are stored in external string tables")}
	}
	subs, err := parseSubrecords(data)
	if err != nil {
		return nil, &ExtractionError{Path: path, Reason: ReasonTruncated, Err: err}
	}
	var masters []string
	for _, s := range subs {
		if s.typ == "MAST" {
			masters = append(masters, decodeZString(s.data))
		}
	}

	var out []TextRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, &ExtractionError{Path: path, Reason: ReasonCanceled, Err: err}
		}

		var head [headerSize]byte
		if _, err := io.ReadFull(r, head[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ExtractionError{Path: path, Reason: ReasonTruncated, Err: err}
		}
		if string(head[:4]) == "GRUP" {
			continue
		}

		hdr, data, err := readRecordBody(r, head)
		if err != nil {
			return nil, &ExtractionError{Path: path, Reason: ReasonTruncated, Err: err}
		}
		recType := string(hdr.Type[:])
		if hdr.Flags&flagCompressed != 0 {
			data, err = inflate(data)
			if err != nil {
				return nil, &ExtractionError{Path: path, Reason: ReasonDecompress,
					Err: fmt.Errorf("record %s %08X: %w", recType, hdr.FormID, err)}
			}
		}
		subs, err := parseSubrecords(data)
		if err != nil {
			return nil, &ExtractionError{Path: path, Reason: ReasonTruncated,
				Err: fmt.Errorf("record %s %08X: %w", recType, hdr.FormID, err)}
		}
		out = appendTextRecords(out, recType, formIDString(hdr.FormID, masters, self), subs)
	}
	return out, nil
}

func appendTextRecords(out []TextRecord, recType, formID string, subs []subrecord) []TextRecord {
	var editorID string
	for _, s := range subs {
		if s.typ == "EDID" {
			editorID = decodeZString(s.data)
			break
		}
	}

	wanted := textSubrecords[recType]
	seen := make(map[string]int)
	for _, s := range subs {
		if s.typ != "FULL" && !slices.Contains(wanted, s.typ) {
			continue
		}
		idx := seen[s.typ]
		seen[s.typ] = idx + 1

		text := decodeZString(s.data)
		if text == "" {
			continue
		}
		out = append(out, TextRecord{
			FormID:         formID,
			EditorID:       editorID,
			RecordType:     recType + " " + s.typ,
			Index:          idx,
			OriginalString: text,
			Status:         StatusUntranslated,
		})
	}
	return out
}

// formIDString resolves the owning file from the load-order byte: indexes
// into the master list, anything past it belongs to the plugin itself.
func formIDString(id uint32, masters []string, self string) string {
	if id == 0 {
		return ""
	}
	owner := self
	if idx := int(id >> 24); idx < len(masters) {
		owner = masters[idx]
	}
	return fmt.Sprintf("0x%06x|%s", id&0x00FFFFFF, owner)
}

func readRecord(r io.Reader) (recordHeader, []byte, error) {
	var head [headerSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return recordHeader{}, nil, err
	}
	return readRecordBody(r, head)
}

func readRecordBody(r io.Reader, head [headerSize]byte) (recordHeader, []byte, error) {
	var hdr recordHeader
	if err := binary.Read(bytes.NewReader(head[:]), binary.LittleEndian, &hdr); err != nil {
		return hdr, nil, err
	}
	if hdr.DataSize > maxRecordSize {
		return hdr, nil, fmt.Errorf("record %s declares %d bytes", hdr.Type[:], hdr.DataSize)
	}
	data := make([]byte, hdr.DataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return hdr, nil, fmt.Errorf("record %s body: %w", hdr.Type[:], err)
	}
	return hdr, data, nil
}

// parseSubrecords splits record data into subrecords, honoring XXXX size
// overrides for fields larger than 64 KiB.
func parseSubrecords(data []byte) ([]subrecord, error) {
	var out []subrecord
	var override uint32
	hasOverride := false
	for len(data) > 0 {
		if len(data) < 6 {
			return nil, fmt.Errorf("subrecord header truncated (%d bytes left)", len(data))
		}
		typ := string(data[:4])
		size := uint32(binary.LittleEndian.Uint16(data[4:6]))
		data = data[6:]
		if hasOverride {
			size, hasOverride = override, false
		}
		if uint32(len(data)) < size {
			return nil, fmt.Errorf("subrecord %s needs %d bytes, %d left", typ, size, len(data))
		}
		body := data[:size]
		data = data[size:]
		if typ == "XXXX" {
			if len(body) != 4 {
				return nil, fmt.Errorf("XXXX subrecord has %d bytes, want 4", len(body))
			}
			override, hasOverride = binary.LittleEndian.Uint32(body), true
			continue
		}
		out = append(out, subrecord{typ: typ, data: body})
	}
	return out, nil
}

// inflate decodes a compressed record body: a uint32 decompressed size
// followed by a zlib stream.
func inflate(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, errors.New("compressed record shorter than its size prefix")
	}
	size := binary.LittleEndian.Uint32(data[:4])
	if size > maxRecordSize {
		return nil, fmt.Errorf("decompressed size %d too large", size)
	}
	zr, err := zlib.NewReader(bytes.NewReader(data[4:]))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeZString trims the terminator and decodes UTF-8, falling back to
// Windows-1252 for legacy plugins.
func decodeZString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if utf8.Valid(b) {
		return string(b)
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
