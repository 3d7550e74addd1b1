// SPDX-License-Identifier: MPL-2.0

// Package plugintest encodes small TES4 plugin files for tests, so the
// extractor, the merger and the batch can be exercised end to end without
// binary fixtures in the repository.
package plugintest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
)

const (
	FlagLocalized  = 0x00000080
	FlagCompressed = 0x00040000
)

type (
	// Plugin describes a whole file. Records are grouped into one top-level
	// GRUP per record type, in order of first appearance.
	Plugin struct {
		Localized bool
		Masters   []string
		Records   []Record
	}

	// Record is one non-group record.
	Record struct {
		Type       string
		FormID     uint32
		EditorID   string
		Compressed bool
		Fields     []Field
	}

	// Field is a raw subrecord.
	Field struct {
		Type string
		Data []byte
	}
)

// Text returns a zero-terminated string subrecord.
func Text(typ, s string) Field {
	return Field{Type: typ, Data: append([]byte(s), 0)}
}

// Raw returns a subrecord with the given bytes.
func Raw(typ string, data []byte) Field {
	return Field{Type: typ, Data: data}
}

// Bytes encodes the plugin.
func (p Plugin) Bytes() []byte {
	var buf bytes.Buffer

	var header []Field
	header = append(header, Raw("HEDR", make([]byte, 12)))
	for _, m := range p.Masters {
		header = append(header, Text("MAST", m), Raw("DATA", make([]byte, 8)))
	}
	var flags uint32
	if p.Localized {
		flags |= FlagLocalized
	}
	writeRecord(&buf, "TES4", flags, 0, encodeFields(header))

	var order []string
	byType := make(map[string][]Record)
	for _, r := range p.Records {
		if _, ok := byType[r.Type]; !ok {
			order = append(order, r.Type)
		}
		byType[r.Type] = append(byType[r.Type], r)
	}

	for _, typ := range order {
		var body bytes.Buffer
		for _, r := range byType[typ] {
			body.Write(r.bytes())
		}
		writeGroup(&buf, typ, body.Bytes())
	}
	return buf.Bytes()
}

// Write encodes the plugin to dir/name and returns the path.
func (p Plugin) Write(tb testing.TB, dir, name string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("plugintest: %v", err)
	}
	if err := os.WriteFile(path, p.Bytes(), 0o644); err != nil {
		tb.Fatalf("plugintest: %v", err)
	}
	return path
}

func (r Record) bytes() []byte {
	var fields []Field
	if r.EditorID != "" {
		fields = append(fields, Text("EDID", r.EditorID))
	}
	fields = append(fields, r.Fields...)
	data := encodeFields(fields)

	var flags uint32
	if r.Compressed {
		flags |= FlagCompressed
		data = compress(data)
	}
	var buf bytes.Buffer
	writeRecord(&buf, r.Type, flags, r.FormID, data)
	return buf.Bytes()
}

// encodeFields writes subrecords, emitting an XXXX size prefix for fields
// too large for the 16-bit size.
func encodeFields(fields []Field) []byte {
	var buf bytes.Buffer
	for _, f := range fields {
		if len(f.Data) > 0xFFFF {
			buf.WriteString("XXXX")
			_ = binary.Write(&buf, binary.LittleEndian, uint16(4))
			_ = binary.Write(&buf, binary.LittleEndian, uint32(len(f.Data)))
			buf.WriteString(f.Type)
			_ = binary.Write(&buf, binary.LittleEndian, uint16(0))
		} else {
			buf.WriteString(f.Type)
			_ = binary.Write(&buf, binary.LittleEndian, uint16(len(f.Data)))
		}
		buf.Write(f.Data)
	}
	return buf.Bytes()
}

func writeRecord(buf *bytes.Buffer, typ string, flags, formID uint32, data []byte) {
	buf.WriteString(typ)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	_ = binary.Write(buf, binary.LittleEndian, flags)
	_ = binary.Write(buf, binary.LittleEndian, formID)
	_ = binary.Write(buf, binary.LittleEndian, uint32(0))
	_ = binary.Write(buf, binary.LittleEndian, uint16(44))
	_ = binary.Write(buf, binary.LittleEndian, uint16(0))
	buf.Write(data)
}

func writeGroup(buf *bytes.Buffer, label string, body []byte) {
	buf.WriteString("GRUP")
	_ = binary.Write(buf, binary.LittleEndian, uint32(24+len(body)))
	buf.WriteString(label)
	_ = binary.Write(buf, binary.LittleEndian, int32(0)) // top-level group
	_ = binary.Write(buf, binary.LittleEndian, uint32(0))
	_ = binary.Write(buf, binary.LittleEndian, uint32(0))
	buf.Write(body)
}

func compress(data []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}
