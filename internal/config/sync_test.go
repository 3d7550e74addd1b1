// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep Go struct JSON tags aligned with config_schema.cue so a
// renamed field cannot be silently ignored during decoding.

func cueFieldNames(t *testing.T, val cue.Value) []string {
	t.Helper()

	iter, err := val.Fields(cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}
	var names []string
	for iter.Next() {
		names = append(names, strings.TrimSuffix(iter.Selector().String(), "?"))
	}
	slices.Sort(names)
	return names
}

func jsonTagNames(typ reflect.Type) []string {
	var names []string
	for i := range typ.NumField() {
		tag := typ.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func TestSchemaSync(t *testing.T) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	if schema.Err() != nil {
		t.Fatalf("schema does not compile: %v", schema.Err())
	}
	root := schema.LookupPath(cue.ParsePath("#Config"))

	tests := []struct {
		path string
		typ  reflect.Type
	}{
		{"", reflect.TypeFor[Config]()},
		{"output", reflect.TypeFor[OutputConfig]()},
		{"scan", reflect.TypeFor[ScanConfig]()},
		{"pairing", reflect.TypeFor[PairingConfig]()},
		{"cache", reflect.TypeFor[CacheConfig]()},
		{"launch", reflect.TypeFor[LaunchConfig]()},
		{"ui", reflect.TypeFor[UIConfig]()},
	}

	for _, tt := range tests {
		t.Run(tt.typ.Name(), func(t *testing.T) {
			val := root
			if tt.path != "" {
				val = root.LookupPath(cue.MakePath(cue.Str(tt.path).Optional()))
			}
			if !val.Exists() {
				t.Fatalf("schema has no %q section", tt.path)
			}
			got := cueFieldNames(t, val)
			want := jsonTagNames(tt.typ)
			if !slices.Equal(got, want) {
				t.Errorf("schema fields %v, Go json tags %v", got, want)
			}
		})
	}
}
