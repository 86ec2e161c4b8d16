package main

import (
	"strings"
	"testing"

	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/field"
	"github.com/structlay/structlay/layout"
)

const sampleDefs = `
# point in 2D
struct POINT
  x int32
  y int32

struct SHAPE mode=none
  tag      int8
  origin   struct POINT
  buf      array int16 4
  next     structptr POINT
  label    string
  volatile status int32
`

func TestParseCatalog(t *testing.T) {
	cat, err := parseCatalog(strings.NewReader(sampleDefs))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cat.defs) != 2 {
		t.Fatalf("defs: got %d, want 2", len(cat.defs))
	}

	shape := cat.byName["SHAPE"]
	if shape == nil {
		t.Fatal("SHAPE missing")
	}
	if shape.Mode != abi.ModeNone {
		t.Errorf("mode: got %s, want none", shape.Mode)
	}

	origin, _, ok := shape.Field("origin")
	if !ok || origin.Kind != field.KindStruct || origin.Def != cat.byName["POINT"] {
		t.Errorf("origin: %+v", origin)
	}
	buf, _, ok := shape.Field("buf")
	if !ok || buf.Kind != field.KindArray || cat.lengths[buf] != 4 {
		t.Errorf("buf: %+v (len %d)", buf, cat.lengths[buf])
	}
	status, _, ok := shape.Field("status")
	if !ok || !status.Volatile {
		t.Errorf("status: %+v", status)
	}
}

func TestParsedCatalogLaysOut(t *testing.T) {
	cat, err := parseCatalog(strings.NewReader(sampleDefs))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	shape := cat.byName["SHAPE"]

	l, err := layout.NewCalculator(abi.Wasm32()).Compute(shape, cat.lens(shape), true)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	// Packed: tag 1 + point 8 + 4*int16 + ptr 4 + ptr 4 + int32 4.
	if l.Size != 29 {
		t.Errorf("size: got %d, want 29", l.Size)
	}
	if off, _ := l.OffsetOf("buf"); off != 9 {
		t.Errorf("buf offset: got %d, want 9", off)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"field outside struct", "x int32\n"},
		{"unknown kind", "struct S\n x quux\n"},
		{"unknown struct ref", "struct S\n p struct NOPE\n"},
		{"bad array length", "struct S\n a array int8 zero\n"},
		{"empty struct", "struct S\n"},
		{"unknown mode", "struct S mode=weird\n x int32\n"},
		{"empty file", "# nothing\n"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseCatalog(strings.NewReader(tt.input)); err == nil {
				t.Errorf("expected parse error for %q", tt.input)
			}
		})
	}
}
