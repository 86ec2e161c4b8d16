package witbind

import (
	stderrors "errors"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/errors"
	"github.com/structlay/structlay/field"
	"github.com/structlay/structlay/layout"
)

func TestDefinitionPrimitives(t *testing.T) {
	rec := &wit.Record{
		Fields: []wit.Field{
			{Name: "id", Type: wit.U32{}},
			{Name: "delta", Type: wit.S16{}},
			{Name: "ratio", Type: wit.F64{}},
			{Name: "ok", Type: wit.Bool{}},
			{Name: "glyph", Type: wit.Char{}},
			{Name: "note", Type: wit.String{}},
		},
	}
	def, err := Definition("sample", rec)
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	if def.Len() != 6 {
		t.Fatalf("fields: got %d, want 6", def.Len())
	}

	wantKinds := map[string]field.Kind{
		"id":    field.KindUint32,
		"delta": field.KindInt16,
		"ratio": field.KindFloat64,
		"ok":    field.KindUint8,
		"glyph": field.KindUint32,
		"note":  field.KindString,
	}
	for name, want := range wantKinds {
		desc, _, ok := def.Field(name)
		if !ok {
			t.Fatalf("missing field %s", name)
		}
		if desc.Kind != want {
			t.Errorf("%s: got %s, want %s", name, desc.Kind, want)
		}
	}

	// The derived definition lays out like any other.
	l, err := layout.NewCalculator(abi.Wasm32()).Compute(def, layout.NoLengths, true)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	// id@0 delta@4 ratio@8 ok@16 glyph@20 note@24, padded to 32.
	if l.Size != 32 {
		t.Errorf("size: got %d, want 32", l.Size)
	}
}

func TestDefinitionNestedRecord(t *testing.T) {
	inner := &wit.TypeDef{
		Kind: &wit.Record{
			Fields: []wit.Field{
				{Name: "x", Type: wit.S32{}},
				{Name: "y", Type: wit.S32{}},
			},
		},
	}
	rec := &wit.Record{
		Fields: []wit.Field{
			{Name: "tag", Type: wit.U8{}},
			{Name: "pos", Type: inner},
		},
	}
	def, err := Definition("shape", rec)
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	desc, _, ok := def.Field("pos")
	if !ok || desc.Kind != field.KindStruct {
		t.Fatalf("pos: %+v", desc)
	}
	if desc.Def.Len() != 2 {
		t.Errorf("nested fields: got %d, want 2", desc.Def.Len())
	}
}

func TestDefinitionRejectsUnsupported(t *testing.T) {
	rec := &wit.Record{
		Fields: []wit.Field{
			{Name: "items", Type: &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}},
		},
	}
	_, err := Definition("bad", rec)
	if err == nil {
		t.Fatal("expected unsupported type error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindUnsupportedType {
		t.Errorf("wrong kind: %v", err)
	}
}

func TestDefinitionEmptyRecord(t *testing.T) {
	if _, err := Definition("empty", &wit.Record{}); err == nil {
		t.Fatal("expected unknown size error")
	}
}

func TestFromTypeDef(t *testing.T) {
	td := &wit.TypeDef{
		Kind: &wit.Record{
			Fields: []wit.Field{{Name: "v", Type: wit.U64{}}},
		},
	}
	def, err := FromTypeDef("wrapped", td)
	if err != nil {
		t.Fatalf("from typedef: %v", err)
	}
	if def.Name != "wrapped" || def.Len() != 1 {
		t.Errorf("definition: %+v", def)
	}

	notRecord := &wit.TypeDef{Kind: &wit.Enum{Cases: []wit.EnumCase{{Name: "a"}}}}
	if _, err := FromTypeDef("enum", notRecord); err == nil {
		t.Error("expected error for non-record typedef")
	}
}
