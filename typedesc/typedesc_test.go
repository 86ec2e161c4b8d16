package typedesc

import (
	"testing"

	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/field"
	"github.com/structlay/structlay/layout"
)

func mustLayout(t *testing.T, def *field.Definition, plat abi.Platform, lens layout.LenFunc) *layout.Layout {
	t.Helper()
	l, err := layout.NewCalculator(plat).Compute(def, lens, true)
	if err != nil {
		t.Fatalf("layout %s: %v", def.Name, err)
	}
	return l
}

func TestBuildPrimitives(t *testing.T) {
	def := field.NewDefinition("S",
		field.Int8("a"),
		field.Uint16("b"),
		field.Int32("c"),
		field.Float64("d"),
	)
	l := mustLayout(t, def, abi.Wasm32(), layout.NoLengths)
	d, err := NewBuilder(abi.Wasm32()).Build(l)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if d.Kind != KindStruct {
		t.Fatalf("kind: got %s", d.Kind)
	}
	if d.Size != l.Size || d.Align != l.Align {
		t.Errorf("size/align: got %d/%d, want %d/%d", d.Size, d.Align, l.Size, l.Align)
	}
	want := []*Descriptor{SInt8, UInt16, SInt32, Double}
	if len(d.Elements) != len(want) {
		t.Fatalf("elements: got %d, want %d", len(d.Elements), len(want))
	}
	for i, w := range want {
		if d.Elements[i] != w {
			t.Errorf("element %d: got %s, want %s", i, d.Elements[i].Kind, w.Kind)
		}
	}
}

func TestBuildPointerWidth(t *testing.T) {
	def := field.NewDefinition("P", field.Pointer("p"), field.String("s"))

	for _, tt := range []struct {
		plat abi.Platform
		want uint32
	}{
		{abi.Wasm32(), 4},
		{abi.LinuxAMD64(), 8},
	} {
		t.Run(tt.plat.Name, func(t *testing.T) {
			l := mustLayout(t, def, tt.plat, layout.NoLengths)
			d, err := NewBuilder(tt.plat).Build(l)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			for i, e := range d.Elements {
				if e.Kind != KindPointer || e.Size != tt.want {
					t.Errorf("element %d: kind %s size %d, want pointer size %d",
						i, e.Kind, e.Size, tt.want)
				}
			}
			// Both pointer-sized fields share the builder's leaf.
			if d.Elements[0] != d.Elements[1] {
				t.Error("pointer leaves must be shared")
			}
		})
	}
}

func TestBuildNestedAndFlattenedArrays(t *testing.T) {
	inner := field.NewDefinition("INNER", field.Int32("x"), field.Int32("y"))
	def := field.NewDefinition("OUTER",
		field.Struct("pos", inner),
		field.Array("buf", field.Uint8("")),
		field.StructPtr("link", inner),
	)
	lens := func(path []string) (int, bool) {
		if len(path) == 1 && path[0] == "buf" {
			return 3, true
		}
		return 0, false
	}
	l := mustLayout(t, def, abi.Wasm32(), lens)
	d, err := NewBuilder(abi.Wasm32()).Build(l)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// pos expands to a struct node, buf to three uint8 leaves, link to a
	// pointer leaf.
	if len(d.Elements) != 5 {
		t.Fatalf("elements: got %d, want 5", len(d.Elements))
	}
	if d.Elements[0].Kind != KindStruct || len(d.Elements[0].Elements) != 2 {
		t.Errorf("pos node: %+v", d.Elements[0])
	}
	for i := 1; i <= 3; i++ {
		if d.Elements[i] != UInt8 {
			t.Errorf("buf element %d: got %s", i, d.Elements[i].Kind)
		}
	}
	if d.Elements[4].Kind != KindPointer {
		t.Errorf("link: got %s", d.Elements[4].Kind)
	}
}

func TestRegistryCachesAndRetires(t *testing.T) {
	def := field.NewDefinition("S", field.Int64("v"))
	l := mustLayout(t, def, abi.Wasm32(), layout.NoLengths)
	reg := NewRegistry(NewBuilder(abi.Wasm32()))

	d1, err := reg.Resolve(l)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	d2, err := reg.Resolve(l)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if d1 != d2 {
		t.Error("expected the cached descriptor to be reused")
	}
	if reg.Len() != 1 {
		t.Errorf("len: got %d, want 1", reg.Len())
	}

	reg.Retire(def)
	if _, ok := reg.Cached(def); ok {
		t.Error("retired entry still cached")
	}
	d3, err := reg.Resolve(l)
	if err != nil {
		t.Fatalf("resolve after retire: %v", err)
	}
	if d3 == d1 {
		t.Error("expected a fresh tree after retirement")
	}
}

func TestRegistrySkipsVariableLayouts(t *testing.T) {
	def := field.NewDefinition("BUF", field.Array("data", field.Uint8("")))
	reg := NewRegistry(NewBuilder(abi.Wasm32()))

	lens := func(n int) layout.LenFunc {
		return func(path []string) (int, bool) { return n, true }
	}
	d3, err := reg.Resolve(mustLayout(t, def, abi.Wasm32(), lens(3)))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(d3.Elements) != 3 {
		t.Fatalf("elements: got %d, want 3", len(d3.Elements))
	}
	if reg.Len() != 0 {
		t.Error("variable layout must not be cached")
	}

	// A layout with another count gets its own tree.
	d5, err := reg.Resolve(mustLayout(t, def, abi.Wasm32(), lens(5)))
	if err != nil {
		t.Fatalf("resolve longer: %v", err)
	}
	if len(d5.Elements) != 5 {
		t.Errorf("elements: got %d, want 5", len(d5.Elements))
	}
}
