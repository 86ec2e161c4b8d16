package field

import (
	"errors"
	"testing"

	"github.com/structlay/structlay/abi"
	structerrors "github.com/structlay/structlay/errors"
)

func TestDefinitionOrder(t *testing.T) {
	def := NewDefinition("POINT",
		Int32("x"),
		Int32("y"),
		Volatile(Uint32("flags")),
	)

	if def.Len() != 3 {
		t.Fatalf("len: got %d, want 3", def.Len())
	}
	names := []string{"x", "y", "flags"}
	for i, f := range def.Fields() {
		if f.Name != names[i] {
			t.Errorf("field %d: got %q, want %q", i, f.Name, names[i])
		}
	}

	f, idx, ok := def.Field("flags")
	if !ok || idx != 2 {
		t.Fatalf("lookup flags: ok=%v idx=%d", ok, idx)
	}
	if !f.Volatile {
		t.Error("flags should be volatile")
	}

	if _, _, ok := def.Field("bogus"); ok {
		t.Error("expected lookup failure for unknown field")
	}
}

func TestDefinitionWithMode(t *testing.T) {
	def := NewDefinition("S", Int8("a"))
	packed := def.WithMode(abi.ModeNone)

	if packed == def {
		t.Fatal("WithMode must return a distinct definition")
	}
	if packed.Mode != abi.ModeNone {
		t.Errorf("mode: got %v", packed.Mode)
	}
	if def.Mode != abi.ModeDefault {
		t.Errorf("original mode changed: %v", def.Mode)
	}
	if packed.Len() != def.Len() {
		t.Error("copies must share the field list")
	}

	if again := def.WithMode(abi.ModeNone); again != packed {
		t.Error("repeated calls with one mode must return the same copy")
	}
	if same := def.WithMode(def.Mode); same != def {
		t.Error("asking for the current mode must return the receiver")
	}
}

func TestDescriptorTypeName(t *testing.T) {
	pt := NewDefinition("POINT", Int32("x"), Int32("y"))

	tests := []struct {
		desc *Descriptor
		want string
	}{
		{Int32("a"), "int32"},
		{Array("v", Float64("")), "array of float64"},
		{Struct("p", pt), "struct POINT"},
		{StructPtr("p", pt), "structptr POINT"},
		{Converted("t", "time.Time"), "time.Time"},
	}
	for _, tc := range tests {
		if got := tc.desc.TypeName(); got != tc.want {
			t.Errorf("TypeName: got %q, want %q", got, tc.want)
		}
	}
}

func TestConverterRegistry(t *testing.T) {
	t.Run("bidirectional", func(t *testing.T) {
		reg := NewConverterRegistry()
		reg.Register("bool32", KindInt32,
			func(v any) (any, error) {
				if v == true {
					return int32(1), nil
				}
				return int32(0), nil
			},
			func(v any) (any, error) {
				return v.(int32) != 0, nil
			},
		)

		conv, err := reg.Resolve("bool32")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if conv.NativeKind != KindInt32 {
			t.Errorf("native kind: got %v", conv.NativeKind)
		}
		n, err := conv.To(true)
		if err != nil || n != int32(1) {
			t.Errorf("to native: got %v, %v", n, err)
		}
		l, err := conv.From(int32(1))
		if err != nil || l != true {
			t.Errorf("from native: got %v, %v", l, err)
		}
	})

	t.Run("one_sided_faults", func(t *testing.T) {
		reg := NewConverterRegistry()
		reg.RegisterToNative("half", KindInt32, func(v any) (any, error) { return int32(0), nil })

		_, err := reg.Resolve("half")
		want := &structerrors.Error{Phase: structerrors.PhaseConfig, Kind: structerrors.KindOneWayConverter}
		if !errors.Is(err, want) {
			t.Fatalf("expected one_way_converter fault, got %v", err)
		}
	})

	t.Run("unregistered_is_nil", func(t *testing.T) {
		reg := NewConverterRegistry()
		conv, err := reg.Resolve("missing")
		if conv != nil || err != nil {
			t.Fatalf("got %v, %v", conv, err)
		}
	})

	t.Run("nil_registry", func(t *testing.T) {
		var reg *ConverterRegistry
		conv, err := reg.Resolve("anything")
		if conv != nil || err != nil {
			t.Fatalf("got %v, %v", conv, err)
		}
	})
}
