package layout

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/field"
)

func TestRegistryCaches(t *testing.T) {
	reg := NewRegistry()
	calc := NewCalculator(abi.LinuxAMD64())
	def := field.NewDefinition("POINT", field.Int32("x"), field.Int32("y"))

	l1, err := reg.Resolve(def, calc, NoLengths, false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	l2, err := reg.Resolve(def, calc, NoLengths, false)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if l1 != l2 {
		t.Error("expected the cached layout to be reused")
	}

	cached, ok := reg.Cached(def)
	if !ok || cached != l1 {
		t.Error("Cached should return the stored layout")
	}
}

func TestRegistryDoesNotCacheFailures(t *testing.T) {
	reg := NewRegistry()
	calc := NewCalculator(abi.LinuxAMD64())
	def := field.NewDefinition("BUF", field.Array("data", field.Uint8("")))

	if _, err := reg.Resolve(def, calc, NoLengths, false); !stderrors.Is(err, ErrDeferred) {
		t.Fatalf("expected deferral, got %v", err)
	}
	if _, ok := reg.Cached(def); ok {
		t.Fatal("deferred computation must not be cached")
	}

	// A later attempt with the array initialized succeeds.
	l, err := reg.Resolve(def, calc, lensOf(map[string]int{"data": 8}), false)
	if err != nil {
		t.Fatalf("resolve after init: %v", err)
	}
	if l.Size != 8 {
		t.Errorf("size: got %d, want 8", l.Size)
	}
}

func TestRegistryDoesNotCacheVariableLayouts(t *testing.T) {
	reg := NewRegistry()
	calc := NewCalculator(abi.LinuxAMD64())
	def := field.NewDefinition("VBUF", field.Array("data", field.Int16("")))

	l1, err := reg.Resolve(def, calc, lensOf(map[string]int{"data": 3}), false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !l1.Variable {
		t.Fatal("array-bearing layout must be variable")
	}
	if l1.Size != 6 {
		t.Errorf("size: got %d, want 6", l1.Size)
	}
	if _, ok := reg.Cached(def); ok {
		t.Fatal("variable layout must not be cached")
	}

	// A caller with a different length gets its own layout.
	l2, err := reg.Resolve(def, calc, lensOf(map[string]int{"data": 5}), false)
	if err != nil {
		t.Fatalf("resolve with new length: %v", err)
	}
	if l2.Size != 10 {
		t.Errorf("size: got %d, want 10", l2.Size)
	}
}

func TestRegistryInvalidate(t *testing.T) {
	reg := NewRegistry()
	calc := NewCalculator(abi.LinuxAMD64())
	def := field.NewDefinition("S", field.Int64("v"))

	l1, err := reg.Resolve(def, calc, NoLengths, false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	reg.Invalidate(def)
	if _, ok := reg.Cached(def); ok {
		t.Fatal("invalidated entry still cached")
	}

	l2, err := reg.Resolve(def, calc, NoLengths, false)
	if err != nil {
		t.Fatalf("resolve after invalidate: %v", err)
	}
	if l1 == l2 {
		t.Error("expected a fresh layout after invalidation")
	}
}

func TestRegistryConcurrentFirstUse(t *testing.T) {
	reg := NewRegistry()
	calc := NewCalculator(abi.LinuxAMD64())
	def := field.NewDefinition("S",
		field.Int32("a"),
		field.Float64("b"),
	)

	const workers = 16
	results := make([]*Layout, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, err := reg.Resolve(def, calc, NoLengths, false)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = l
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatal("all callers must observe the same cached layout")
		}
	}
}
