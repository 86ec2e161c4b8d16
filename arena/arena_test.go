package arena

import (
	stderrors "errors"
	"testing"

	"github.com/structlay/structlay/errors"
)

func TestAllocAligns(t *testing.T) {
	a := New(64)

	p1, err := a.Alloc(3, 1)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if p1 == 0 {
		t.Fatal("address 0 must stay reserved")
	}

	p2, err := a.Alloc(8, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if p2%8 != 0 {
		t.Errorf("allocation not aligned: %d", p2)
	}
	if p2 < p1+3 {
		t.Errorf("allocations overlap: %d after %d+3", p2, p1)
	}
}

func TestAllocGrows(t *testing.T) {
	a := New(16)
	p, err := a.Alloc(1024, 4)
	if err != nil {
		t.Fatalf("alloc beyond capacity: %v", err)
	}
	if err := a.Write(p, make([]byte, 1024)); err != nil {
		t.Fatalf("write into grown region: %v", err)
	}
}

func TestAllocRejectsBadArgs(t *testing.T) {
	a := New(64)
	if _, err := a.Alloc(0, 4); err == nil {
		t.Error("zero size must fail")
	}
	if _, err := a.Alloc(4, 3); err == nil {
		t.Error("non power-of-two alignment must fail")
	}
}

func TestFreeCounters(t *testing.T) {
	a := New(64)
	p1, _ := a.Alloc(4, 4)
	p2, _ := a.Alloc(4, 4)
	if a.Live() != 2 {
		t.Fatalf("live: got %d, want 2", a.Live())
	}
	a.Free(p1, 4, 4)
	a.Free(0, 4, 4) // null free is a no-op
	if a.Live() != 1 {
		t.Fatalf("live after free: got %d, want 1", a.Live())
	}
	a.Free(p2, 4, 4)
	if a.Live() != 0 {
		t.Fatalf("live after all frees: got %d, want 0", a.Live())
	}
}

func TestRoundTrip(t *testing.T) {
	a := New(64)
	if err := a.WriteU32(8, 0xdeadbeef); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := a.ReadU32(8)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 0xdeadbeef {
		t.Errorf("got %#x, want 0xdeadbeef", v)
	}

	// Little-endian byte order.
	b, err := a.ReadU8(8)
	if err != nil {
		t.Fatalf("read byte: %v", err)
	}
	if b != 0xef {
		t.Errorf("first byte: got %#x, want 0xef", b)
	}
}

func TestBounds(t *testing.T) {
	a := New(16)
	_, err := a.Read(12, 8)
	if err == nil {
		t.Fatal("expected out of bounds")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindOutOfBounds {
		t.Errorf("expected out_of_bounds, got %v", err)
	}
}
