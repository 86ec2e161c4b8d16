// Package arena provides a byte-slice backed memory with a bump allocator,
// used as the host-side target for structure marshaling and in tests.
package arena

import (
	"encoding/binary"

	structlay "github.com/structlay/structlay"
	"github.com/structlay/structlay/errors"
)

// Arena is a growable little-endian memory. Address 0 is reserved so it can
// serve as the null pointer; the first allocation starts past it.
//
// Allocation is a bump pointer: Free only updates the live-allocation
// counters, which tests use to assert that pinned buffers are released.
// An Arena is not safe for concurrent use.
type Arena struct {
	data   []byte
	next   uint32
	allocs int
	frees  int
}

const reserved = 8

// New creates an arena with an initial capacity of size bytes.
func New(size uint32) *Arena {
	if size < reserved {
		size = reserved
	}
	return &Arena{data: make([]byte, size), next: reserved}
}

// Size returns the current memory size in bytes.
func (a *Arena) Size() uint32 { return uint32(len(a.data)) }

// Allocs returns the number of successful allocations.
func (a *Arena) Allocs() int { return a.allocs }

// Frees returns the number of released allocations.
func (a *Arena) Frees() int { return a.frees }

// Live returns the number of allocations not yet freed.
func (a *Arena) Live() int { return a.allocs - a.frees }

// Alloc reserves size bytes aligned to align, growing the backing slice as
// needed.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if size == 0 || align == 0 || align&(align-1) != 0 {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}
	ptr := (a.next + align - 1) &^ (align - 1)
	end := uint64(ptr) + uint64(size)
	if end > uint64(^uint32(0)) {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}
	for end > uint64(len(a.data)) {
		a.data = append(a.data, make([]byte, len(a.data))...)
	}
	a.next = uint32(end)
	a.allocs++
	return ptr, nil
}

// Free releases an allocation. The bytes are not reclaimed, only counted.
func (a *Arena) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	a.frees++
}

func (a *Arena) check(offset, length uint32) error {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(a.data)) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, length, uint32(len(a.data)))
	}
	return nil
}

// Read copies length bytes starting at offset.
func (a *Arena) Read(offset, length uint32) ([]byte, error) {
	if err := a.check(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, a.data[offset:offset+length])
	return out, nil
}

// Write copies data into memory at offset.
func (a *Arena) Write(offset uint32, data []byte) error {
	if err := a.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(a.data[offset:], data)
	return nil
}

func (a *Arena) ReadU8(offset uint32) (uint8, error) {
	if err := a.check(offset, 1); err != nil {
		return 0, err
	}
	return a.data[offset], nil
}

func (a *Arena) ReadU16(offset uint32) (uint16, error) {
	if err := a.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(a.data[offset:]), nil
}

func (a *Arena) ReadU32(offset uint32) (uint32, error) {
	if err := a.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(a.data[offset:]), nil
}

func (a *Arena) ReadU64(offset uint32) (uint64, error) {
	if err := a.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(a.data[offset:]), nil
}

func (a *Arena) WriteU8(offset uint32, value uint8) error {
	if err := a.check(offset, 1); err != nil {
		return err
	}
	a.data[offset] = value
	return nil
}

func (a *Arena) WriteU16(offset uint32, value uint16) error {
	if err := a.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(a.data[offset:], value)
	return nil
}

func (a *Arena) WriteU32(offset uint32, value uint32) error {
	if err := a.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(a.data[offset:], value)
	return nil
}

func (a *Arena) WriteU64(offset uint32, value uint64) error {
	if err := a.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(a.data[offset:], value)
	return nil
}

var (
	_ structlay.Memory      = (*Arena)(nil)
	_ structlay.Allocator   = (*Arena)(nil)
	_ structlay.MemorySizer = (*Arena)(nil)
)
