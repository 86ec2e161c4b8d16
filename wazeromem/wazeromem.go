// Package wazeromem adapts wazero guest memory and allocator exports to the
// structlay interfaces, so structures can be marshaled directly into a
// running WebAssembly instance.
package wazeromem

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	structlay "github.com/structlay/structlay"
	"github.com/structlay/structlay/errors"
)

// Wrap adapts a wazero api.Memory. The result also implements
// structlay.MemorySizer.
func Wrap(mem api.Memory) structlay.Memory {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// WrapAllocator adapts a guest cabi_realloc export to structlay.Allocator.
func WrapAllocator(ctx context.Context, fn api.Function) structlay.Allocator {
	if fn == nil {
		return nil
	}
	return &AllocatorWrapper{Ctx: ctx, Fn: fn}
}

// Wrapper adapts wazero api.Memory to structlay.Memory.
type Wrapper struct {
	Mem api.Memory
}

var (
	_ structlay.Memory      = (*Wrapper)(nil)
	_ structlay.MemorySizer = (*Wrapper)(nil)
)

// Size returns the current guest memory size in bytes.
func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}

func (m *Wrapper) oob(offset, length uint32) error {
	return errors.OutOfBounds(errors.PhaseMemory, offset, length, m.Mem.Size())
}

// Read reads length bytes from guest memory at offset. The returned slice
// views the guest memory directly and is only valid until the guest runs.
func (m *Wrapper) Read(offset, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, m.oob(offset, length)
	}
	return data, nil
}

func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return m.oob(offset, uint32(len(data)))
	}
	return nil
}

func (m *Wrapper) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	if !ok {
		return 0, m.oob(offset, 1)
	}
	return v, nil
}

func (m *Wrapper) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.Mem.ReadUint16Le(offset)
	if !ok {
		return 0, m.oob(offset, 2)
	}
	return v, nil
}

func (m *Wrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, m.oob(offset, 4)
	}
	return v, nil
}

func (m *Wrapper) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, m.oob(offset, 8)
	}
	return v, nil
}

func (m *Wrapper) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return m.oob(offset, 1)
	}
	return nil
}

func (m *Wrapper) WriteU16(offset uint32, value uint16) error {
	if !m.Mem.WriteUint16Le(offset, value) {
		return m.oob(offset, 2)
	}
	return nil
}

func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return m.oob(offset, 4)
	}
	return nil
}

func (m *Wrapper) WriteU64(offset uint32, value uint64) error {
	if !m.Mem.WriteUint64Le(offset, value) {
		return m.oob(offset, 8)
	}
	return nil
}

// AllocatorWrapper adapts a cabi_realloc guest export to
// structlay.Allocator. cabi_realloc(old, oldSize, align, newSize) with a
// zero old pointer allocates; a zero new size frees.
type AllocatorWrapper struct {
	Ctx context.Context
	Fn  api.Function
}

var _ structlay.Allocator = (*AllocatorWrapper)(nil)

func (a *AllocatorWrapper) Alloc(size, align uint32) (uint32, error) {
	results, err := a.Fn.Call(a.Ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, errors.New(errors.PhaseMemory, errors.KindAllocation).
			Cause(err).
			Detail("guest allocation of %d bytes (align %d) failed", size, align).
			Build()
	}
	if len(results) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}
	return uint32(results[0]), nil
}

func (a *AllocatorWrapper) Free(ptr, size, align uint32) {
	_, _ = a.Fn.Call(a.Ctx, uint64(ptr), uint64(size), uint64(align), 0)
}
