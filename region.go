package structlay

import (
	"github.com/structlay/structlay/errors"
)

// Region is a bounds-checked, non-owning window into a Memory. Offsets passed
// to a Region are relative to its base; Share carves out nested sub-windows
// for embedded structures without copying.
type Region struct {
	mem  Memory
	base uint32
	size uint32
}

// NewRegion creates a region covering [base, base+size) of mem.
func NewRegion(mem Memory, base, size uint32) *Region {
	return &Region{mem: mem, base: base, size: size}
}

// Memory returns the underlying memory.
func (r *Region) Memory() Memory { return r.mem }

// Base returns the absolute address of the region's first byte.
func (r *Region) Base() uint32 { return r.base }

// Size returns the region size in bytes.
func (r *Region) Size() uint32 { return r.size }

// Share returns a new non-owning region over [offset, offset+size) of r.
func (r *Region) Share(offset, size uint32) (*Region, error) {
	if err := r.check(offset, size); err != nil {
		return nil, err
	}
	return &Region{mem: r.mem, base: r.base + offset, size: size}, nil
}

func (r *Region) check(offset, length uint32) error {
	end := uint64(offset) + uint64(length)
	if end > uint64(r.size) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, length, r.size)
	}
	return nil
}

// ReadBytes copies length bytes starting at offset out of the region.
func (r *Region) ReadBytes(offset, length uint32) ([]byte, error) {
	if err := r.check(offset, length); err != nil {
		return nil, err
	}
	return r.mem.Read(r.base+offset, length)
}

// WriteBytes copies data into the region at offset.
func (r *Region) WriteBytes(offset uint32, data []byte) error {
	if err := r.check(offset, uint32(len(data))); err != nil {
		return err
	}
	return r.mem.Write(r.base+offset, data)
}

// Zero overwrites the whole region with zero bytes.
func (r *Region) Zero() error {
	return r.WriteBytes(0, make([]byte, r.size))
}

func (r *Region) ReadU8(offset uint32) (uint8, error) {
	if err := r.check(offset, 1); err != nil {
		return 0, err
	}
	return r.mem.ReadU8(r.base + offset)
}

func (r *Region) ReadU16(offset uint32) (uint16, error) {
	if err := r.check(offset, 2); err != nil {
		return 0, err
	}
	return r.mem.ReadU16(r.base + offset)
}

func (r *Region) ReadU32(offset uint32) (uint32, error) {
	if err := r.check(offset, 4); err != nil {
		return 0, err
	}
	return r.mem.ReadU32(r.base + offset)
}

func (r *Region) ReadU64(offset uint32) (uint64, error) {
	if err := r.check(offset, 8); err != nil {
		return 0, err
	}
	return r.mem.ReadU64(r.base + offset)
}

func (r *Region) WriteU8(offset uint32, value uint8) error {
	if err := r.check(offset, 1); err != nil {
		return err
	}
	return r.mem.WriteU8(r.base+offset, value)
}

func (r *Region) WriteU16(offset uint32, value uint16) error {
	if err := r.check(offset, 2); err != nil {
		return err
	}
	return r.mem.WriteU16(r.base+offset, value)
}

func (r *Region) WriteU32(offset uint32, value uint32) error {
	if err := r.check(offset, 4); err != nil {
		return err
	}
	return r.mem.WriteU32(r.base+offset, value)
}

func (r *Region) WriteU64(offset uint32, value uint64) error {
	if err := r.check(offset, 8); err != nil {
		return err
	}
	return r.mem.WriteU64(r.base+offset, value)
}
