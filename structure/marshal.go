package structure

import (
	"math"

	structlay "github.com/structlay/structlay"
	"github.com/structlay/structlay/errors"
	"github.com/structlay/structlay/field"
	"github.com/structlay/structlay/layout"
)

// debugf is a no-op marshal trace helper. Enable by setting debug = true.
var debug = false

func debugf(format string, args ...any) {
	if debug {
		structlay.Logger().Sugar().Debugf(format, args...)
	}
}

// Read refreshes every cached logical value from backing memory. Fields are
// read in declaration order; the first failing field aborts the pass and
// earlier fields keep their refreshed values.
func (s *Instance) Read() error {
	l, err := s.resolveLayout(true)
	if err != nil {
		return err
	}
	if err := s.ensureMemory(true); err != nil {
		return err
	}
	debugf("read %s at %#x", s.def.Name, s.Addr())
	for i := range l.Slots {
		if err := s.readSlot(&l.Slots[i]); err != nil {
			return err
		}
	}
	return nil
}

// Write flushes every cached logical value into backing memory, skipping
// volatile fields. Fields without a cached value write their zero value.
func (s *Instance) Write() error {
	l, err := s.resolveLayout(true)
	if err != nil {
		return err
	}
	if err := s.ensureMemory(true); err != nil {
		return err
	}
	debugf("write %s at %#x", s.def.Name, s.Addr())
	for i := range l.Slots {
		if l.Slots[i].Desc.Volatile {
			continue
		}
		if err := s.writeSlot(&l.Slots[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadField refreshes one field from backing memory and returns its logical
// value.
func (s *Instance) ReadField(name string) (any, error) {
	l, err := s.resolveLayout(true)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMemory(true); err != nil {
		return nil, err
	}
	slot, ok := l.Slot(name)
	if !ok {
		return nil, errors.NoSuchField(errors.PhaseRead, name)
	}
	if err := s.readSlot(slot); err != nil {
		return nil, err
	}
	v, _ := s.Get(name)
	return v, nil
}

// WriteField flushes one field into backing memory. Unlike Write it does not
// skip volatile fields.
func (s *Instance) WriteField(name string) error {
	l, err := s.resolveLayout(true)
	if err != nil {
		return err
	}
	if err := s.ensureMemory(true); err != nil {
		return err
	}
	slot, ok := l.Slot(name)
	if !ok {
		return errors.NoSuchField(errors.PhaseWrite, name)
	}
	return s.writeSlot(slot)
}

func (s *Instance) readSlot(slot *layout.Slot) error {
	name := slot.Desc.Name
	path := []string{name}

	switch kind := slot.Kind; {
	case kind.IsPrimitive():
		v, err := s.readPrim(kind, slot.Offset)
		if err != nil {
			return err
		}
		return s.storeLogical(slot, path, v)

	case kind == field.KindPointer, kind == field.KindCallback:
		p, err := s.readPointer(slot.Offset)
		if err != nil {
			return err
		}
		return s.storeLogical(slot, path, p)

	case kind == field.KindString, kind == field.KindWString:
		p, err := s.readPointer(slot.Offset)
		if err != nil {
			return err
		}
		if p == 0 {
			return s.storeLogical(slot, path, nil)
		}
		var str string
		if kind == field.KindString {
			str, err = readNarrow(s.mem, p)
		} else {
			str, err = readWide(s.mem, p, s.plat.WCharSize)
		}
		if err != nil {
			return err
		}
		return s.storeLogical(slot, path, str)

	case kind == field.KindStruct:
		child := s.ensureNested(name, slot.Desc.Def, slot.Sub)
		sub, err := s.region.Share(slot.Offset, slot.Size)
		if err != nil {
			return err
		}
		child.bindBorrowed(sub)
		return child.Read()

	case kind == field.KindStructPtr:
		p, err := s.readPointer(slot.Offset)
		if err != nil {
			return err
		}
		if p == 0 {
			delete(s.nested, name)
			return nil
		}
		child, err := s.referenced(s.nested[name], slot.Desc.Def, p)
		if err != nil {
			return err
		}
		s.nested[name] = child
		return child.Read()

	case kind == field.KindArray:
		return s.readArray(slot, path)

	default:
		return errors.UnsupportedType(errors.PhaseRead, path, slot.Desc.TypeName())
	}
}

// referenced returns the instance for a pointed-to structure. When the
// existing instance is already bound at the same address it is reused, so
// repeated reads preserve identity; otherwise a fresh view is created.
func (s *Instance) referenced(existing *Instance, def *field.Definition, addr uint32) (*Instance, error) {
	if existing != nil && existing.Bound() && existing.Addr() == addr {
		return existing, nil
	}
	child := s.newChild(def, nil)
	l, err := child.resolveLayout(true)
	if err != nil {
		return nil, err
	}
	child.region = structlay.NewRegion(s.mem, addr, l.Size)
	return child, nil
}

func (s *Instance) readArray(slot *layout.Slot, path []string) error {
	name := slot.Desc.Name
	n := slot.Count

	switch kind := slot.ElemKind; {
	case kind.IsPrimitive():
		out, err := s.readPrimArray(slot, n)
		if err != nil {
			return err
		}
		s.values[name] = out
		return nil

	case kind == field.KindPointer:
		out := make([]uint32, n)
		for i := 0; i < n; i++ {
			p, err := s.readPointer(slot.Offset + uint32(i)*slot.ElemSize)
			if err != nil {
				return err
			}
			out[i] = p
		}
		s.values[name] = out
		return nil

	case kind == field.KindStruct:
		prev, _ := s.values[name].([]*Instance)
		out := make([]*Instance, n)
		for i := 0; i < n; i++ {
			var child *Instance
			if i < len(prev) && prev[i] != nil {
				child = prev[i]
			} else {
				child = s.newChild(slot.Desc.Elem.Def, slot.Sub)
			}
			sub, err := s.region.Share(slot.Offset+uint32(i)*slot.ElemSize, slot.ElemSize)
			if err != nil {
				return err
			}
			child.bindBorrowed(sub)
			if err := child.Read(); err != nil {
				return err
			}
			out[i] = child
		}
		s.values[name] = out
		return nil

	case kind == field.KindStructPtr:
		prev, _ := s.values[name].([]*Instance)
		out := make([]*Instance, n)
		for i := 0; i < n; i++ {
			p, err := s.readPointer(slot.Offset + uint32(i)*slot.ElemSize)
			if err != nil {
				return err
			}
			if p == 0 {
				continue
			}
			var existing *Instance
			if i < len(prev) {
				existing = prev[i]
			}
			child, err := s.referenced(existing, slot.Desc.Elem.Def, p)
			if err != nil {
				return err
			}
			if err := child.Read(); err != nil {
				return err
			}
			out[i] = child
		}
		s.values[name] = out
		return nil

	default:
		return errors.UnsupportedElem(errors.PhaseRead, path, slot.Desc.Elem.TypeName())
	}
}

func (s *Instance) writeSlot(slot *layout.Slot) error {
	name := slot.Desc.Name
	path := []string{name}

	v := s.values[name]
	if slot.Conv != nil {
		converted, err := slot.Conv.To(v)
		if err != nil {
			return errors.New(errors.PhaseWrite, errors.KindTypeMismatch).
				Path(path...).
				Value(v).
				Cause(err).
				Detail("converter failed").
				Build()
		}
		v = converted
	}

	switch kind := slot.Kind; {
	case kind.IsPrimitive():
		return s.writePrim(kind, slot.Offset, v, path)

	case kind == field.KindPointer, kind == field.KindCallback:
		p, err := asPointer(v, path)
		if err != nil {
			return err
		}
		return s.writePointer(slot.Offset, p)

	case kind == field.KindString, kind == field.KindWString:
		return s.writeString(slot, v, path)

	case kind == field.KindStruct:
		child := s.ensureNested(name, slot.Desc.Def, slot.Sub)
		sub, err := s.region.Share(slot.Offset, slot.Size)
		if err != nil {
			return err
		}
		child.bindBorrowed(sub)
		return child.Write()

	case kind == field.KindStructPtr:
		child := s.nested[name]
		if child == nil {
			return s.writePointer(slot.Offset, 0)
		}
		if err := child.ensureMemory(true); err != nil {
			return err
		}
		if err := s.writePointer(slot.Offset, child.Addr()); err != nil {
			return err
		}
		return child.Write()

	case kind == field.KindArray:
		return s.writeArray(slot, v, path)

	default:
		return errors.UnsupportedType(errors.PhaseWrite, path, slot.Desc.TypeName())
	}
}

// writeString marshals a string field: the new native buffer is allocated
// and filled first, then the pointer slot is updated, and only then is the
// previously pinned buffer released.
func (s *Instance) writeString(slot *layout.Slot, v any, path []string) error {
	name := slot.Desc.Name

	if v == nil {
		if err := s.writePointer(slot.Offset, 0); err != nil {
			return err
		}
		s.unpin(name)
		return nil
	}
	str, ok := v.(string)
	if !ok {
		return errors.TypeMismatch(errors.PhaseWrite, path, typeName(v), "string")
	}

	var data []byte
	var align uint32 = 1
	if slot.Kind == field.KindWString {
		data = encodeWide(str, s.plat.WCharSize)
		align = s.plat.WCharSize
	} else {
		data = encodeNarrow(str)
	}

	if s.alloc == nil {
		return errors.New(errors.PhaseWrite, errors.KindAllocation).
			Path(path...).
			Detail("no allocator configured for string field").
			Build()
	}
	ptr, err := s.alloc.Alloc(uint32(len(data)), align)
	if err != nil {
		return errors.AllocationFailed(errors.PhaseWrite, uint32(len(data)), align)
	}
	if err := s.mem.Write(ptr, data); err != nil {
		return err
	}
	if err := s.writePointer(slot.Offset, ptr); err != nil {
		return err
	}
	s.unpin(name)
	s.pinned[name] = pin{ptr: ptr, size: uint32(len(data)), align: align}
	return nil
}

func (s *Instance) unpin(name string) {
	if p, ok := s.pinned[name]; ok {
		if s.alloc != nil && p.ptr != 0 {
			s.alloc.Free(p.ptr, p.size, p.align)
		}
		delete(s.pinned, name)
	}
}

func (s *Instance) writeArray(slot *layout.Slot, v any, path []string) error {
	n := slot.Count

	switch kind := slot.ElemKind; {
	case kind.IsPrimitive():
		return s.writePrimArray(slot, v, path)

	case kind == field.KindPointer:
		data, err := asSlice[uint32](v, n, path, "[]uint32")
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := s.writePointer(slot.Offset+uint32(i)*slot.ElemSize, data[i]); err != nil {
				return err
			}
		}
		return nil

	case kind == field.KindStruct:
		data, err := asSlice[*Instance](v, n, path, "[]*structure.Instance")
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			child := data[i]
			if child == nil {
				child = s.newChild(slot.Desc.Elem.Def, slot.Sub)
				data[i] = child
			}
			sub, err := s.region.Share(slot.Offset+uint32(i)*slot.ElemSize, slot.ElemSize)
			if err != nil {
				return err
			}
			child.bindBorrowed(sub)
			if err := child.Write(); err != nil {
				return err
			}
		}
		return nil

	case kind == field.KindStructPtr:
		// Only the pointer table is written; pointed-to structures are
		// flushed by their own instances.
		data, err := asSlice[*Instance](v, n, path, "[]*structure.Instance")
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			var p uint32
			if data[i] != nil {
				if err := data[i].ensureMemory(true); err != nil {
					return err
				}
				p = data[i].Addr()
			}
			if err := s.writePointer(slot.Offset+uint32(i)*slot.ElemSize, p); err != nil {
				return err
			}
		}
		return nil

	default:
		return errors.UnsupportedElem(errors.PhaseWrite, path, slot.Desc.Elem.TypeName())
	}
}

// storeLogical maps a freshly read native value back through the field's
// converter, if any, and caches the result.
func (s *Instance) storeLogical(slot *layout.Slot, path []string, v any) error {
	if slot.Conv != nil {
		logical, err := slot.Conv.From(v)
		if err != nil {
			return errors.New(errors.PhaseRead, errors.KindTypeMismatch).
				Path(path...).
				Value(v).
				Cause(err).
				Detail("converter failed").
				Build()
		}
		v = logical
	}
	s.values[slot.Desc.Name] = v
	return nil
}

func (s *Instance) readPrim(kind field.Kind, off uint32) (any, error) {
	switch kind {
	case field.KindInt8:
		v, err := s.region.ReadU8(off)
		return int8(v), err
	case field.KindUint8:
		return s.region.ReadU8(off)
	case field.KindInt16:
		v, err := s.region.ReadU16(off)
		return int16(v), err
	case field.KindUint16:
		return s.region.ReadU16(off)
	case field.KindInt32:
		v, err := s.region.ReadU32(off)
		return int32(v), err
	case field.KindUint32:
		return s.region.ReadU32(off)
	case field.KindInt64:
		v, err := s.region.ReadU64(off)
		return int64(v), err
	case field.KindUint64:
		return s.region.ReadU64(off)
	case field.KindFloat32:
		v, err := s.region.ReadU32(off)
		return math.Float32frombits(v), err
	case field.KindFloat64:
		v, err := s.region.ReadU64(off)
		return math.Float64frombits(v), err
	}
	return nil, errors.UnsupportedType(errors.PhaseRead, nil, kind.String())
}

func (s *Instance) writePrim(kind field.Kind, off uint32, v any, path []string) error {
	switch kind {
	case field.KindInt8:
		n, err := asPrim[int8](v, path, "int8")
		if err != nil {
			return err
		}
		return s.region.WriteU8(off, uint8(n))
	case field.KindUint8:
		n, err := asPrim[uint8](v, path, "uint8")
		if err != nil {
			return err
		}
		return s.region.WriteU8(off, n)
	case field.KindInt16:
		n, err := asPrim[int16](v, path, "int16")
		if err != nil {
			return err
		}
		return s.region.WriteU16(off, uint16(n))
	case field.KindUint16:
		n, err := asPrim[uint16](v, path, "uint16")
		if err != nil {
			return err
		}
		return s.region.WriteU16(off, n)
	case field.KindInt32:
		n, err := asPrim[int32](v, path, "int32")
		if err != nil {
			return err
		}
		return s.region.WriteU32(off, uint32(n))
	case field.KindUint32:
		n, err := asPrim[uint32](v, path, "uint32")
		if err != nil {
			return err
		}
		return s.region.WriteU32(off, n)
	case field.KindInt64:
		n, err := asPrim[int64](v, path, "int64")
		if err != nil {
			return err
		}
		return s.region.WriteU64(off, uint64(n))
	case field.KindUint64:
		n, err := asPrim[uint64](v, path, "uint64")
		if err != nil {
			return err
		}
		return s.region.WriteU64(off, n)
	case field.KindFloat32:
		n, err := asPrim[float32](v, path, "float32")
		if err != nil {
			return err
		}
		return s.region.WriteU32(off, math.Float32bits(n))
	case field.KindFloat64:
		n, err := asPrim[float64](v, path, "float64")
		if err != nil {
			return err
		}
		return s.region.WriteU64(off, math.Float64bits(n))
	}
	return errors.UnsupportedType(errors.PhaseWrite, path, kind.String())
}

func (s *Instance) readPrimArray(slot *layout.Slot, n int) (any, error) {
	switch slot.ElemKind {
	case field.KindInt8:
		return readElems[int8](s, slot, n)
	case field.KindUint8:
		return readElems[uint8](s, slot, n)
	case field.KindInt16:
		return readElems[int16](s, slot, n)
	case field.KindUint16:
		return readElems[uint16](s, slot, n)
	case field.KindInt32:
		return readElems[int32](s, slot, n)
	case field.KindUint32:
		return readElems[uint32](s, slot, n)
	case field.KindInt64:
		return readElems[int64](s, slot, n)
	case field.KindUint64:
		return readElems[uint64](s, slot, n)
	case field.KindFloat32:
		return readElems[float32](s, slot, n)
	case field.KindFloat64:
		return readElems[float64](s, slot, n)
	}
	return nil, errors.UnsupportedElem(errors.PhaseRead, []string{slot.Desc.Name}, slot.ElemKind.String())
}

func readElems[T any](s *Instance, slot *layout.Slot, n int) ([]T, error) {
	out := make([]T, n)
	for i := 0; i < n; i++ {
		v, err := s.readPrim(slot.ElemKind, slot.Offset+uint32(i)*slot.ElemSize)
		if err != nil {
			return nil, err
		}
		out[i] = v.(T)
	}
	return out, nil
}

func (s *Instance) writePrimArray(slot *layout.Slot, v any, path []string) error {
	switch slot.ElemKind {
	case field.KindInt8:
		return writeElems[int8](s, slot, v, path, "[]int8")
	case field.KindUint8:
		return writeElems[uint8](s, slot, v, path, "[]uint8")
	case field.KindInt16:
		return writeElems[int16](s, slot, v, path, "[]int16")
	case field.KindUint16:
		return writeElems[uint16](s, slot, v, path, "[]uint16")
	case field.KindInt32:
		return writeElems[int32](s, slot, v, path, "[]int32")
	case field.KindUint32:
		return writeElems[uint32](s, slot, v, path, "[]uint32")
	case field.KindInt64:
		return writeElems[int64](s, slot, v, path, "[]int64")
	case field.KindUint64:
		return writeElems[uint64](s, slot, v, path, "[]uint64")
	case field.KindFloat32:
		return writeElems[float32](s, slot, v, path, "[]float32")
	case field.KindFloat64:
		return writeElems[float64](s, slot, v, path, "[]float64")
	}
	return errors.UnsupportedElem(errors.PhaseWrite, path, slot.ElemKind.String())
}

func writeElems[T any](s *Instance, slot *layout.Slot, v any, path []string, want string) error {
	data, err := asSlice[T](v, slot.Count, path, want)
	if err != nil {
		return err
	}
	for i := 0; i < slot.Count; i++ {
		if err := s.writePrim(slot.ElemKind, slot.Offset+uint32(i)*slot.ElemSize, data[i], path); err != nil {
			return err
		}
	}
	return nil
}

// asPrim extracts a primitive of the exact expected type, treating a missing
// value as the zero value.
func asPrim[T any](v any, path []string, want string) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	n, ok := v.(T)
	if !ok {
		return zero, errors.TypeMismatch(errors.PhaseWrite, path, typeName(v), want)
	}
	return n, nil
}

func asPointer(v any, path []string) (uint32, error) {
	if v == nil {
		return 0, nil
	}
	p, ok := v.(uint32)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseWrite, path, typeName(v), "uint32 address")
	}
	return p, nil
}

// asSlice extracts a typed slice whose length matches the laid-out element
// count. A different length means the value changed after layout.
func asSlice[T any](v any, count int, path []string, want string) ([]T, error) {
	if v == nil {
		return nil, errors.UninitializedArray(path)
	}
	data, ok := v.([]T)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseWrite, path, typeName(v), want)
	}
	if len(data) != count {
		return nil, errors.New(errors.PhaseWrite, errors.KindInvalidSize).
			Path(path...).
			Detail("array length %d does not match laid-out count %d", len(data), count).
			Build()
	}
	return data, nil
}
