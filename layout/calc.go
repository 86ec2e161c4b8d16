package layout

import (
	stderrors "errors"

	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/errors"
	"github.com/structlay/structlay/field"
)

// ErrDeferred signals that a layout cannot be computed yet because an array
// field has no backing value to take its length from. The computation may
// succeed later once the field is initialized; deferral is never cached.
var ErrDeferred = stderrors.New("layout: size not yet determinable")

// LenFunc reports the current length of the array field at the given path,
// relative to the root definition of the computation. ok is false when the
// field has no backing value yet.
type LenFunc func(path []string) (int, bool)

// NoLengths is a LenFunc for definitions without array fields.
func NoLengths(path []string) (int, bool) { return 0, false }

// Calculator computes layouts for one target platform.
type Calculator struct {
	plat abi.Platform
	conv *field.ConverterRegistry
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithConverters installs the converter registry consulted for fields with
// a logical type.
func WithConverters(reg *field.ConverterRegistry) Option {
	return func(c *Calculator) { c.conv = reg }
}

// NewCalculator creates a calculator targeting plat.
func NewCalculator(plat abi.Platform, opts ...Option) *Calculator {
	c := &Calculator{plat: plat}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Platform returns the calculator's target platform.
func (c *Calculator) Platform() abi.Platform { return c.plat }

// Converters returns the calculator's converter registry, which may be nil.
func (c *Calculator) Converters() *field.ConverterRegistry { return c.conv }

// Compute lays out def. lens supplies array field lengths; force turns an
// indeterminable array length from a deferral into a fault.
//
// Offsets are assigned in declaration order: each field is padded up to its
// resolved alignment, and the total size is padded to a multiple of the
// structure alignment unless the mode is ModeNone.
func (c *Calculator) Compute(def *field.Definition, lens LenFunc, force bool) (*Layout, error) {
	return c.compute(def, lens, force, nil)
}

func (c *Calculator) compute(def *field.Definition, lens LenFunc, force bool, path []string) (*Layout, error) {
	if def.Len() == 0 {
		return nil, errors.UnknownSize(def.Name)
	}

	mode := def.Mode.Resolve(c.plat)
	l := &Layout{
		Def:   def,
		Mode:  mode,
		Align: 1,
		Slots: make([]Slot, 0, def.Len()),
		index: make(map[string]int, def.Len()),
	}

	var running uint32
	for i, f := range def.Fields() {
		fieldPath := append(append([]string{}, path...), f.Name)
		slot, err := c.slot(f, mode, i == 0, lens, force, fieldPath)
		if err != nil {
			return nil, err
		}

		running = abi.AlignTo(running, slot.Align)
		slot.Offset = running

		next, ok := abi.SafeAddU32(running, slot.Size)
		if !ok {
			return nil, errors.New(errors.PhaseLayout, errors.KindInvalidSize).
				Path(fieldPath...).
				Detail("structure size overflows 32 bits").
				Build()
		}
		running = next

		if slot.Align > l.Align {
			l.Align = slot.Align
		}
		if slot.Kind == field.KindArray || (slot.Sub != nil && slot.Sub.Variable) {
			l.Variable = true
		}
		l.index[f.Name] = len(l.Slots)
		l.Slots = append(l.Slots, slot)
	}

	l.Size = running
	if mode != abi.ModeNone {
		l.Size = abi.AlignTo(l.Size, l.Align)
	}
	return l, nil
}

func (c *Calculator) slot(f *field.Descriptor, mode abi.Mode, first bool, lens LenFunc, force bool, path []string) (Slot, error) {
	slot := Slot{Desc: f, Kind: f.Kind}

	conv, err := c.conv.Resolve(f.Logical)
	if err != nil {
		return Slot{}, err
	}
	if conv != nil {
		// The converter's native type replaces the declared type for sizing.
		slot.Conv = conv
		slot.Kind = conv.NativeKind
	}

	switch kind := slot.Kind; {
	case kind.IsPrimitive() || kind.IsPointerSized():
		natural := kind.Natural(c.plat)
		slot.Size = natural
		slot.Align = abi.Alignment(mode, c.plat, natural, first)

	case kind == field.KindStruct:
		sub, err := c.compute(f.Def, lens, force, path)
		if err != nil {
			return Slot{}, err
		}
		slot.Sub = sub
		slot.Size = sub.Size
		slot.Align = abi.Alignment(mode, c.plat, sub.Align, first)

	case kind == field.KindArray:
		return c.arraySlot(slot, f, mode, first, lens, force, path)

	default:
		return Slot{}, errors.UnsupportedType(errors.PhaseLayout, path, f.TypeName())
	}

	return slot, nil
}

func (c *Calculator) arraySlot(slot Slot, f *field.Descriptor, mode abi.Mode, first bool, lens LenFunc, force bool, path []string) (Slot, error) {
	elem := f.Elem
	if elem == nil {
		return Slot{}, errors.UnsupportedType(errors.PhaseLayout, path, f.TypeName())
	}

	var natural uint32
	switch kind := elem.Kind; {
	case kind.IsPrimitive() || kind.IsPointerSized():
		natural = kind.Natural(c.plat)
		slot.ElemSize = natural
	case kind == field.KindStruct:
		sub, err := c.compute(elem.Def, lens, force, path)
		if err != nil {
			return Slot{}, err
		}
		slot.Sub = sub
		slot.ElemSize = sub.Size
		natural = sub.Align
	default:
		return Slot{}, errors.UnsupportedElem(errors.PhaseLayout, path, elem.TypeName())
	}
	slot.ElemKind = elem.Kind

	n, ok := lens(path)
	if !ok {
		if force {
			return Slot{}, errors.UninitializedArray(path)
		}
		return Slot{}, ErrDeferred
	}
	if n <= 0 {
		return Slot{}, errors.New(errors.PhaseLayout, errors.KindInvalidSize).
			Path(path...).
			Detail("arrays of length zero are not allowed in a structure").
			Build()
	}
	slot.Count = n

	size, ok := abi.SafeMulU32(uint32(n), slot.ElemSize)
	if !ok {
		return Slot{}, errors.New(errors.PhaseLayout, errors.KindInvalidSize).
			Path(path...).
			Detail("array size overflows 32 bits").
			Build()
	}
	slot.Size = size
	slot.Align = abi.Alignment(mode, c.plat, natural, first)
	return slot, nil
}

