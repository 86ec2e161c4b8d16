package layout

import (
	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/field"
)

// Slot is one field placed inside a computed layout.
type Slot struct {
	Desc *field.Descriptor

	// Conv is the resolved converter for mapped logical types, nil otherwise.
	Conv *field.Converter

	// Kind is the effective native kind: the converter's native kind when a
	// converter is registered, the declared kind otherwise.
	Kind field.Kind

	Offset uint32
	Size   uint32
	Align  uint32

	// Array fields only.
	Count    int
	ElemSize uint32
	ElemKind field.Kind

	// Sub is the resolved nested layout for embedded structure fields and
	// for arrays of embedded structures.
	Sub *Layout
}

// Layout is the computed memory layout of one structure definition.
type Layout struct {
	Def   *field.Definition
	Mode  abi.Mode // resolved, never ModeDefault
	Size  uint32
	Align uint32
	Slots []Slot

	// Variable marks a layout that contains an array slot, directly or in
	// an embedded structure. Array counts come from one instance's logical
	// values, so a variable layout is valid only for the instance it was
	// computed for and is never shared through a Registry.
	Variable bool

	index map[string]int
}

// Slot returns the placed field with the given name.
func (l *Layout) Slot(name string) (*Slot, bool) {
	i, ok := l.index[name]
	if !ok {
		return nil, false
	}
	return &l.Slots[i], true
}

// OffsetOf returns the byte offset of a field.
func (l *Layout) OffsetOf(name string) (uint32, bool) {
	s, ok := l.Slot(name)
	if !ok {
		return 0, false
	}
	return s.Offset, true
}

// Padded reports whether the structure's total size includes tail padding,
// which is the case under every mode except ModeNone.
func (l *Layout) Padded() bool {
	return l.Mode != abi.ModeNone
}
