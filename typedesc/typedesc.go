// Package typedesc builds call-interface type descriptor trees from
// computed structure layouts, in the shape foreign function interfaces
// expect: primitive leaves, pointer leaves, and struct nodes whose element
// list spells out every member, with arrays flattened into repeated
// elements.
package typedesc

import (
	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/errors"
	"github.com/structlay/structlay/field"
	"github.com/structlay/structlay/layout"
)

// Kind is the call-interface type class of a descriptor node.
type Kind uint8

const (
	KindVoid Kind = iota
	KindSInt8
	KindUInt8
	KindSInt16
	KindUInt16
	KindSInt32
	KindUInt32
	KindSInt64
	KindUInt64
	KindFloat
	KindDouble
	KindPointer
	KindStruct
)

var kindNames = [...]string{
	KindVoid:    "void",
	KindSInt8:   "sint8",
	KindUInt8:   "uint8",
	KindSInt16:  "sint16",
	KindUInt16:  "uint16",
	KindSInt32:  "sint32",
	KindUInt32:  "uint32",
	KindSInt64:  "sint64",
	KindUInt64:  "uint64",
	KindFloat:   "float",
	KindDouble:  "double",
	KindPointer: "pointer",
	KindStruct:  "struct",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Descriptor is one node of a type descriptor tree. Primitive and pointer
// nodes are shared singletons; struct nodes own their element list.
type Descriptor struct {
	Kind  Kind
	Size  uint32
	Align uint32

	// Elements lists the member descriptors of a struct node, with array
	// fields flattened into one entry per element.
	Elements []*Descriptor
}

// Shared leaves for the fixed-width primitives.
var (
	Void   = &Descriptor{Kind: KindVoid}
	SInt8  = &Descriptor{Kind: KindSInt8, Size: 1, Align: 1}
	UInt8  = &Descriptor{Kind: KindUInt8, Size: 1, Align: 1}
	SInt16 = &Descriptor{Kind: KindSInt16, Size: 2, Align: 2}
	UInt16 = &Descriptor{Kind: KindUInt16, Size: 2, Align: 2}
	SInt32 = &Descriptor{Kind: KindSInt32, Size: 4, Align: 4}
	UInt32 = &Descriptor{Kind: KindUInt32, Size: 4, Align: 4}
	SInt64 = &Descriptor{Kind: KindSInt64, Size: 8, Align: 8}
	UInt64 = &Descriptor{Kind: KindUInt64, Size: 8, Align: 8}
	Float  = &Descriptor{Kind: KindFloat, Size: 4, Align: 4}
	Double = &Descriptor{Kind: KindDouble, Size: 8, Align: 8}
)

// Builder constructs descriptor trees for one target platform. The pointer
// leaf is built per platform since its width varies.
type Builder struct {
	plat    abi.Platform
	pointer *Descriptor
}

// NewBuilder creates a builder targeting plat.
func NewBuilder(plat abi.Platform) *Builder {
	return &Builder{
		plat: plat,
		pointer: &Descriptor{
			Kind:  KindPointer,
			Size:  plat.PointerSize,
			Align: plat.PointerSize,
		},
	}
}

// Pointer returns the builder's platform pointer leaf.
func (b *Builder) Pointer() *Descriptor { return b.pointer }

// Build turns a completed layout into a struct descriptor node. The node's
// size and alignment are taken from the layout, so padding decisions made
// under the layout's mode carry through.
func (b *Builder) Build(l *layout.Layout) (*Descriptor, error) {
	d := &Descriptor{
		Kind:  KindStruct,
		Size:  l.Size,
		Align: l.Align,
	}
	for i := range l.Slots {
		slot := &l.Slots[i]
		if err := b.appendSlot(d, slot); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (b *Builder) appendSlot(d *Descriptor, slot *layout.Slot) error {
	switch kind := slot.Kind; {
	case kind.IsPrimitive():
		d.Elements = append(d.Elements, primitive(kind))
		return nil

	case kind.IsPointerSized():
		d.Elements = append(d.Elements, b.pointer)
		return nil

	case kind == field.KindStruct:
		sub, err := b.Build(slot.Sub)
		if err != nil {
			return err
		}
		d.Elements = append(d.Elements, sub)
		return nil

	case kind == field.KindArray:
		var elem *Descriptor
		switch ek := slot.ElemKind; {
		case ek.IsPrimitive():
			elem = primitive(ek)
		case ek.IsPointerSized():
			elem = b.pointer
		case ek == field.KindStruct:
			sub, err := b.Build(slot.Sub)
			if err != nil {
				return err
			}
			elem = sub
		default:
			return errors.UnsupportedElem(errors.PhaseDescribe, []string{slot.Desc.Name}, ek.String())
		}
		for i := 0; i < slot.Count; i++ {
			d.Elements = append(d.Elements, elem)
		}
		return nil

	default:
		return errors.UnsupportedType(errors.PhaseDescribe, []string{slot.Desc.Name}, slot.Desc.TypeName())
	}
}

func primitive(kind field.Kind) *Descriptor {
	switch kind {
	case field.KindInt8:
		return SInt8
	case field.KindUint8:
		return UInt8
	case field.KindInt16:
		return SInt16
	case field.KindUint16:
		return UInt16
	case field.KindInt32:
		return SInt32
	case field.KindUint32:
		return UInt32
	case field.KindInt64:
		return SInt64
	case field.KindUint64:
		return UInt64
	case field.KindFloat32:
		return Float
	case field.KindFloat64:
		return Double
	}
	return Void
}
