package field

import (
	"sync"

	"github.com/structlay/structlay/abi"
)

// Descriptor declares one field of a native structure.
type Descriptor struct {
	Name string
	Kind Kind

	// Elem is the element descriptor for array fields.
	Elem *Descriptor

	// Def is the nested definition for struct and structptr fields.
	Def *Definition

	// Logical names the converter registration applied to this field.
	// Empty means the declared kind is also the native kind.
	Logical string

	// Volatile excludes the field from automatic full-structure writes.
	Volatile bool
}

// TypeName renders the declared type for error messages.
func (d *Descriptor) TypeName() string {
	switch d.Kind {
	case KindArray:
		if d.Elem != nil {
			return "array of " + d.Elem.TypeName()
		}
		return "array"
	case KindStruct, KindStructPtr:
		if d.Def != nil {
			return d.Kind.String() + " " + d.Def.Name
		}
	}
	if d.Logical != "" {
		return d.Logical
	}
	return d.Kind.String()
}

// Definition is an ordered catalog of field declarations for one concrete
// structure type. Field order is exactly declaration order; no runtime
// introspection is involved.
type Definition struct {
	Name   string
	Mode   abi.Mode
	fields []*Descriptor
	index  map[string]int

	modeMu sync.Mutex
	modes  map[abi.Mode]*Definition
}

// NewDefinition creates a definition from an explicit ordered field list.
func NewDefinition(name string, fields ...*Descriptor) *Definition {
	d := &Definition{
		Name:   name,
		Mode:   abi.ModeDefault,
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		d.index[f.Name] = i
	}
	return d
}

// WithMode returns the definition under a different alignment mode. The
// result is a distinct concrete type with its own cached layout, but it is
// memoized per mode: repeated calls with the same mode return the same
// definition, so like-configured instances compare equal and share one
// layout cache entry. Asking for the current mode returns the receiver.
func (d *Definition) WithMode(mode abi.Mode) *Definition {
	if mode == d.Mode {
		return d
	}
	d.modeMu.Lock()
	defer d.modeMu.Unlock()
	if c, ok := d.modes[mode]; ok {
		return c
	}
	c := NewDefinition(d.Name, d.fields...)
	c.Mode = mode
	if d.modes == nil {
		d.modes = make(map[abi.Mode]*Definition)
	}
	d.modes[mode] = c
	return c
}

// Fields returns the ordered field descriptors.
func (d *Definition) Fields() []*Descriptor { return d.fields }

// Len returns the number of declared fields.
func (d *Definition) Len() int { return len(d.fields) }

// Field looks up a descriptor and its declaration index by name.
func (d *Definition) Field(name string) (*Descriptor, int, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, 0, false
	}
	return d.fields[i], i, true
}

// Descriptor constructors.

func Int8(name string) *Descriptor    { return &Descriptor{Name: name, Kind: KindInt8} }
func Uint8(name string) *Descriptor   { return &Descriptor{Name: name, Kind: KindUint8} }
func Int16(name string) *Descriptor   { return &Descriptor{Name: name, Kind: KindInt16} }
func Uint16(name string) *Descriptor  { return &Descriptor{Name: name, Kind: KindUint16} }
func Int32(name string) *Descriptor   { return &Descriptor{Name: name, Kind: KindInt32} }
func Uint32(name string) *Descriptor  { return &Descriptor{Name: name, Kind: KindUint32} }
func Int64(name string) *Descriptor   { return &Descriptor{Name: name, Kind: KindInt64} }
func Uint64(name string) *Descriptor  { return &Descriptor{Name: name, Kind: KindUint64} }
func Float32(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindFloat32} }
func Float64(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindFloat64} }

// Pointer declares an untyped native pointer field.
func Pointer(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindPointer} }

// String declares a pointer to a NUL-terminated narrow string.
func String(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindString} }

// WString declares a pointer to a NUL-terminated wide string.
func WString(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindWString} }

// Callback declares a function-pointer field. The trampoline machinery
// lives outside this library; the logical value is the raw code address.
func Callback(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindCallback} }

// Struct declares an embedded (by-value) structure field.
func Struct(name string, def *Definition) *Descriptor {
	return &Descriptor{Name: name, Kind: KindStruct, Def: def}
}

// StructPtr declares a referenced (by-reference) structure field.
func StructPtr(name string, def *Definition) *Descriptor {
	return &Descriptor{Name: name, Kind: KindStructPtr, Def: def}
}

// Array declares a fixed-length array field. The length is taken from the
// current logical value; until one is set the enclosing layout is deferred.
func Array(name string, elem *Descriptor) *Descriptor {
	return &Descriptor{Name: name, Kind: KindArray, Elem: elem}
}

// Converted declares a field stored through a registered converter. The
// native kind and both transforms are resolved from the converter registry
// at layout time.
func Converted(name, logical string) *Descriptor {
	return &Descriptor{Name: name, Logical: logical}
}

// Volatile marks a descriptor as excluded from automatic writes.
func Volatile(d *Descriptor) *Descriptor {
	d.Volatile = true
	return d
}
