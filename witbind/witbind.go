// Package witbind derives structure definitions from WIT record types, so
// layouts for component-model guests can be declared once in WIT and reused
// on the host side.
//
// Only shapes with a direct C-layout representation are supported: fixed
// primitives, chars, strings (as NUL-terminated pointers) and nested
// records. Lists, variants, options and resources have no flat layout and
// are rejected.
package witbind

import (
	"go.bytecodealliance.org/wit"

	"github.com/structlay/structlay/errors"
	"github.com/structlay/structlay/field"
)

// Definition builds a structure definition named name from a WIT record.
func Definition(name string, r *wit.Record) (*field.Definition, error) {
	if r == nil || len(r.Fields) == 0 {
		return nil, errors.UnknownSize(name)
	}
	fields := make([]*field.Descriptor, 0, len(r.Fields))
	for i := range r.Fields {
		f := &r.Fields[i]
		desc, err := descriptor(f.Name, f.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, desc)
	}
	return field.NewDefinition(name, fields...), nil
}

// FromTypeDef builds a definition from a type definition whose kind is a
// record, unwrapping aliases.
func FromTypeDef(name string, td *wit.TypeDef) (*field.Definition, error) {
	for td != nil {
		switch kind := td.Kind.(type) {
		case *wit.Record:
			return Definition(name, kind)
		case *wit.TypeDef:
			td = kind
		default:
			return nil, errors.New(errors.PhaseConfig, errors.KindUnsupportedType).
				Type(name).
				Detail("WIT type is not a record").
				Build()
		}
	}
	return nil, errors.UnknownSize(name)
}

func descriptor(name string, t wit.Type) (*field.Descriptor, error) {
	switch wt := t.(type) {
	case wit.Bool:
		return field.Uint8(name), nil
	case wit.U8:
		return field.Uint8(name), nil
	case wit.S8:
		return field.Int8(name), nil
	case wit.U16:
		return field.Uint16(name), nil
	case wit.S16:
		return field.Int16(name), nil
	case wit.U32:
		return field.Uint32(name), nil
	case wit.S32:
		return field.Int32(name), nil
	case wit.U64:
		return field.Uint64(name), nil
	case wit.S64:
		return field.Int64(name), nil
	case wit.F32:
		return field.Float32(name), nil
	case wit.F64:
		return field.Float64(name), nil
	case wit.Char:
		return field.Uint32(name), nil
	case wit.String:
		return field.String(name), nil
	case *wit.TypeDef:
		return typeDefDescriptor(name, wt)
	default:
		return nil, errors.New(errors.PhaseConfig, errors.KindUnsupportedType).
			Path(name).
			Detail("unsupported WIT type: %T", t).
			Build()
	}
}

func typeDefDescriptor(name string, td *wit.TypeDef) (*field.Descriptor, error) {
	switch kind := td.Kind.(type) {
	case *wit.Record:
		sub, err := Definition(name, kind)
		if err != nil {
			return nil, err
		}
		return field.Struct(name, sub), nil
	case *wit.TypeDef:
		return typeDefDescriptor(name, kind)
	case wit.Type:
		// Alias of a primitive.
		return descriptor(name, kind)
	default:
		return nil, errors.New(errors.PhaseConfig, errors.KindUnsupportedType).
			Path(name).
			Detail("unsupported TypeDef kind: %T", kind).
			Build()
	}
}
