package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/field"
	"github.com/structlay/structlay/layout"
)

// catalog is a parsed definition file: the declared structs in order, plus
// the array lengths declared inline.
type catalog struct {
	defs    []*field.Definition
	byName  map[string]*field.Definition
	lengths map[*field.Descriptor]int
}

// parseCatalog reads the definition text format:
//
//	struct POINT
//	  x int32
//	  y int32
//
//	struct SHAPE mode=none
//	  tag      int8
//	  origin   struct POINT
//	  buf      array int16 8
//	  next     structptr POINT
//	  label    string
//	  volatile status int32
//
// Struct references must be declared before use. Array lengths are part of
// the file since a layout is not computable without them.
func parseCatalog(r io.Reader) (*catalog, error) {
	c := &catalog{
		byName:  make(map[string]*field.Definition),
		lengths: make(map[*field.Descriptor]int),
	}

	var (
		curName   string
		curMode   = abi.ModeDefault
		curFields []*field.Descriptor
	)
	flush := func() error {
		if curName == "" {
			return nil
		}
		if len(curFields) == 0 {
			return fmt.Errorf("struct %s has no fields", curName)
		}
		def := field.NewDefinition(curName, curFields...)
		def.Mode = curMode
		c.defs = append(c.defs, def)
		c.byName[curName] = def
		curName, curMode, curFields = "", abi.ModeDefault, nil
		return nil
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tok := strings.Fields(line)

		if tok[0] == "struct" {
			if err := flush(); err != nil {
				return nil, err
			}
			if len(tok) < 2 {
				return nil, fmt.Errorf("line %d: struct needs a name", lineNo)
			}
			curName = tok[1]
			for _, opt := range tok[2:] {
				val, ok := strings.CutPrefix(opt, "mode=")
				if !ok {
					return nil, fmt.Errorf("line %d: unknown struct option %q", lineNo, opt)
				}
				mode, ok := abi.ModeByName(val)
				if !ok {
					return nil, fmt.Errorf("line %d: unknown mode %q", lineNo, val)
				}
				curMode = mode
			}
			continue
		}

		if curName == "" {
			return nil, fmt.Errorf("line %d: field outside a struct block", lineNo)
		}
		desc, err := c.parseField(tok, lineNo)
		if err != nil {
			return nil, err
		}
		curFields = append(curFields, desc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(c.defs) == 0 {
		return nil, fmt.Errorf("no struct declarations found")
	}
	return c, nil
}

func (c *catalog) parseField(tok []string, lineNo int) (*field.Descriptor, error) {
	volatile := false
	if tok[0] == "volatile" {
		volatile = true
		tok = tok[1:]
	}
	if len(tok) < 2 {
		return nil, fmt.Errorf("line %d: want \"name kind\"", lineNo)
	}
	name, kind := tok[0], tok[1]
	rest := tok[2:]

	var desc *field.Descriptor
	switch kind {
	case "struct", "structptr":
		if len(rest) != 1 {
			return nil, fmt.Errorf("line %d: %s needs a struct name", lineNo, kind)
		}
		def, ok := c.byName[rest[0]]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown struct %q", lineNo, rest[0])
		}
		if kind == "struct" {
			desc = field.Struct(name, def)
		} else {
			desc = field.StructPtr(name, def)
		}

	case "array":
		if len(rest) < 2 {
			return nil, fmt.Errorf("line %d: array needs \"array <elem> <len>\"", lineNo)
		}
		var elem *field.Descriptor
		lenTok := rest[len(rest)-1]
		if rest[0] == "struct" {
			if len(rest) != 3 {
				return nil, fmt.Errorf("line %d: want \"array struct <name> <len>\"", lineNo)
			}
			def, ok := c.byName[rest[1]]
			if !ok {
				return nil, fmt.Errorf("line %d: unknown struct %q", lineNo, rest[1])
			}
			elem = field.Struct("", def)
		} else {
			var err error
			elem, err = primitiveDescriptor("", rest[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", lineNo, err)
			}
		}
		n, err := strconv.Atoi(lenTok)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("line %d: bad array length %q", lineNo, lenTok)
		}
		desc = field.Array(name, elem)
		c.lengths[desc] = n

	default:
		var err error
		desc, err = primitiveDescriptor(name, kind)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNo, err)
		}
	}

	if volatile {
		desc = field.Volatile(desc)
	}
	return desc, nil
}

func primitiveDescriptor(name, kind string) (*field.Descriptor, error) {
	switch kind {
	case "int8":
		return field.Int8(name), nil
	case "uint8":
		return field.Uint8(name), nil
	case "int16":
		return field.Int16(name), nil
	case "uint16":
		return field.Uint16(name), nil
	case "int32":
		return field.Int32(name), nil
	case "uint32":
		return field.Uint32(name), nil
	case "int64":
		return field.Int64(name), nil
	case "uint64":
		return field.Uint64(name), nil
	case "float32":
		return field.Float32(name), nil
	case "float64":
		return field.Float64(name), nil
	case "pointer":
		return field.Pointer(name), nil
	case "string":
		return field.String(name), nil
	case "wstring":
		return field.WString(name), nil
	case "callback":
		return field.Callback(name), nil
	}
	return nil, fmt.Errorf("unknown field kind %q", kind)
}

// lens resolves array lengths by walking the root definition down the path
// to the declaring descriptor.
func (c *catalog) lens(root *field.Definition) layout.LenFunc {
	return func(path []string) (int, bool) {
		def := root
		for i, name := range path {
			desc, _, ok := def.Field(name)
			if !ok {
				return 0, false
			}
			if i == len(path)-1 {
				n, ok := c.lengths[desc]
				return n, ok
			}
			switch desc.Kind {
			case field.KindStruct, field.KindStructPtr:
				def = desc.Def
			default:
				return 0, false
			}
		}
		return 0, false
	}
}
