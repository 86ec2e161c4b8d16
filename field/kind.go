package field

import "github.com/structlay/structlay/abi"

// Kind is the semantic kind of a structure field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindPointer
	KindString
	KindWString
	KindCallback
	KindStruct    // embedded (by-value) structure
	KindStructPtr // referenced (by-reference) structure
	KindArray
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindInt8:      "int8",
	KindUint8:     "uint8",
	KindInt16:     "int16",
	KindUint16:    "uint16",
	KindInt32:     "int32",
	KindUint32:    "uint32",
	KindInt64:     "int64",
	KindUint64:    "uint64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindPointer:   "pointer",
	KindString:    "string",
	KindWString:   "wstring",
	KindCallback:  "callback",
	KindStruct:    "struct",
	KindStructPtr: "structptr",
	KindArray:     "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether k is a fixed-width numeric kind.
func (k Kind) IsPrimitive() bool {
	return k >= KindInt8 && k <= KindFloat64
}

// IsPointerSized reports whether k occupies exactly one pointer in memory.
func (k Kind) IsPointerSized() bool {
	switch k {
	case KindPointer, KindString, KindWString, KindCallback, KindStructPtr:
		return true
	default:
		return false
	}
}

// Signed reports whether k is a signed integer kind.
func (k Kind) Signed() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	default:
		return false
	}
}

// Natural returns the natural size in bytes of k on plat. Struct and array
// kinds have no intrinsic size and return 0; their sizes come from their
// resolved layouts.
func (k Kind) Natural(plat abi.Platform) uint32 {
	switch k {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	case KindPointer, KindString, KindWString, KindCallback, KindStructPtr:
		return plat.PointerSize
	default:
		return 0
	}
}
