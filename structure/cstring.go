package structure

import (
	"unicode/utf16"

	structlay "github.com/structlay/structlay"
	"github.com/structlay/structlay/errors"
)

// maxStringScan bounds the NUL scan for string fields so a missing
// terminator cannot walk the entire address space.
const maxStringScan = 1 << 20

func (s *Instance) readPointer(off uint32) (uint32, error) {
	if s.plat.PointerSize == 8 {
		v, err := s.region.ReadU64(off)
		return uint32(v), err
	}
	return s.region.ReadU32(off)
}

func (s *Instance) writePointer(off, p uint32) error {
	if s.plat.PointerSize == 8 {
		return s.region.WriteU64(off, uint64(p))
	}
	return s.region.WriteU32(off, p)
}

// readNarrow reads a NUL-terminated byte string starting at ptr.
func readNarrow(mem structlay.Memory, ptr uint32) (string, error) {
	var out []byte
	for i := uint32(0); i < maxStringScan; i++ {
		b, err := mem.ReadU8(ptr + i)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
	}
	return "", errors.New(errors.PhaseRead, errors.KindOutOfBounds).
		Detail("string at address %d has no terminator within %d bytes", ptr, maxStringScan).
		Build()
}

// readWide reads a NUL-terminated wide string of 2- or 4-byte units.
func readWide(mem structlay.Memory, ptr, unit uint32) (string, error) {
	switch unit {
	case 2:
		var units []uint16
		for i := uint32(0); i < maxStringScan; i += 2 {
			u, err := mem.ReadU16(ptr + i)
			if err != nil {
				return "", err
			}
			if u == 0 {
				return string(utf16.Decode(units)), nil
			}
			units = append(units, u)
		}
	case 4:
		var runes []rune
		for i := uint32(0); i < maxStringScan; i += 4 {
			u, err := mem.ReadU32(ptr + i)
			if err != nil {
				return "", err
			}
			if u == 0 {
				return string(runes), nil
			}
			runes = append(runes, rune(u))
		}
	default:
		return "", errors.New(errors.PhaseRead, errors.KindUnsupportedType).
			Detail("unsupported wide character width %d", unit).
			Build()
	}
	return "", errors.New(errors.PhaseRead, errors.KindOutOfBounds).
		Detail("wide string at address %d has no terminator within %d bytes", ptr, maxStringScan).
		Build()
}

// encodeNarrow renders a Go string as NUL-terminated bytes.
func encodeNarrow(s string) []byte {
	out := make([]byte, len(s)+1)
	copy(out, s)
	return out
}

// encodeWide renders a Go string as NUL-terminated wide characters in
// little-endian byte order.
func encodeWide(s string, unit uint32) []byte {
	if unit == 2 {
		units := utf16.Encode([]rune(s))
		out := make([]byte, (len(units)+1)*2)
		for i, u := range units {
			out[i*2] = byte(u)
			out[i*2+1] = byte(u >> 8)
		}
		return out
	}
	runes := []rune(s)
	out := make([]byte, (len(runes)+1)*4)
	for i, r := range runes {
		out[i*4] = byte(r)
		out[i*4+1] = byte(r >> 8)
		out[i*4+2] = byte(r >> 16)
		out[i*4+3] = byte(r >> 24)
	}
	return out
}
