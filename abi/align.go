package abi

import "math"

// Mode selects the alignment convention used to lay out a structure.
type Mode uint8

const (
	// ModeDefault resolves to the platform's native convention: ModeStrict
	// on Windows targets, ModeNative everywhere else.
	ModeDefault Mode = iota

	// ModeNone packs fields with no padding at all.
	ModeNone

	// ModeNative aligns each field to its natural size, capped by the
	// platform's maximum alignment.
	ModeNative

	// ModeStrict aligns each field to its natural size, capped uniformly
	// at 8 bytes regardless of platform.
	ModeStrict
)

var modeNames = [...]string{
	ModeDefault: "default",
	ModeNone:    "none",
	ModeNative:  "native",
	ModeStrict:  "strict",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ModeByName returns the mode with the given name.
func ModeByName(name string) (Mode, bool) {
	for m, n := range modeNames {
		if n == name {
			return Mode(m), true
		}
	}
	return ModeDefault, false
}

// Resolve replaces ModeDefault with the platform's convention.
func (m Mode) Resolve(plat Platform) Mode {
	if m != ModeDefault {
		return m
	}
	if plat.Name == "win64" {
		return ModeStrict
	}
	return ModeNative
}

const strictMaxAlign = 8

// Alignment returns the resolved alignment for a field whose natural
// alignment is natural, under the given mode. first marks the structure's
// first field, which one platform exempts from the native cap.
func Alignment(mode Mode, plat Platform, natural uint32, first bool) uint32 {
	switch mode.Resolve(plat) {
	case ModeNone:
		return 1
	case ModeStrict:
		return min(strictMaxAlign, natural)
	default:
		if first && plat.FirstFieldNoCap {
			return natural
		}
		return min(plat.MaxAlign, natural)
	}
}

// AlignTo rounds offset up to the next multiple of align.
// align must be a power of two; zero leaves the offset unchanged.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// SafeMulU32 multiplies without overflow; ok is false on overflow.
func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

// SafeAddU32 adds without overflow; ok is false on overflow.
func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}
