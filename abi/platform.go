package abi

// Platform describes the layout-relevant properties of a target ABI.
// Only little-endian targets are supported.
type Platform struct {
	Name string

	// PointerSize is the width in bytes of pointers, including string,
	// callback and by-reference structure fields.
	PointerSize uint32

	// WCharSize is the width in bytes of one wide-string code unit.
	WCharSize uint32

	// MaxAlign caps natural field alignment under ModeNative.
	MaxAlign uint32

	// FirstFieldNoCap exempts the first field of a structure from the
	// MaxAlign cap. Historical quirk of one gcc/PowerPC ABI; off everywhere
	// else.
	FirstFieldNoCap bool
}

// Wasm32 is a 32-bit WebAssembly target (wasm32-wasi C data layout).
func Wasm32() Platform {
	return Platform{
		Name:        "wasm32",
		PointerSize: 4,
		WCharSize:   4,
		MaxAlign:    8,
	}
}

// LinuxAMD64 is the System V AMD64 ABI as used on Linux.
func LinuxAMD64() Platform {
	return Platform{
		Name:        "linux-amd64",
		PointerSize: 8,
		WCharSize:   4,
		MaxAlign:    8,
	}
}

// Windows64 is the 64-bit Windows ABI. wchar_t is two bytes and struct
// packing follows MSVC rules, so ModeDefault resolves to ModeStrict here.
func Windows64() Platform {
	return Platform{
		Name:        "win64",
		PointerSize: 8,
		WCharSize:   2,
		MaxAlign:    8,
	}
}

// DarwinPPC32 is the legacy gcc/PowerPC Mac OS X ABI. It is the only target
// where the first field of a structure is exempt from the alignment cap.
func DarwinPPC32() Platform {
	return Platform{
		Name:            "darwin-ppc32",
		PointerSize:     4,
		WCharSize:       4,
		MaxAlign:        4,
		FirstFieldNoCap: true,
	}
}

// ByName returns a platform preset by its name.
func ByName(name string) (Platform, bool) {
	switch name {
	case "wasm32":
		return Wasm32(), true
	case "linux-amd64":
		return LinuxAMD64(), true
	case "win64":
		return Windows64(), true
	case "darwin-ppc32":
		return DarwinPPC32(), true
	}
	return Platform{}, false
}
