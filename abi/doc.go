// Package abi describes target platforms and alignment conventions.
//
// A Platform carries the layout-relevant constants of one target (pointer
// width, wide-character width, maximum natural alignment). A Mode selects
// how field alignment is derived from a field's natural size: packed,
// native (capped by the platform), or strict (capped at 8 bytes).
//
// The resolved alignment of every field, and with it every offset and the
// structure's total size, must match the corresponding real-world C ABI
// bit for bit.
package abi
