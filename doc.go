// Package structlay computes byte-exact C struct layouts and marshals
// structured values in and out of raw target memory.
//
// Given an ordered catalog of typed fields, the library reproduces the
// memory layout a C compiler would produce for the matching struct under a
// selectable alignment convention, reads and writes individual fields or
// whole structures against any addressable memory, and exports recursive
// native type descriptors for a foreign-call dispatcher.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	structlay/        Root package with core Memory, Allocator and Region types
//	├── abi/          Target platform descriptions and alignment policies
//	├── field/        Field kinds, descriptors and ordered struct definitions
//	├── layout/       Offset/size/alignment calculation with a per-type cache
//	├── structure/    Structure instances: bidirectional field marshaling
//	├── typedesc/     Native type descriptor trees for call dispatchers
//	├── arena/        Host-side byte-slice memory with a simple allocator
//	├── wazeromem/    Adapters for wazero linear memory and guest allocators
//	├── witbind/      Struct definitions derived from WIT record types
//	└── errors/       Structured error types for debugging
//
// # Quick Start
//
// Declare a struct, bind it to memory and marshal values:
//
//	def := field.NewDefinition("POINT",
//	    field.Int32("x"),
//	    field.Int32("y"),
//	)
//
//	pt, err := structure.New(def, structure.WithArena(arena.New(64*1024)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pt.Set("x", int32(10))
//	pt.Set("y", int32(-3))
//	if err := pt.Write(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Alignment Conventions
//
// Three policies are supported, selectable per definition:
//
//   - ModeNone: packed, every field aligned to 1, no trailing padding
//   - ModeNative: each field aligned to its natural size, capped by the
//     target platform's maximum alignment
//   - ModeStrict: natural alignment capped uniformly at 8 bytes
//
// # Thread Safety
//
// Layout and descriptor registries are safe for concurrent use. A structure
// Instance is NOT safe for concurrent Read/Write; callers sharing one
// instance across goroutines must serialize access themselves.
package structlay
