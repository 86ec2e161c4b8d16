// Package layout computes byte-exact structure layouts.
//
// A Calculator walks a field definition in declaration order, resolving
// each field's effective native kind (after converters), its size and its
// alignment under the definition's mode, and assigns padded offsets.
// Embedded structure fields are laid out recursively first; their computed
// alignment propagates into the enclosing structure.
//
// Array field lengths come from the current logical value. When a length is
// not yet known the computation returns ErrDeferred rather than a fault, so
// the caller can initialize the field and retry.
//
// A Registry caches completed layouts per definition for process lifetime;
// failures and deferrals are never cached.
package layout
