// Package structure marshals logical field values to and from native
// structure memory.
//
// An Instance pairs a field definition with a region of target memory. Read
// refreshes the cached logical values from memory; Write flushes them back,
// skipping volatile fields. Nested structures are materialized as child
// instances: embedded fields share the parent's region, referenced fields
// point at their own allocations, and re-reading an unchanged reference
// preserves the existing child instance.
//
// String and wide-string fields allocate NUL-terminated native buffers on
// write and keep them pinned until the field is overwritten or the instance
// is freed.
//
// The reuse check for referenced structures compares the stored address
// against the one just read; if another writer mutates the backing memory
// between that check and the recursive read, the result is whatever bytes
// were current at each access. Coordinating with outside writers of the
// same memory is the caller's responsibility.
package structure
