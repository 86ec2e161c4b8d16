package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLayout   Phase = "layout"   // struct layout computation
	PhaseRead     Phase = "read"     // native memory to logical values
	PhaseWrite    Phase = "write"    // logical values to native memory
	PhaseDescribe Phase = "describe" // type descriptor construction
	PhaseConfig   Phase = "config"   // declaration-time configuration
	PhaseMemory   Phase = "memory"   // raw memory access
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupportedType    Kind = "unsupported_type"
	KindUnsupportedElem    Kind = "unsupported_elem"
	KindUninitializedArray Kind = "uninitialized_array"
	KindUnknownSize        Kind = "unknown_size"
	KindNoSuchField        Kind = "no_such_field"
	KindOneWayConverter    Kind = "one_way_converter"
	KindInvalidSize        Kind = "invalid_size"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindAllocation         Kind = "allocation"
	KindTypeMismatch       Kind = "type_mismatch"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Type sets the offending declared or native type name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnsupportedType creates an unsupported field type error
func UnsupportedType(phase Phase, path []string, typeName string) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindUnsupportedType,
		Path:  path,
		Type:  typeName,
	}
}

// UnsupportedElem creates an unsupported array element type error
func UnsupportedElem(phase Phase, path []string, typeName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedElem,
		Path:   path,
		Type:   typeName,
		Detail: "array element type not supported",
	}
}

// NoSuchField creates an unknown field name error
func NoSuchField(phase Phase, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNoSuchField,
		Detail: fmt.Sprintf("no such field: %q", name),
	}
}

// OneWayConverter creates a one-sided converter registration error
func OneWayConverter(logical string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindOneWayConverter,
		Type:   logical,
		Detail: "converters must be registered in both directions",
	}
}

// UninitializedArray creates an uninitialized array field error
func UninitializedArray(path []string) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindUninitializedArray,
		Path:   path,
		Detail: "array fields must be initialized before a forced size calculation",
	}
}

// UnknownSize creates an undeterminable structure size error
func UnknownSize(defName string) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindUnknownSize,
		Type:   defName,
		Detail: "structure has no fields, size cannot be determined",
	}
}

// InvalidSize creates an invalid explicit size error
func InvalidSize(size int) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidSize,
		Value:  size,
		Detail: fmt.Sprintf("structure size must be greater than zero: %d", size),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, offset, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access at offset %d length %d exceeds size %d", offset, length, size),
	}
}

// TypeMismatch creates a logical value type mismatch error
func TypeMismatch(phase Phase, path []string, got, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("got %s, want %s", got, want),
	}
}
