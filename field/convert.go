package field

import (
	"sync"

	"github.com/structlay/structlay/errors"
)

// ToNative transforms a logical value into its native representation. The
// returned value must match the converter's registered native kind.
type ToNative func(v any) (any, error)

// FromNative transforms a freshly read native value back into the logical
// representation.
type FromNative func(v any) (any, error)

// Converter is a resolved bidirectional transform for one logical type.
type Converter struct {
	NativeKind Kind
	To         ToNative
	From       FromNative
}

// ConverterRegistry resolves logical type names to converter pairs. The two
// directions are registered independently; resolving a type with only one
// direction present is a configuration fault.
type ConverterRegistry struct {
	mu   sync.RWMutex
	to   map[string]toEntry
	from map[string]FromNative
}

type toEntry struct {
	kind Kind
	fn   ToNative
}

// NewConverterRegistry creates an empty registry.
func NewConverterRegistry() *ConverterRegistry {
	return &ConverterRegistry{
		to:   make(map[string]toEntry),
		from: make(map[string]FromNative),
	}
}

// RegisterToNative installs the logical-to-native half for a type. kind is
// the native kind the converted value occupies in memory.
func (r *ConverterRegistry) RegisterToNative(logical string, kind Kind, fn ToNative) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to[logical] = toEntry{kind: kind, fn: fn}
}

// RegisterFromNative installs the native-to-logical half for a type.
func (r *ConverterRegistry) RegisterFromNative(logical string, fn FromNative) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.from[logical] = fn
}

// Register installs both halves at once.
func (r *ConverterRegistry) Register(logical string, kind Kind, to ToNative, from FromNative) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to[logical] = toEntry{kind: kind, fn: to}
	r.from[logical] = from
}

// Resolve returns the converter for a logical type, nil when no registration
// exists, or a one_way_converter fault when only one direction is present.
func (r *ConverterRegistry) Resolve(logical string) (*Converter, error) {
	if r == nil || logical == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	to, hasTo := r.to[logical]
	from, hasFrom := r.from[logical]
	switch {
	case hasTo && hasFrom:
		return &Converter{NativeKind: to.kind, To: to.fn, From: from}, nil
	case hasTo || hasFrom:
		return nil, errors.OneWayConverter(logical)
	default:
		return nil, nil
	}
}
