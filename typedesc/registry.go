package typedesc

import (
	"sync"

	"go.uber.org/zap"

	structlay "github.com/structlay/structlay"
	"github.com/structlay/structlay/field"
	"github.com/structlay/structlay/layout"
)

// Registry caches one descriptor tree per structure definition. Entries are
// retained until explicitly retired: a definition whose descriptor may still
// be referenced by in-flight native calls must not be retired. Variable
// layouts carry per-instance array counts and are rebuilt on every call
// instead of being cached.
type Registry struct {
	mu      sync.Mutex
	builder *Builder
	entries map[*field.Definition]*Descriptor
}

// NewRegistry creates a registry building descriptors with b.
func NewRegistry(b *Builder) *Registry {
	return &Registry{
		builder: b,
		entries: make(map[*field.Definition]*Descriptor),
	}
}

// Resolve returns the cached descriptor for the layout's definition,
// building and caching it on first use. Concurrent first use is serialized;
// every caller observes the same tree.
func (r *Registry) Resolve(l *layout.Layout) (*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.entries[l.Def]; ok {
		return d, nil
	}
	d, err := r.builder.Build(l)
	if err != nil {
		return nil, err
	}
	if !l.Variable {
		r.entries[l.Def] = d
	}

	structlay.Logger().Debug("built type descriptor",
		zap.String("type", l.Def.Name),
		zap.Int("elements", len(d.Elements)),
	)
	return d, nil
}

// Cached returns the cached descriptor without building one.
func (r *Registry) Cached(def *field.Definition) (*Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.entries[def]
	return d, ok
}

// Retire drops the cached descriptor for a definition that is no longer in
// use.
func (r *Registry) Retire(def *field.Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, def)
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
