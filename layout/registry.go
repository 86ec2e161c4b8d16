package layout

import (
	"sync"

	"go.uber.org/zap"

	structlay "github.com/structlay/structlay"
	"github.com/structlay/structlay/field"
)

// Registry caches computed layouts per structure definition. The first
// computation for a definition is serialized: concurrent callers either
// block on the in-progress computation or observe the completed result,
// never a half-built entry. Failed or deferred computations are not cached,
// so a later, better-initialized attempt can still succeed. Variable
// layouts are not cached either: their array counts belong to one
// instance, so every caller gets a fresh computation from its own lens.
//
// A Registry is tied to one Calculator configuration; definitions laid out
// for different platforms or converter sets belong in different registries.
type Registry struct {
	mu      sync.Mutex
	entries map[*field.Definition]*entry
}

type entry struct {
	mu     sync.Mutex
	layout *Layout
}

// NewRegistry creates an empty layout registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[*field.Definition]*entry)}
}

func (r *Registry) entry(def *field.Definition) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[def]
	if !ok {
		e = &entry{}
		r.entries[def] = e
	}
	return e
}

// Resolve returns the layout for def, computing it on first use. Fixed
// layouts are cached; variable ones are computed fresh from lens each time.
func (r *Registry) Resolve(def *field.Definition, calc *Calculator, lens LenFunc, force bool) (*Layout, error) {
	e := r.entry(def)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.layout != nil {
		return e.layout, nil
	}

	l, err := calc.Compute(def, lens, force)
	if err != nil {
		return nil, err
	}
	if !l.Variable {
		e.layout = l
	}

	structlay.Logger().Debug("computed layout",
		zap.String("type", def.Name),
		zap.Stringer("mode", l.Mode),
		zap.Uint32("size", l.Size),
		zap.Uint32("align", l.Align),
	)
	return l, nil
}

// Cached returns the cached layout for def without computing one.
func (r *Registry) Cached(def *field.Definition) (*Layout, bool) {
	r.mu.Lock()
	e, ok := r.entries[def]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layout, e.layout != nil
}

// Invalidate drops the cached layout for def, forcing recomputation on next
// use. Call after changing converter configuration that affects def.
func (r *Registry) Invalidate(def *field.Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, def)
}
