package structure

import (
	stderrors "errors"
	"reflect"

	"go.uber.org/zap"

	structlay "github.com/structlay/structlay"
	"github.com/structlay/structlay/abi"
	"github.com/structlay/structlay/errors"
	"github.com/structlay/structlay/field"
	"github.com/structlay/structlay/layout"
)

// Arena is a memory that can also allocate from itself.
type Arena interface {
	structlay.Memory
	structlay.Allocator
}

// Instance is one structure bound to a region of target memory. It holds
// the cached logical field values, the materialized nested structures, and
// the transient native buffers pinned for string fields.
//
// An Instance is not safe for concurrent Read/Write without external
// synchronization: both mutate the shared backing memory and the per-field
// caches.
type Instance struct {
	def  *field.Definition
	plat abi.Platform
	calc *layout.Calculator
	lreg *layout.Registry

	mem   structlay.Memory
	alloc structlay.Allocator

	region *structlay.Region
	owned  bool
	lay    *layout.Layout

	explicitSize uint32

	values map[string]any
	nested map[string]*Instance
	pinned map[string]pin
}

// pin is one transient native buffer whose lifetime is tied to the instance.
type pin struct {
	ptr   uint32
	size  uint32
	align uint32
}

// Option configures a new Instance.
type Option func(*config)

type config struct {
	plat    abi.Platform
	platSet bool
	mode    abi.Mode
	modeSet bool
	mem     structlay.Memory
	alloc   structlay.Allocator
	lreg    *layout.Registry
	conv    *field.ConverterRegistry
	size    int
	sizeSet bool
}

// WithArena binds the instance to a memory that is also its allocator.
func WithArena(a Arena) Option {
	return func(c *config) {
		c.mem = a
		c.alloc = a
	}
}

// WithMemory binds the instance to a memory and a separate allocator.
// alloc may be nil for instances that only ever borrow external memory.
func WithMemory(mem structlay.Memory, alloc structlay.Allocator) Option {
	return func(c *config) {
		c.mem = mem
		c.alloc = alloc
	}
}

// WithPlatform selects the target platform. The default is wasm32.
func WithPlatform(p abi.Platform) Option {
	return func(c *config) {
		c.plat = p
		c.platSet = true
	}
}

// WithMode overrides the definition's alignment mode for this instance.
// The instance is laid out as a distinct concrete type.
func WithMode(m abi.Mode) Option {
	return func(c *config) {
		c.mode = m
		c.modeSet = true
	}
}

// WithRegistry selects the layout registry. The default is a registry
// shared by all instances using the default platform and no converters.
func WithRegistry(r *layout.Registry) Option {
	return func(c *config) { c.lreg = r }
}

// WithConverters installs a converter registry. Instances with converters
// use their own layout registry unless one is provided explicitly.
func WithConverters(reg *field.ConverterRegistry) Option {
	return func(c *config) { c.conv = reg }
}

// WithSize overrides the computed total size for allocation purposes.
func WithSize(n int) Option {
	return func(c *config) {
		c.size = n
		c.sizeSet = true
	}
}

var defaultRegistry = layout.NewRegistry()

// New creates an instance of def. If an arena is configured and the layout
// is already determinable, backing memory is allocated and zeroed
// immediately; otherwise allocation happens on first forced use.
func New(def *field.Definition, opts ...Option) (*Instance, error) {
	c := config{plat: abi.Wasm32()}
	for _, opt := range opts {
		opt(&c)
	}

	if c.sizeSet && c.size <= 0 {
		return nil, errors.InvalidSize(c.size)
	}
	if c.modeSet {
		def = def.WithMode(c.mode)
	}

	var calcOpts []layout.Option
	if c.conv != nil {
		calcOpts = append(calcOpts, layout.WithConverters(c.conv))
	}

	lreg := c.lreg
	if lreg == nil {
		if c.platSet || c.conv != nil {
			// A custom calculator configuration must not share cache
			// entries with the default one.
			lreg = layout.NewRegistry()
		} else {
			lreg = defaultRegistry
		}
	}

	s := &Instance{
		def:    def,
		plat:   c.plat,
		calc:   layout.NewCalculator(c.plat, calcOpts...),
		lreg:   lreg,
		mem:    c.mem,
		alloc:  c.alloc,
		values: make(map[string]any),
		nested: make(map[string]*Instance),
		pinned: make(map[string]pin),
	}
	if c.sizeSet {
		s.explicitSize = uint32(c.size)
	}

	// Analyze the definition, but don't worry if it cannot be sized yet.
	if _, err := s.resolveLayout(false); err != nil && !stderrors.Is(err, layout.ErrDeferred) {
		return nil, err
	}
	if s.lay != nil || s.explicitSize > 0 {
		if s.mem != nil && s.alloc != nil {
			if err := s.ensureMemory(false); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Definition returns the instance's structure definition.
func (s *Instance) Definition() *field.Definition { return s.def }

// Platform returns the instance's target platform.
func (s *Instance) Platform() abi.Platform { return s.plat }

// resolveLayout computes or fetches the cached layout. With force false a
// deferred computation returns layout.ErrDeferred; the result is only
// cached by the registry when computation succeeds.
func (s *Instance) resolveLayout(force bool) (*layout.Layout, error) {
	if s.lay != nil {
		return s.lay, nil
	}
	l, err := s.lreg.Resolve(s.def, s.calc, s.lens, force)
	if err != nil {
		return nil, err
	}
	s.lay = l
	return l, nil
}

// lens supplies array field lengths from the cached logical values,
// descending through materialized nested structures. Elements of an
// embedded structure array share a single layout, so the length of an
// array nested inside one is taken from the first element that has it.
func (s *Instance) lens(path []string) (int, bool) {
	if len(path) == 0 {
		return 0, false
	}
	name := path[0]
	if _, _, ok := s.def.Field(name); !ok {
		return 0, false
	}
	if len(path) > 1 {
		if child, ok := s.nested[name]; ok && child != nil {
			return child.lens(path[1:])
		}
		if elems, ok := s.values[name].([]*Instance); ok {
			for _, e := range elems {
				if e == nil {
					continue
				}
				if n, ok := e.lens(path[1:]); ok {
					return n, true
				}
			}
		}
		return 0, false
	}
	v, ok := s.values[name]
	if !ok || v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len(), true
	}
	return 0, false
}

// Size returns the structure's total byte size, forcing layout computation.
// A structure with an uninitialized array field faults here.
func (s *Instance) Size() (uint32, error) {
	if s.explicitSize > 0 {
		return s.explicitSize, nil
	}
	l, err := s.resolveLayout(true)
	if err != nil {
		return 0, err
	}
	return l.Size, nil
}

// SizeIfKnown reports the total size without forcing: ok is false while the
// layout is still deferred.
func (s *Instance) SizeIfKnown() (uint32, bool) {
	if s.explicitSize > 0 {
		return s.explicitSize, true
	}
	l, err := s.resolveLayout(false)
	if err != nil {
		return 0, false
	}
	return l.Size, true
}

// ensureMemory allocates and zeroes owned backing memory if the instance is
// not yet bound to any.
func (s *Instance) ensureMemory(force bool) error {
	if s.region != nil {
		return nil
	}

	size := s.explicitSize
	if size == 0 {
		l, err := s.resolveLayout(force)
		if err != nil {
			return err
		}
		size = l.Size
	}

	if s.mem == nil || s.alloc == nil {
		return errors.New(errors.PhaseMemory, errors.KindAllocation).
			Type(s.def.Name).
			Detail("no memory configured for structure").
			Build()
	}
	ptr, err := s.alloc.Alloc(size, s.structAlign())
	if err != nil {
		return errors.AllocationFailed(errors.PhaseMemory, size, s.structAlign())
	}
	s.region = structlay.NewRegion(s.mem, ptr, size)
	s.owned = true
	if err := s.region.Zero(); err != nil {
		return err
	}

	structlay.Logger().Debug("allocated structure memory",
		zap.String("type", s.def.Name),
		zap.Uint32("addr", ptr),
		zap.Uint32("size", size),
	)
	return nil
}

func (s *Instance) structAlign() uint32 {
	if s.lay != nil {
		return s.lay.Align
	}
	return s.plat.MaxAlign
}

// BindAt rebinds the instance onto external memory at addr. Any owned
// backing memory is released; the instance becomes a non-owning view.
func (s *Instance) BindAt(mem structlay.Memory, addr uint32) error {
	size, err := s.Size()
	if err != nil {
		return err
	}
	s.releaseOwned()
	s.mem = mem
	s.region = structlay.NewRegion(mem, addr, size)
	return nil
}

// bindBorrowed rebinds the instance onto a shared sub-region of enclosing
// memory.
func (s *Instance) bindBorrowed(r *structlay.Region) {
	if s.region != nil && s.region.Base() == r.Base() && s.region.Memory() == r.Memory() {
		s.region = r
		return
	}
	s.releaseOwned()
	s.mem = r.Memory()
	s.region = r
}

func (s *Instance) releaseOwned() {
	if s.owned && s.region != nil && s.alloc != nil {
		s.alloc.Free(s.region.Base(), s.region.Size(), s.structAlign())
	}
	s.owned = false
	s.region = nil
}

// Bound reports whether the instance has backing memory.
func (s *Instance) Bound() bool { return s.region != nil }

// Owned reports whether the instance owns its backing memory.
func (s *Instance) Owned() bool { return s.owned }

// Addr returns the absolute address of the structure's first byte, or 0
// while unbound.
func (s *Instance) Addr() uint32 {
	if s.region == nil {
		return 0
	}
	return s.region.Base()
}

// Clear zeroes the backing memory, allocating it first if necessary.
func (s *Instance) Clear() error {
	if err := s.ensureMemory(true); err != nil {
		return err
	}
	return s.region.Zero()
}

// Equal reports whether two instances denote the same structure: the same
// concrete definition over the same backing address.
func (s *Instance) Equal(o *Instance) bool {
	if s == o {
		return true
	}
	if o == nil || s.def != o.def {
		return false
	}
	return s.region != nil && o.region != nil && s.Addr() == o.Addr()
}

// Set stores the logical value for a field. Struct and structptr fields
// take an *Instance of the matching definition (nil writes a null pointer
// for referenced fields).
func (s *Instance) Set(name string, v any) error {
	desc, _, ok := s.def.Field(name)
	if !ok {
		return errors.NoSuchField(errors.PhaseConfig, name)
	}
	switch desc.Kind {
	case field.KindStruct, field.KindStructPtr:
		if v == nil {
			delete(s.nested, name)
			return nil
		}
		child, ok := v.(*Instance)
		if !ok {
			return errors.TypeMismatch(errors.PhaseConfig, []string{name}, typeName(v), "*structure.Instance")
		}
		if child.def.Name != desc.Def.Name {
			return errors.TypeMismatch(errors.PhaseConfig, []string{name}, child.def.Name, desc.Def.Name)
		}
		s.nested[name] = child
	default:
		s.values[name] = v
	}
	return nil
}

// Get returns the cached logical value for a field. Struct and structptr
// fields return the materialized nested *Instance or nil.
func (s *Instance) Get(name string) (any, bool) {
	desc, _, ok := s.def.Field(name)
	if !ok {
		return nil, false
	}
	switch desc.Kind {
	case field.KindStruct, field.KindStructPtr:
		child, ok := s.nested[name]
		if !ok {
			return nil, true
		}
		return child, true
	default:
		v, ok := s.values[name]
		if !ok {
			return nil, true
		}
		return v, true
	}
}

// Sub materializes and returns the nested instance for a struct or
// structptr field.
func (s *Instance) Sub(name string) (*Instance, error) {
	desc, _, ok := s.def.Field(name)
	if !ok {
		return nil, errors.NoSuchField(errors.PhaseConfig, name)
	}
	if desc.Kind != field.KindStruct && desc.Kind != field.KindStructPtr {
		return nil, errors.TypeMismatch(errors.PhaseConfig, []string{name}, desc.TypeName(), "struct or structptr")
	}
	return s.ensureNested(name, desc.Def, nil), nil
}

// ensureNested returns the materialized child for a nested field, creating
// an unbound one on first use. lay, when non-nil, is the child's already
// resolved layout (embedded fields).
func (s *Instance) ensureNested(name string, def *field.Definition, lay *layout.Layout) *Instance {
	if child, ok := s.nested[name]; ok && child != nil {
		return child
	}
	child := s.newChild(def, lay)
	s.nested[name] = child
	return child
}

func (s *Instance) newChild(def *field.Definition, lay *layout.Layout) *Instance {
	return &Instance{
		def:    def,
		plat:   s.plat,
		calc:   s.calc,
		lreg:   s.lreg,
		mem:    s.mem,
		alloc:  s.alloc,
		lay:    lay,
		values: make(map[string]any),
		nested: make(map[string]*Instance),
		pinned: make(map[string]pin),
	}
}

// ToArray turns the instance into the first element of a contiguous array
// of n structures sharing one backing allocation. If the instance owns its
// memory and it is too small, the allocation is enlarged and the current
// contents are carried over. Every element is independently marshaled.
func (s *Instance) ToArray(n int) ([]*Instance, error) {
	if n <= 0 {
		return nil, errors.InvalidSize(n)
	}
	size, err := s.Size()
	if err != nil {
		return nil, err
	}
	if err := s.ensureMemory(true); err != nil {
		return nil, err
	}

	required, ok := abi.SafeMulU32(uint32(n), size)
	if !ok {
		return nil, errors.New(errors.PhaseMemory, errors.KindInvalidSize).
			Detail("array size overflows 32 bits").
			Build()
	}
	if s.owned && s.region.Size() < required {
		if err := s.growOwned(required); err != nil {
			return nil, err
		}
	}

	out := make([]*Instance, n)
	out[0] = s
	for i := 1; i < n; i++ {
		r, err := s.region.Share(uint32(i)*size, size)
		if err != nil {
			return nil, err
		}
		child := s.newChild(s.def, s.lay)
		child.bindBorrowed(r)
		if err := child.Read(); err != nil {
			return nil, err
		}
		out[i] = child
	}
	return out, nil
}

// growOwned reallocates owned backing memory to at least required bytes,
// carrying the current contents over and releasing the old block.
func (s *Instance) growOwned(required uint32) error {
	ptr, err := s.alloc.Alloc(required, s.structAlign())
	if err != nil {
		return errors.AllocationFailed(errors.PhaseMemory, required, s.structAlign())
	}
	next := structlay.NewRegion(s.mem, ptr, required)
	if err := next.Zero(); err != nil {
		return err
	}
	old := s.region
	data, err := old.ReadBytes(0, old.Size())
	if err != nil {
		return err
	}
	if err := next.WriteBytes(0, data); err != nil {
		return err
	}
	s.alloc.Free(old.Base(), old.Size(), s.structAlign())
	s.region = next
	return nil
}

// Free releases all pinned native buffers and, when owned, the backing
// memory itself. The instance is unbound afterwards.
func (s *Instance) Free() {
	for name, p := range s.pinned {
		if s.alloc != nil && p.ptr != 0 {
			s.alloc.Free(p.ptr, p.size, p.align)
		}
		delete(s.pinned, name)
	}
	s.releaseOwned()
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
