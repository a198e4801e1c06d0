package convertor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownConvertor is returned for a key no convertor is registered under.
var ErrUnknownConvertor = errors.New("unknown convertor")

// Factory creates a fresh convertor instance for one run.
type Factory func() Convertor

type entry struct {
	factory    Factory
	meta       *Meta
	selectable bool
	seq        int
}

// Registry maps convertor keys to factories. Registering a key again
// replaces the previous entry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	seq     int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

// Register adds factory under the key of the convertor it creates.
// Selectable convertors are listed by Keys and MetaList.
func (r *Registry) Register(factory Factory, selectable bool) {
	meta := factory().Meta()

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[meta.Key]
	if !ok {
		r.seq++
		e = &entry{seq: r.seq}
		r.entries[meta.Key] = e
	}
	e.factory, e.meta, e.selectable = factory, meta, selectable
}

// FindBy returns the factory for key.
func (r *Registry) FindBy(key string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.factory, true
}

// New creates a convertor instance for key.
func (r *Registry) New(key string) (Convertor, error) {
	f, ok := r.FindBy(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConvertor, key)
	}
	return f(), nil
}

// Meta returns the metadata registered for key.
func (r *Registry) Meta(key string) (*Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.meta, true
}

// Keys returns the keys of selectable convertors in registration order.
func (r *Registry) Keys() []string {
	var out []string
	for _, e := range r.selectable() {
		out = append(out, e.meta.Key)
	}
	return out
}

// MetaList returns the metadata of selectable convertors that can apply
// to attrs, in registration order.
func (r *Registry) MetaList(attrs []string) []*Meta {
	var out []*Meta
	for _, e := range r.selectable() {
		if e.meta.Applies(attrs) {
			out = append(out, e.meta)
		}
	}
	return out
}

func (r *Registry) selectable() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.selectable {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
