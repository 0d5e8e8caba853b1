package ecs

import (
	"reflect"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/layout"
	"github.com/broken-bytes/Playground/internal/native"
)

// ComponentID is the native id of a registered component.
type ComponentID uint64

// Descriptor is the immutable record of a registered component. Type is nil
// for components declared by data files or scripts.
type Descriptor struct {
	ID     ComponentID
	Name   string
	Size   uintptr
	Align  uintptr
	Type   reflect.Type
	Layout *layout.Struct
}

// Registry maps component identities to native ids. Each identity is
// registered with the engine exactly once; later lookups never cross the
// boundary.
type Registry struct {
	eng native.Engine
	log *zap.Logger

	mu     sync.RWMutex
	byType map[reflect.Type]*Descriptor
	byName map[string]*Descriptor
	byID   map[ComponentID]*Descriptor
	order  []*Descriptor
}

func newRegistry(eng native.Engine, log *zap.Logger) *Registry {
	return &Registry{
		eng:    eng,
		log:    log,
		byType: make(map[reflect.Type]*Descriptor, 32),
		byName: make(map[string]*Descriptor, 32),
		byID:   make(map[ComponentID]*Descriptor, 32),
	}
}

// RegisterType returns the descriptor for t, registering it on first use.
func (r *Registry) RegisterType(t reflect.Type) (*Descriptor, error) {
	r.mu.RLock()
	d, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}

	st, err := layout.FromType(t)
	if err != nil {
		return nil, &TypeRegistrationError{Type: typeLabel(t), Err: eris.Wrapf(ErrInvalidComponentKind, "%v", err)}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byType[t]; ok {
		return d, nil
	}
	name := normalizeName(st.Name)
	if prev, taken := r.byName[name]; taken && prev.Type != nil && t.PkgPath() != "" {
		// Same short name from another package: the first type keeps it.
		name = normalizeName(t.PkgPath() + "." + st.Name)
	}
	d, err = r.registerLocked(name, st, t)
	if err != nil {
		return nil, err
	}
	r.byType[t] = d
	return d, nil
}

// RegisterLayout registers a data-declared component. Registering the same
// name with an identical layout returns the existing descriptor.
func (r *Registry) RegisterLayout(st *layout.Struct) (*Descriptor, error) {
	name := normalizeName(st.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byName[name]; ok {
		if d.Size != st.Size || d.Align != st.Align {
			return nil, &TypeRegistrationError{Type: name, Err: eris.Errorf(
				"already registered as (%d,%d), redeclared as (%d,%d)", d.Size, d.Align, st.Size, st.Align)}
		}
		return d, nil
	}
	return r.registerLocked(name, st, nil)
}

func (r *Registry) registerLocked(name string, st *layout.Struct, t reflect.Type) (*Descriptor, error) {
	if prev, ok := r.byName[name]; ok {
		return nil, &TypeRegistrationError{Type: name, Err: eris.Errorf("name already used by %s", typeLabel(prev.Type))}
	}
	id := r.eng.RegisterComponent(name, uint64(st.Size), uint64(st.Align))
	if id == 0 {
		return nil, &TypeRegistrationError{Type: name, Err: eris.New("native engine refused the component")}
	}
	d := &Descriptor{
		ID:     ComponentID(id),
		Name:   name,
		Size:   st.Size,
		Align:  st.Align,
		Type:   t,
		Layout: st,
	}
	r.byName[name] = d
	r.byID[d.ID] = d
	r.order = append(r.order, d)
	r.log.Info("component registered",
		zap.String("name", name),
		zap.Uint64("id", id),
		zap.Uintptr("size", st.Size),
		zap.Uintptr("align", st.Align))
	return d, nil
}

// Lookup returns the descriptor of a registered Go type without registering.
func (r *Registry) Lookup(t reflect.Type) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byType[t]
	return d, ok
}

func (r *Registry) ByName(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[normalizeName(name)]
	return d, ok
}

func (r *Registry) ByID(id ComponentID) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// All returns descriptors in registration order.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Descriptor(nil), r.order...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func typeLabel(t reflect.Type) string {
	if t == nil {
		return "declared component"
	}
	return t.String()
}

// Register registers T and returns its descriptor. Calling it again returns
// the cached descriptor without a native call.
func Register[T any](w *World) (*Descriptor, error) {
	return w.registry.RegisterType(reflect.TypeFor[T]())
}

// Descriptor resolves a component by name or fails with
// ErrComponentNotRegistered.
func (w *World) Descriptor(name string) (*Descriptor, error) {
	d, ok := w.registry.ByName(name)
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "%q", name)
	}
	return d, nil
}
