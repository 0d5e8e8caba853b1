package ecs

import (
	"strconv"

	"github.com/rotisserie/eris"
)

// Entity is a handle to a native entity. The zero value means "none".
type Entity uint64

func (e Entity) ID() uint64     { return uint64(e) }
func (e Entity) IsZero() bool   { return e == 0 }
func (e Entity) String() string { return strconv.FormatUint(uint64(e), 10) }

// CreateEntity creates an entity. A non-empty name that already names an
// entity returns that entity.
func (w *World) CreateEntity(name string) (Entity, error) {
	if w.closed.Load() {
		return 0, ErrClosed
	}
	id := w.eng.CreateEntity(normalizeName(name))
	if id == 0 {
		return 0, eris.Errorf("native engine did not create entity %q", name)
	}
	return Entity(id), nil
}

// alive fails with ErrEntityNotFound for zero, destroyed or unknown ids.
func (w *World) alive(e Entity) error {
	if e == 0 || !w.eng.IsAlive(uint64(e)) {
		return eris.Wrapf(ErrEntityNotFound, "entity %d", uint64(e))
	}
	return nil
}

func (w *World) IsAlive(e Entity) bool {
	return e != 0 && w.eng.IsAlive(uint64(e))
}

// DestroyEntity destroys e and its children.
func (w *World) DestroyEntity(e Entity) error {
	if err := w.alive(e); err != nil {
		return err
	}
	w.eng.DestroyEntity(uint64(e))
	return nil
}

// Parent returns e's parent; ok is false for roots.
func (w *World) Parent(e Entity) (Entity, bool, error) {
	if err := w.alive(e); err != nil {
		return 0, false, err
	}
	p := w.eng.GetParent(uint64(e))
	return Entity(p), p != 0, nil
}

// SetParent attaches child to parent. A zero parent detaches child.
func (w *World) SetParent(child, parent Entity) error {
	if err := w.alive(child); err != nil {
		return err
	}
	if parent != 0 {
		if err := w.alive(parent); err != nil {
			return err
		}
	}
	w.eng.SetParent(uint64(child), uint64(parent))
	return nil
}

// FindByName returns the entity registered under name.
func (w *World) FindByName(name string) (Entity, bool) {
	id := w.eng.GetEntityByName(normalizeName(name))
	return Entity(id), id != 0
}
