package ecs

import (
	"unsafe"

	"github.com/rotisserie/eris"
)

// Add attaches a zero-valued T to e.
func Add[T any](w *World, e Entity) error {
	d, err := Register[T](w)
	if err != nil {
		return err
	}
	return w.AddID(e, d)
}

// Set writes v into e's T, attaching T first when missing.
func Set[T any](w *World, e Entity, v T) error {
	d, err := Register[T](w)
	if err != nil {
		return err
	}
	if err := w.alive(e); err != nil {
		return err
	}
	w.eng.SetComponent(uint64(e), uint64(d.ID), unsafe.Pointer(&v))
	return nil
}

// Get returns a live view of e's T. The pointer is valid until the next
// structural change to e; ok is false when e has no T.
func Get[T any](w *World, e Entity) (*T, bool, error) {
	d, err := Register[T](w)
	if err != nil {
		return nil, false, err
	}
	if err := w.alive(e); err != nil {
		return nil, false, err
	}
	ptr := w.eng.GetComponent(uint64(e), uint64(d.ID))
	if ptr == nil {
		return nil, false, nil
	}
	return (*T)(ptr), true, nil
}

func Has[T any](w *World, e Entity) (bool, error) {
	d, err := Register[T](w)
	if err != nil {
		return false, err
	}
	return w.HasID(e, d)
}

// Remove detaches T from e. Removing an absent component is a no-op.
func Remove[T any](w *World, e Entity) error {
	d, err := Register[T](w)
	if err != nil {
		return err
	}
	return w.RemoveID(e, d)
}

// With attaches T and writes v, failing if e already has T.
func With[T any](w *World, e Entity, v T) (Entity, error) {
	if err := Add[T](w, e); err != nil {
		return e, err
	}
	return e, Set(w, e, v)
}

// AddID attaches the component described by d.
func (w *World) AddID(e Entity, d *Descriptor) error {
	if err := w.alive(e); err != nil {
		return err
	}
	if w.eng.HasComponent(uint64(e), uint64(d.ID)) {
		return eris.Wrapf(ErrComponentAlreadyPresent, "%s on entity %d", d.Name, uint64(e))
	}
	w.eng.AddComponent(uint64(e), uint64(d.ID))
	return nil
}

func (w *World) HasID(e Entity, d *Descriptor) (bool, error) {
	if err := w.alive(e); err != nil {
		return false, err
	}
	return w.eng.HasComponent(uint64(e), uint64(d.ID)), nil
}

func (w *World) RemoveID(e Entity, d *Descriptor) error {
	if err := w.alive(e); err != nil {
		return err
	}
	w.eng.DestroyComponent(uint64(e), uint64(d.ID))
	return nil
}

// SetBytes writes raw component bytes laid out as d.Layout.
func (w *World) SetBytes(e Entity, d *Descriptor, data []byte) error {
	if uintptr(len(data)) != d.Size {
		return eris.Errorf("%s: got %d bytes, want %d", d.Name, len(data), d.Size)
	}
	if err := w.alive(e); err != nil {
		return err
	}
	if d.Size == 0 {
		w.eng.AddComponent(uint64(e), uint64(d.ID))
		return nil
	}
	w.eng.SetComponent(uint64(e), uint64(d.ID), unsafe.Pointer(&data[0]))
	return nil
}

// Bytes returns a live view of e's component bytes.
func (w *World) Bytes(e Entity, d *Descriptor) ([]byte, bool, error) {
	if err := w.alive(e); err != nil {
		return nil, false, err
	}
	ptr := w.eng.GetComponent(uint64(e), uint64(d.ID))
	if ptr == nil {
		return nil, false, nil
	}
	return unsafe.Slice((*byte)(ptr), d.Size), true, nil
}
