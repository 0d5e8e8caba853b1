package ecs

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"

	"github.com/broken-bytes/Playground/internal/native"
)

// Cursor is the view of one batch handed to a system or hook callback. All
// buffers it returns have Count elements and alias native storage; none of
// them may be retained after the callback returns, at which point the cursor
// is closed and further calls fail.
type Cursor struct {
	w        *World
	it       native.Iter
	name     string
	filters  []native.Filter
	declared []*Descriptor
	count    int
	closed   bool
}

func newCursor(w *World, it native.Iter, name string, filters []native.Filter, declared []*Descriptor) *Cursor {
	return &Cursor{
		w:        w,
		it:       it,
		name:     name,
		filters:  filters,
		declared: declared,
		count:    int(w.eng.GetIteratorSize(it)),
	}
}

func (c *Cursor) close() { c.closed = true }

func (c *Cursor) World() *World  { return c.w }
func (c *Cursor) System() string { return c.name }
func (c *Cursor) Count() int     { return c.count }
func (c *Cursor) Slots() int     { return len(c.filters) }

// Entities returns the batch's entity ids, or nil once the cursor is closed.
func (c *Cursor) Entities() []Entity {
	if c.closed {
		return nil
	}
	ptr, n := c.w.eng.GetEntitiesFromIterator(c.it)
	if ptr == nil {
		return nil
	}
	return unsafe.Slice((*Entity)(ptr), n)
}

// Component returns the descriptor and operation declared for slot.
func (c *Cursor) Component(slot int) (*Descriptor, Operation, error) {
	if err := c.check(slot); err != nil {
		return nil, 0, err
	}
	return c.declared[slot], c.filters[slot].Operation, nil
}

// Usage returns the access declared for slot.
func (c *Cursor) Usage(slot int) (Usage, error) {
	if err := c.check(slot); err != nil {
		return 0, err
	}
	return c.filters[slot].Usage, nil
}

func (c *Cursor) check(slot int) error {
	if c.closed {
		return eris.Wrapf(ErrCursorClosed, "%s", c.name)
	}
	if slot < 0 || slot >= len(c.filters) {
		return eris.Wrapf(ErrSlotMismatch, "%s: slot %d of %d", c.name, slot, len(c.filters))
	}
	return nil
}

// IsSet reports whether slot carries data in this batch. Not terms never do;
// Or terms only when the batch has the component.
func (c *Cursor) IsSet(slot int) bool {
	if c.check(slot) != nil {
		return false
	}
	op := c.filters[slot].Operation
	if op == Not {
		return false
	}
	d := c.declared[slot]
	if d.Size == 0 {
		return op == And
	}
	ptr, _ := c.w.eng.GetComponentBuffer(c.it, uint32(slot), uint64(d.Size))
	return ptr != nil
}

// Column returns slot's buffer typed as T. Absent Or and Not terms yield a
// nil slice. A missing buffer for an And term means the slot does not hold T
// and fails with ErrSlotMismatch.
func Column[T any](c *Cursor, slot int) ([]T, error) {
	if err := c.check(slot); err != nil {
		return nil, err
	}
	var zero T
	size := unsafe.Sizeof(zero)
	d := c.declared[slot]
	if c.w.debug && (d.Size != size || (d.Type != nil && d.Type != reflect.TypeFor[T]())) {
		return nil, eris.Wrapf(ErrSlotMismatch, "%s: slot %d holds %s, requested %s",
			c.name, slot, d.Name, reflect.TypeFor[T]())
	}
	op := c.filters[slot].Operation
	if size == 0 {
		if op == And {
			return make([]T, c.count), nil
		}
		return nil, nil
	}
	ptr, n := c.w.eng.GetComponentBuffer(c.it, uint32(slot), uint64(size))
	if ptr == nil {
		if op != And || c.count == 0 {
			return nil, nil
		}
		return nil, eris.Wrapf(ErrSlotMismatch, "%s: no %d-byte buffer at slot %d (%s)",
			c.name, size, slot, d.Name)
	}
	return unsafe.Slice((*T)(ptr), n), nil
}

// Bytes returns slot's raw buffer, Count*Size bytes long.
func (c *Cursor) Bytes(slot int) ([]byte, error) {
	if err := c.check(slot); err != nil {
		return nil, err
	}
	d := c.declared[slot]
	if d.Size == 0 {
		return nil, nil
	}
	ptr, n := c.w.eng.GetComponentBuffer(c.it, uint32(slot), uint64(d.Size))
	if ptr == nil {
		if c.filters[slot].Operation != And || c.count == 0 {
			return nil, nil
		}
		return nil, eris.Wrapf(ErrSlotMismatch, "%s: no buffer at slot %d (%s)", c.name, slot, d.Name)
	}
	return unsafe.Slice((*byte)(ptr), uintptr(n)*d.Size), nil
}

func (c *Cursor) slotOf(t reflect.Type) (int, error) {
	if c.closed {
		return 0, eris.Wrapf(ErrCursorClosed, "%s", c.name)
	}
	d, ok := c.w.registry.Lookup(t)
	if !ok {
		// Never registered, so no query can have declared it.
		return 0, eris.Wrapf(ErrUndeclaredComponentAccess, "%s does not declare %s (not registered)", c.name, t)
	}
	for i, dd := range c.declared {
		if dd.ID == d.ID {
			return i, nil
		}
	}
	return 0, eris.Wrapf(ErrUndeclaredComponentAccess, "%s does not declare %s", c.name, d.Name)
}

// Field returns the buffer of T found by identity among the declared slots.
// T must be part of the query even when entities in the batch carry it.
func Field[T any](c *Cursor) ([]T, error) {
	slot, err := c.slotOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return Column[T](c, slot)
}

// HasField reports whether the batch carries T, which must be declared.
func HasField[T any](c *Cursor) (bool, error) {
	slot, err := c.slotOf(reflect.TypeFor[T]())
	if err != nil {
		return false, err
	}
	return c.IsSet(slot), nil
}
