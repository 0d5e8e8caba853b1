package ecs

import (
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/native"
)

// HookFunc runs synchronously inside the add or remove that triggered it,
// with a cursor over exactly that entity whose only slot is the component.
// It may call back into the World.
type HookFunc func(c *Cursor) error

type hookTable struct {
	mu          sync.Mutex
	byComponent map[ComponentID]struct{}
}

// AddHook attaches add/remove callbacks to T. Either may be nil. A component
// takes one hook pair.
func AddHook[T any](w *World, onAdd, onRemove HookFunc) error {
	d, err := Register[T](w)
	if err != nil {
		return err
	}
	return w.AddHookID(d, onAdd, onRemove)
}

func (w *World) AddHookID(d *Descriptor, onAdd, onRemove HookFunc) error {
	if onAdd == nil && onRemove == nil {
		return nil
	}
	w.hooks.mu.Lock()
	defer w.hooks.mu.Unlock()
	if _, ok := w.hooks.byComponent[d.ID]; ok {
		return eris.Wrapf(ErrHookExists, "%s", d.Name)
	}
	filters := []native.Filter{{ID: uint64(d.ID), Usage: ReadWrite, Operation: And}}
	declared := []*Descriptor{d}
	entry := func(kind string, fn HookFunc) native.Entry {
		if fn == nil {
			return native.Entry{}
		}
		name := d.Name + "." + kind
		return w.eng.NewEntry(func(it native.Iter) {
			c := newCursor(w, it, name, filters, declared)
			defer c.close()
			if err := fn(c); err != nil {
				w.fail(name, err)
			}
		})
	}
	w.eng.CreateHook(uint64(d.ID), entry("on_add", onAdd), entry("on_remove", onRemove))
	w.hooks.byComponent[d.ID] = struct{}{}
	w.log.Info("component hooks attached",
		zap.String("component", d.Name),
		zap.Bool("on_add", onAdd != nil),
		zap.Bool("on_remove", onRemove != nil))
	return nil
}
