package ecs

import (
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type tagTable struct {
	mu  sync.RWMutex
	ids map[string]uint64
}

// CreateTag registers a data-less marker. Creating an existing tag returns
// its id.
func (w *World) CreateTag(name string) (uint64, error) {
	name = normalizeName(name)
	if name == "" {
		return 0, eris.New("tag name is empty")
	}
	w.tags.mu.Lock()
	defer w.tags.mu.Unlock()
	if id, ok := w.tags.ids[name]; ok {
		return id, nil
	}
	id := w.eng.CreateTag(name)
	if id == 0 {
		return 0, eris.Errorf("native engine refused tag %q", name)
	}
	w.tags.ids[name] = id
	w.log.Debug("tag created", zap.String("tag", name), zap.Uint64("id", id))
	return id, nil
}

func (w *World) tagID(name string) (uint64, bool) {
	w.tags.mu.RLock()
	defer w.tags.mu.RUnlock()
	id, ok := w.tags.ids[normalizeName(name)]
	return id, ok
}

func (w *World) requireTag(name string) (uint64, error) {
	id, ok := w.tagID(name)
	if !ok {
		return 0, eris.Wrapf(ErrUnknownTag, "%q", name)
	}
	return id, nil
}

// AddTag marks e with a tag created earlier with CreateTag.
func (w *World) AddTag(e Entity, name string) error {
	id, err := w.requireTag(name)
	if err != nil {
		return err
	}
	if err := w.alive(e); err != nil {
		return err
	}
	w.eng.AddTag(uint64(e), id)
	return nil
}

func (w *World) HasTag(e Entity, name string) (bool, error) {
	id, err := w.requireTag(name)
	if err != nil {
		return false, err
	}
	if err := w.alive(e); err != nil {
		return false, err
	}
	return w.eng.HasComponent(uint64(e), id), nil
}

// DeleteEntitiesWithTag destroys every entity carrying the tag. An empty set
// is not an error.
func (w *World) DeleteEntitiesWithTag(name string) error {
	id, err := w.requireTag(name)
	if err != nil {
		return err
	}
	w.eng.DeleteAllEntitiesByTag(id)
	return nil
}

// Tags lists created tag names, sorted.
func (w *World) Tags() []string {
	w.tags.mu.RLock()
	defer w.tags.mu.RUnlock()
	out := make([]string, 0, len(w.tags.ids))
	for name := range w.tags.ids {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
