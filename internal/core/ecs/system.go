package ecs

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/native"
)

// Phase orders systems within a native frame. The zero value is OnUpdate.
type Phase int

const (
	PreUpdate Phase = iota - 1
	OnUpdate
	PostUpdate
	PreStore
	OnStore
)

var phaseNames = map[Phase]string{
	PreUpdate:  "pre_update",
	OnUpdate:   "update",
	PostUpdate: "post_update",
	PreStore:   "pre_store",
	OnStore:    "store",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// ParsePhase resolves a phase by its String form; empty means OnUpdate.
func ParsePhase(s string) (Phase, error) {
	if s == "" {
		return OnUpdate, nil
	}
	for p, name := range phaseNames {
		if name == s {
			return p, nil
		}
	}
	return 0, eris.Errorf("unknown phase %q", s)
}

// SystemFunc runs once per matching batch. The cursor and every slice taken
// from it are invalid after it returns.
type SystemFunc func(c *Cursor, dt float64) error

// SystemDesc declares a system. Query order is the slot order the callback
// reads buffers by.
type SystemDesc struct {
	Name          string
	Query         []QueryItem
	Multithreaded bool
	Phase         Phase
	Order         int
	Run           SystemFunc
}

// System is a registered system.
type System struct {
	ID            uint64
	Name          string
	Filters       []native.Filter
	Multithreaded bool
	Phase         Phase
	Order         int

	declared []*Descriptor
	run      SystemFunc
}

// systemTable is written during startup and read on every dispatch, possibly
// from several goroutines. Readers load an immutable map snapshot.
type systemTable struct {
	mu   sync.Mutex
	byID atomic.Pointer[map[uint64]*System]
}

func (t *systemTable) init() {
	m := make(map[uint64]*System)
	t.byID.Store(&m)
}

func (t *systemTable) get(id uint64) (*System, bool) {
	s, ok := (*t.byID.Load())[id]
	return s, ok
}

func (t *systemTable) put(s *System) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := *t.byID.Load()
	next := make(map[uint64]*System, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[s.ID] = s
	t.byID.Store(&next)
}

func (t *systemTable) byName(name string) (*System, bool) {
	for _, s := range *t.byID.Load() {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// CreateSystem registers desc with the native engine. The engine schedules it
// after every system registered before it.
func (w *World) CreateSystem(desc SystemDesc) (*System, error) {
	if w.closed.Load() {
		return nil, ErrClosed
	}
	if desc.Name == "" || desc.Run == nil {
		return nil, eris.Wrap(ErrSystemRegistration, "system needs a name and a callback")
	}
	if _, dup := w.systems.byName(desc.Name); dup {
		return nil, eris.Wrapf(ErrSystemRegistration, "duplicate system %q", desc.Name)
	}
	filters, declared, err := w.BuildFilters(desc.Query)
	if err != nil {
		return nil, eris.Wrapf(err, "system %s", desc.Name)
	}
	id := w.eng.CreateSystem(desc.Name, filters, desc.Multithreaded, w.dispatch)
	if id == 0 {
		return nil, eris.Wrapf(ErrSystemRegistration, "native engine refused system %q", desc.Name)
	}
	s := &System{
		ID:            id,
		Name:          desc.Name,
		Filters:       filters,
		Multithreaded: desc.Multithreaded,
		Phase:         desc.Phase,
		Order:         desc.Order,
		declared:      declared,
		run:           desc.Run,
	}
	w.systems.put(s)
	w.log.Info("system registered",
		zap.String("system", s.Name),
		zap.Uint64("id", id),
		zap.Stringer("phase", s.Phase),
		zap.Int("terms", len(filters)),
		zap.Bool("multithreaded", s.Multithreaded))
	return s, nil
}

// System looks up a registered system by name.
func (w *World) System(name string) (*System, bool) {
	return w.systems.byName(name)
}

// Schedule collects system declarations and registers them ordered by
// (phase, order, declaration).
type Schedule struct {
	descs []SystemDesc
}

func (s *Schedule) Add(descs ...SystemDesc) {
	s.descs = append(s.descs, descs...)
}

func (s *Schedule) Len() int { return len(s.descs) }

// Register creates every collected system on w in schedule order.
func (s *Schedule) Register(w *World) ([]*System, error) {
	ordered := append([]SystemDesc(nil), s.descs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Phase != ordered[j].Phase {
			return ordered[i].Phase < ordered[j].Phase
		}
		return ordered[i].Order < ordered[j].Order
	})
	out := make([]*System, 0, len(ordered))
	for _, d := range ordered {
		sys, err := w.CreateSystem(d)
		if err != nil {
			return out, err
		}
		out = append(out, sys)
	}
	return out, nil
}

// dispatchEntry is the single re-entry point for every system batch.
func (w *World) dispatchEntry(it native.Iter) {
	id := w.eng.GetIteratorSystem(it)
	sys, ok := w.systems.get(id)
	if !ok {
		w.log.Error("dispatch for unregistered system", zap.Uint64("system", id))
		panic(eris.Wrapf(ErrUnknownSystem, "system id %d", id))
	}
	c := newCursor(w, it, sys.Name, sys.Filters, sys.declared)
	defer c.close()
	if err := sys.run(c, w.eng.GetIteratorDeltaTime(it)); err != nil {
		w.fail(sys.Name, err)
	}
}

// fail logs a callback error, panicking for the fatal classes.
func (w *World) fail(name string, err error) {
	if fatal(err) {
		w.log.Error("fatal error in callback", zap.String("callback", name), zap.Error(err))
		panic(err)
	}
	w.log.Error("callback failed", zap.String("callback", name), zap.Error(err))
}
