package host

import (
	"slices"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/broken-bytes/Playground/internal/native"
)

type system struct {
	id            uint64
	name          string
	filters       []native.Filter
	terms         []*term
	multithreaded bool
	entry         native.Entry
}

// matches reports whether archetype a satisfies every And term, no Not term,
// and at least one Or term when any are declared.
func (s *system) matches(a *archetype) bool {
	anyOr, orHit := false, false
	for i, f := range s.filters {
		has := a.mask.has(s.terms[i].bit)
		switch f.Operation {
		case native.OpNot:
			if has {
				return false
			}
		case native.OpOr:
			anyOr = true
			orHit = orHit || has
		default:
			if !has {
				return false
			}
		}
	}
	return !anyOr || orHit
}

// CreateSystem registers a system that Progress runs after every system
// created before it. Unknown term ids fail the registration with id 0.
func (e *Engine) CreateSystem(name string, filters []native.Filter, multithreaded bool, dispatch native.Entry) uint64 {
	if dispatch.Fn == nil {
		e.log.Error("system without dispatch entry", zap.String("system", name))
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s := &system{
		name:          name,
		filters:       slices.Clone(filters),
		terms:         make([]*term, len(filters)),
		multithreaded: multithreaded,
		entry:         dispatch,
	}
	for i, f := range filters {
		t := e.terms[f.ID]
		if t == nil {
			e.log.Error("system filter names unknown component",
				zap.String("system", name), zap.Int("slot", i), zap.Uint64("component", f.ID))
			return 0
		}
		s.terms[i] = t
	}
	s.id = e.allocLocked("", kindSystem)
	e.systems = append(e.systems, s)
	e.log.Debug("system created",
		zap.String("system", name), zap.Uint64("id", s.id), zap.Int("terms", len(filters)),
		zap.Bool("multithreaded", multithreaded))
	return s.id
}

// Progress runs every system once in creation order, applying the structural
// changes each one queued before the next starts.
func (e *Engine) Progress(dt float64) bool {
	e.mu.RLock()
	systems := slices.Clone(e.systems)
	e.mu.RUnlock()
	for _, s := range systems {
		e.run(s, dt)
		e.flush()
	}
	e.frames.Add(1)
	return true
}

func (e *Engine) run(s *system, dt float64) {
	batches := e.batches(s, dt)
	if len(batches) == 0 {
		return
	}
	e.deferred.Add(1)
	defer e.deferred.Add(-1)
	if !s.multithreaded || e.workers < 2 || len(batches) < 2 {
		for _, b := range batches {
			e.dispatch(s.entry, b)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, b := range batches {
		g.Go(func() error {
			e.dispatch(s.entry, b)
			return nil
		})
	}
	_ = g.Wait()
}

// batches builds one iterator per non-empty matching archetype; rows of
// multithreaded systems are split into per-worker chunks.
func (e *Engine) batches(s *system, dt float64) []*iter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*iter
	for _, a := range e.archList {
		n := a.len()
		if n == 0 || !s.matches(a) {
			continue
		}
		cols := make([]*column, len(s.terms))
		for i, t := range s.terms {
			if s.filters[i].Operation != native.OpNot {
				cols[i] = a.column(t.bit)
			}
		}
		chunk := n
		if s.multithreaded && e.workers > 1 {
			chunk = max(e.minBatch, (n+e.workers-1)/e.workers)
		}
		for off := 0; off < n; off += chunk {
			out = append(out, &iter{
				system:  s,
				arch:    a,
				offset:  off,
				count:   min(chunk, n-off),
				dt:      dt,
				columns: cols,
			})
		}
	}
	return out
}

func (e *Engine) dispatch(entry native.Entry, x *iter) {
	h := e.iters.open(x)
	defer e.iters.close(h)
	entry.Fn(h)
}

// --- iteration context ---

type iter struct {
	system  *system
	arch    *archetype
	offset  int
	count   int
	dt      float64
	columns []*column

	hook   *term
	entity uint64
	single [1]uint64
}

// iterTable hands out opaque handles that stop resolving once the callback
// they were issued for returns.
type iterTable struct {
	mu   sync.RWMutex
	next uintptr
	live map[native.Iter]*iter
}

func (t *iterTable) open(x *iter) native.Iter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live == nil {
		t.live = make(map[native.Iter]*iter)
	}
	t.next++
	h := native.Iter(t.next)
	t.live[h] = x
	return h
}

func (t *iterTable) close(h native.Iter) {
	t.mu.Lock()
	delete(t.live, h)
	t.mu.Unlock()
}

func (t *iterTable) get(h native.Iter) *iter {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live[h]
}

func (e *Engine) GetIteratorSystem(it native.Iter) uint64 {
	x := e.iters.get(it)
	if x == nil || x.system == nil {
		return 0
	}
	return x.system.id
}

func (e *Engine) GetIteratorSize(it native.Iter) uint64 {
	if x := e.iters.get(it); x != nil {
		return uint64(x.count)
	}
	return 0
}

func (e *Engine) GetIteratorDeltaTime(it native.Iter) float64 {
	if x := e.iters.get(it); x != nil {
		return x.dt
	}
	return 0
}

func (e *Engine) GetEntitiesFromIterator(it native.Iter) (unsafe.Pointer, uint64) {
	x := e.iters.get(it)
	if x == nil {
		return nil, 0
	}
	if x.hook != nil {
		return unsafe.Pointer(&x.single[0]), 1
	}
	return unsafe.Pointer(&x.arch.entities[x.offset]), uint64(x.count)
}

func (e *Engine) GetComponentBuffer(it native.Iter, slot uint32, size uint64) (unsafe.Pointer, uint64) {
	x := e.iters.get(it)
	if x == nil {
		return nil, 0
	}
	if x.hook != nil {
		if slot != 0 || uint64(x.hook.size) != size {
			return nil, 0
		}
		e.mu.RLock()
		defer e.mu.RUnlock()
		rec, ok := e.entityLocked(x.entity)
		if !ok || rec.arch == nil {
			return nil, 0
		}
		c := rec.arch.column(x.hook.bit)
		if c == nil {
			return nil, 0
		}
		return c.ptr(rec.row), 1
	}
	if int(slot) >= len(x.columns) || x.columns[slot] == nil {
		return nil, 0
	}
	c := x.columns[slot]
	if uint64(c.term.size) != size {
		e.log.Error("component buffer size mismatch",
			zap.String("system", x.system.name), zap.Uint32("slot", slot),
			zap.String("component", c.term.name), zap.Uintptr("registered", c.term.size),
			zap.Uint64("requested", size))
		return nil, 0
	}
	return c.ptr(x.offset), uint64(x.count)
}

// --- deferred structural changes ---

type opcode uint8

const (
	opPlace opcode = iota
	opDestroy
	opSetParent
	opAdd
	opSet
	opRemove
	opDeleteTagged
)

type command struct {
	op     opcode
	entity uint64
	other  uint64
	data   []byte
}

type commandQueue struct {
	mu   sync.Mutex
	cmds []command
}

func (q *commandQueue) push(c command) {
	q.mu.Lock()
	q.cmds = append(q.cmds, c)
	q.mu.Unlock()
}

func (q *commandQueue) drain() []command {
	q.mu.Lock()
	defer q.mu.Unlock()
	cmds := q.cmds
	q.cmds = nil
	return cmds
}

// flush applies queued commands in order, including any queued while
// applying.
func (e *Engine) flush() {
	for {
		cmds := e.queue.drain()
		if len(cmds) == 0 {
			return
		}
		for _, c := range cmds {
			e.apply(c)
		}
	}
}

func (e *Engine) apply(c command) {
	switch c.op {
	case opPlace:
		e.mu.Lock()
		e.placeLocked(c.entity)
		e.mu.Unlock()
	case opDestroy:
		e.destroy(c.entity)
	case opSetParent:
		e.SetParent(c.entity, c.other)
	case opAdd:
		e.AddComponent(c.entity, c.other)
	case opSet:
		e.mu.RLock()
		t := e.terms[c.other]
		e.mu.RUnlock()
		if t != nil {
			e.set(c.entity, t, c.data)
		}
	case opRemove:
		e.DestroyComponent(c.entity, c.other)
	case opDeleteTagged:
		e.DeleteAllEntitiesByTag(c.entity)
	}
}
