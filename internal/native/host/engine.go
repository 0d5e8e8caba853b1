// Package host is an in-process archetype ECS that implements native.Engine.
// It is used when no native library is configured and as the engine behind
// the managed-side tests.
//
// Structural changes made while a system runs are queued and applied once the
// system finishes, so batch buffers stay valid for the whole dispatch.
package host

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/native"
)

// Engine is an in-process native.Engine. Calls from system callbacks may come
// from several goroutines at once; other calls must not overlap Progress.
type Engine struct {
	log      *zap.Logger
	workers  int
	minBatch int
	capacity int

	mu         sync.RWMutex
	pool       *entityPool
	records    []record
	names      map[string]uint64
	children   map[uint64][]uint64
	terms      map[uint64]*term
	byBit      []*term
	archetypes map[bitmask]*archetype
	archList   []*archetype
	root       *archetype
	systems    []*system

	iters    iterTable
	deferred atomic.Int32
	queue    commandQueue
	frames   atomic.Uint64
}

var _ native.Engine = (*Engine)(nil)

type Option func(*Engine)

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithWorkers sets how many goroutines a multithreaded system may use.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithMinBatch sets the smallest row count a multithreaded batch is split into.
func WithMinBatch(n int) Option {
	return func(e *Engine) { e.minBatch = n }
}

func WithCapacity(n int) Option {
	return func(e *Engine) { e.capacity = n }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		log:      zap.NewNop(),
		workers:  1,
		minBatch: 64,
		capacity: 1024,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	if e.minBatch < 1 {
		e.minBatch = 1
	}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.pool = newEntityPool(e.capacity)
	e.records = make([]record, 1, e.capacity+1)
	e.names = make(map[string]uint64, 64)
	e.children = make(map[uint64][]uint64)
	e.terms = make(map[uint64]*term, 32)
	e.byBit = make([]*term, 0, 32)
	e.archetypes = make(map[bitmask]*archetype, 32)
	e.archList = e.archList[:0]
	e.systems = nil
	e.root = e.archetypeLocked(bitmask{})
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
	return nil
}

// Frames returns how many times Progress has completed.
func (e *Engine) Frames() uint64 { return e.frames.Load() }

// Count returns the number of placed entities.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, a := range e.archList {
		n += a.len()
	}
	return n
}

func (e *Engine) deferring() bool { return e.deferred.Load() > 0 }

// --- entities ---

func (e *Engine) CreateEntity(name string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name != "" {
		if id, ok := e.names[name]; ok && e.pool.alive(id) {
			if e.records[indexOf(id)].kind == kindEntity {
				return id
			}
			e.log.Warn("entity name taken by a component or tag", zap.String("name", name))
			name = ""
		}
	}
	id := e.allocLocked(name, kindEntity)
	if e.deferring() {
		e.queue.push(command{op: opPlace, entity: id})
		return id
	}
	e.placeLocked(id)
	return id
}

func (e *Engine) allocLocked(name string, kind recordKind) uint64 {
	id := e.pool.create()
	idx := int(indexOf(id))
	for idx >= len(e.records) {
		e.records = append(e.records, record{})
	}
	e.records[idx] = record{kind: kind, row: -1, name: name}
	if name != "" {
		e.names[name] = id
	}
	return id
}

func (e *Engine) placeLocked(id uint64) {
	rec, ok := e.entityLocked(id)
	if !ok || rec.arch != nil {
		return
	}
	rec.arch = e.root
	rec.row = e.root.push(id)
}

func (e *Engine) entityLocked(id uint64) (*record, bool) {
	if !e.pool.alive(id) {
		return nil, false
	}
	rec := &e.records[indexOf(id)]
	return rec, rec.kind == kindEntity
}

// IsAlive reports whether id is a live entity. Component, tag and system
// ids share the pool but are not entities.
func (e *Engine) IsAlive(id uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.entityLocked(id)
	return ok
}

// DestroyEntity deletes id and, recursively, its children.
func (e *Engine) DestroyEntity(id uint64) {
	if e.deferring() {
		e.queue.push(command{op: opDestroy, entity: id})
		return
	}
	e.destroy(id)
}

func (e *Engine) destroy(id uint64) {
	e.mu.RLock()
	_, ok := e.entityLocked(id)
	kids := append([]uint64(nil), e.children[id]...)
	e.mu.RUnlock()
	if !ok {
		return
	}
	for _, child := range kids {
		e.destroy(child)
	}
	e.fireRemoveHooks(id)

	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.entityLocked(id)
	if !ok {
		return
	}
	if rec.arch != nil {
		e.removeRowLocked(rec)
	}
	if rec.name != "" && e.names[rec.name] == id {
		delete(e.names, rec.name)
	}
	if rec.parent != 0 {
		e.unlinkLocked(id, rec.parent)
	}
	delete(e.children, id)
	*rec = record{row: -1}
	e.pool.destroy(id)
}

func (e *Engine) removeRowLocked(rec *record) {
	if moved, ok := rec.arch.remove(rec.row); ok {
		e.records[indexOf(moved)].row = rec.row
	}
	rec.arch, rec.row = nil, -1
}

func (e *Engine) unlinkLocked(child, parent uint64) {
	kids := e.children[parent]
	for i, k := range kids {
		if k == child {
			kids = append(kids[:i], kids[i+1:]...)
			break
		}
	}
	if len(kids) == 0 {
		delete(e.children, parent)
		return
	}
	e.children[parent] = kids
}

// SetParent makes parent the parent of child; parent 0 detaches. Cycles are
// refused.
func (e *Engine) SetParent(child, parent uint64) {
	if e.deferring() {
		e.queue.push(command{op: opSetParent, entity: child, other: parent})
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.entityLocked(child)
	if !ok {
		return
	}
	if parent != 0 {
		if _, ok := e.entityLocked(parent); !ok {
			return
		}
		for a := parent; a != 0; a = e.records[indexOf(a)].parent {
			if a == child {
				e.log.Warn("parent cycle refused", zap.Uint64("child", child), zap.Uint64("parent", parent))
				return
			}
		}
	}
	if rec.parent != 0 {
		e.unlinkLocked(child, rec.parent)
	}
	rec.parent = parent
	if parent != 0 {
		e.children[parent] = append(e.children[parent], child)
	}
}

func (e *Engine) GetParent(id uint64) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if rec, ok := e.entityLocked(id); ok {
		return rec.parent
	}
	return 0
}

func (e *Engine) GetEntityByName(name string) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.names[name]
	if !ok {
		return 0
	}
	if _, ok := e.entityLocked(id); !ok {
		return 0
	}
	return id
}

// --- components and tags ---

func (e *Engine) RegisterComponent(name string, size, align uint64) uint64 {
	return e.registerTerm(name, uintptr(size), uintptr(align), false)
}

func (e *Engine) CreateTag(name string) uint64 {
	return e.registerTerm(name, 0, 0, true)
}

func (e *Engine) registerTerm(name string, size, align uintptr, tag bool) uint64 {
	if name == "" {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.names[name]; ok && e.pool.alive(id) {
		t := e.terms[id]
		if t == nil || t.tag != tag || t.size != size || (size > 0 && t.align != align) {
			e.log.Warn("term registration conflicts with existing id",
				zap.String("name", name), zap.Uint64("id", id))
			return 0
		}
		return id
	}
	if size > 0 && (align == 0 || align&(align-1) != 0 || align > 8 || size%align != 0) {
		e.log.Warn("invalid component layout",
			zap.String("name", name), zap.Uintptr("size", size), zap.Uintptr("align", align))
		return 0
	}
	if len(e.byBit) >= maxTerms {
		e.log.Error("term limit reached", zap.String("name", name), zap.Int("limit", maxTerms))
		return 0
	}
	id := e.allocLocked(name, kindTerm)
	t := &term{id: id, bit: len(e.byBit), name: name, size: size, align: align, tag: tag}
	e.terms[id] = t
	e.byBit = append(e.byBit, t)
	e.log.Debug("term registered",
		zap.String("name", name), zap.Uint64("id", id), zap.Uintptr("size", size), zap.Bool("tag", tag))
	return id
}

func (e *Engine) archetypeLocked(mask bitmask) *archetype {
	if a, ok := e.archetypes[mask]; ok {
		return a
	}
	var terms []*term
	for _, t := range e.byBit {
		if mask.has(t.bit) {
			terms = append(terms, t)
		}
	}
	a := newArchetype(mask, terms)
	e.archetypes[mask] = a
	e.archList = append(e.archList, a)
	return a
}

// moveLocked relocates the entity to dst, keeping the data of shared terms.
func (e *Engine) moveLocked(id uint64, rec *record, dst *archetype) {
	src, srcRow := rec.arch, rec.row
	row := dst.push(id)
	for _, c := range dst.columns {
		if sc := src.column(c.term.bit); sc != nil {
			copy(c.bytes(row), sc.bytes(srcRow))
		}
	}
	if moved, ok := src.remove(srcRow); ok {
		e.records[indexOf(moved)].row = srcRow
	}
	rec.arch, rec.row = dst, row
}

func (e *Engine) AddComponent(entity, component uint64) {
	if e.deferring() {
		e.queue.push(command{op: opAdd, entity: entity, other: component})
		return
	}
	if t := e.addTerm(entity, component); t != nil && !t.onAdd.IsZero() {
		e.fireHook(t.onAdd, entity, t)
	}
}

func (e *Engine) AddTag(entity, tag uint64) {
	e.AddComponent(entity, tag)
}

// addTerm adds the term without firing hooks. It returns nil when nothing
// changed.
func (e *Engine) addTerm(entity, component uint64) *term {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.terms[component]
	if t == nil {
		return nil
	}
	rec, ok := e.entityLocked(entity)
	if !ok {
		return nil
	}
	if rec.arch == nil {
		e.placeLocked(entity)
	}
	if rec.arch.mask.has(t.bit) {
		return nil
	}
	mask := rec.arch.mask
	mask.set(t.bit)
	e.moveLocked(entity, rec, e.archetypeLocked(mask))
	return t
}

// SetComponent copies the registered size of the component from data, adding
// the component first when missing. Hooks fired by that add observe the new
// value.
func (e *Engine) SetComponent(entity, component uint64, data unsafe.Pointer) {
	e.mu.RLock()
	t := e.terms[component]
	e.mu.RUnlock()
	if t == nil {
		return
	}
	if t.size == 0 || data == nil {
		e.AddComponent(entity, component)
		return
	}
	buf := unsafe.Slice((*byte)(data), t.size)
	if e.deferring() {
		e.queue.push(command{op: opSet, entity: entity, other: component, data: append([]byte(nil), buf...)})
		return
	}
	e.set(entity, t, buf)
}

func (e *Engine) set(entity uint64, t *term, buf []byte) {
	added := e.addTerm(entity, t.id) != nil
	e.mu.Lock()
	if rec, ok := e.entityLocked(entity); ok && rec.arch != nil {
		if c := rec.arch.column(t.bit); c != nil {
			copy(c.bytes(rec.row), buf)
		}
	}
	e.mu.Unlock()
	if added && !t.onAdd.IsZero() {
		e.fireHook(t.onAdd, entity, t)
	}
}

// GetComponent returns a pointer into the entity's column, valid until the
// next structural change.
func (e *Engine) GetComponent(entity, component uint64) unsafe.Pointer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t := e.terms[component]
	rec, ok := e.entityLocked(entity)
	if t == nil || !ok || rec.arch == nil {
		return nil
	}
	c := rec.arch.column(t.bit)
	if c == nil {
		return nil
	}
	return c.ptr(rec.row)
}

func (e *Engine) HasComponent(entity, component uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hasLocked(entity, component)
}

func (e *Engine) hasLocked(entity, component uint64) bool {
	t := e.terms[component]
	rec, ok := e.entityLocked(entity)
	return t != nil && ok && rec.arch != nil && rec.arch.mask.has(t.bit)
}

func (e *Engine) DestroyComponent(entity, component uint64) {
	if e.deferring() {
		e.queue.push(command{op: opRemove, entity: entity, other: component})
		return
	}
	e.mu.RLock()
	t := e.terms[component]
	has := e.hasLocked(entity, component)
	e.mu.RUnlock()
	if !has {
		return
	}
	if !t.onRemove.IsZero() {
		e.fireHook(t.onRemove, entity, t)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.entityLocked(entity)
	if !ok || rec.arch == nil || !rec.arch.mask.has(t.bit) {
		return
	}
	mask := rec.arch.mask
	mask.unset(t.bit)
	e.moveLocked(entity, rec, e.archetypeLocked(mask))
}

// DeleteAllEntitiesByTag destroys every entity carrying tag.
func (e *Engine) DeleteAllEntitiesByTag(tag uint64) {
	if e.deferring() {
		e.queue.push(command{op: opDeleteTagged, entity: tag})
		return
	}
	e.mu.RLock()
	t := e.terms[tag]
	var ids []uint64
	if t != nil {
		for _, a := range e.archList {
			if a.mask.has(t.bit) {
				ids = append(ids, a.entities...)
			}
		}
	}
	e.mu.RUnlock()
	for _, id := range ids {
		e.destroy(id)
	}
	if len(ids) > 0 {
		e.log.Debug("tagged entities deleted", zap.String("tag", t.name), zap.Int("count", len(ids)))
	}
}

// --- hooks ---

func (e *Engine) NewEntry(fn native.Callback) native.Entry {
	return native.Entry{Fn: fn}
}

func (e *Engine) CreateHook(component uint64, onAdd, onRemove native.Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.terms[component]
	if t == nil {
		e.log.Warn("hook for unknown component", zap.Uint64("component", component))
		return
	}
	t.onAdd = onAdd
	t.onRemove = onRemove
}

func (e *Engine) fireRemoveHooks(id uint64) {
	e.mu.RLock()
	var hooked []*term
	if rec, ok := e.entityLocked(id); ok && rec.arch != nil {
		for _, t := range rec.arch.terms {
			if !t.onRemove.IsZero() {
				hooked = append(hooked, t)
			}
		}
	}
	e.mu.RUnlock()
	for _, t := range hooked {
		e.fireHook(t.onRemove, id, t)
	}
}

// fireHook invokes entry with a single-entity iterator whose only slot is t.
// The row is resolved on every buffer request, so the hook may change the
// entity's structure.
func (e *Engine) fireHook(entry native.Entry, entity uint64, t *term) {
	x := &iter{hook: t, entity: entity, count: 1}
	x.single[0] = entity
	e.dispatch(entry, x)
}
