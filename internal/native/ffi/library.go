// Package ffi binds a native ECS engine's function table with purego so it can
// be driven without cgo.
package ffi

import (
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/native"
)

// Library is a native.Engine backed by foreign function pointers.
type Library struct {
	handle uintptr
	log    *zap.Logger

	createEntity         func(name string) uint64
	destroyEntity        func(id uint64)
	isAlive              func(id uint64) bool
	setParent            func(child, parent uint64)
	getParent            func(id uint64) uint64
	getEntityByName      func(name string) uint64
	registerComponent    func(name string, size, align uint64) uint64
	addComponent         func(entity, component uint64)
	setComponent         func(entity, component uint64, data unsafe.Pointer)
	getComponent         func(entity, component uint64) unsafe.Pointer
	hasComponent         func(entity, component uint64) bool
	destroyComponent     func(entity, component uint64)
	createSystem         func(name string, filters unsafe.Pointer, count uint64, multithreaded bool, dispatch uintptr) uint64
	getIteratorSystem    func(it uintptr) uint64
	getIteratorSize      func(it uintptr) uint64
	getIteratorDeltaTime func(it uintptr) float64
	getEntities          func(it uintptr, count *uint64) unsafe.Pointer
	getComponentBuffer   func(it uintptr, slot uint32, size uint64, count *uint64) unsafe.Pointer
	createHook           func(component uint64, onAdd, onRemove uintptr)
	createTag            func(name string) uint64
	addTag               func(entity, tag uint64)
	deleteAllByTag       func(tag uint64)
	update               func(dt float64) bool

	warnOnce sync.Once
}

var _ native.Engine = (*Library)(nil)

type binding struct {
	name     string
	fptr     any
	optional bool
}

// Bind resolves every table entry into a callable Go function. It fails with
// native.ErrMissingEntry listing the absent required entries.
func Bind(table *native.LookupTable, log *zap.Logger) (*Library, error) {
	if missing := table.Missing(); len(missing) > 0 {
		return nil, eris.Wrapf(native.ErrMissingEntry, "%s", strings.Join(missing, ", "))
	}
	l := &Library{log: log}
	for _, b := range l.bindings() {
		ptr, ok := table.Lookup(b.name)
		if !ok {
			if b.optional {
				log.Debug("optional native entry absent", zap.String("entry", b.name))
				continue
			}
			return nil, eris.Wrap(native.ErrMissingEntry, b.name)
		}
		purego.RegisterFunc(b.fptr, ptr)
	}
	log.Info("native function table bound", zap.Int("entries", table.Len()))
	return l, nil
}

func (l *Library) bindings() []binding {
	return []binding{
		{native.FnCreateEntity, &l.createEntity, false},
		{native.FnDestroyEntity, &l.destroyEntity, false},
		{native.FnIsAlive, &l.isAlive, false},
		{native.FnSetParent, &l.setParent, false},
		{native.FnGetParent, &l.getParent, false},
		{native.FnGetEntityByName, &l.getEntityByName, false},
		{native.FnRegisterComponent, &l.registerComponent, false},
		{native.FnAddComponent, &l.addComponent, false},
		{native.FnSetComponent, &l.setComponent, false},
		{native.FnGetComponent, &l.getComponent, false},
		{native.FnHasComponent, &l.hasComponent, false},
		{native.FnDestroyComponent, &l.destroyComponent, false},
		{native.FnCreateSystem, &l.createSystem, false},
		{native.FnGetIteratorSystem, &l.getIteratorSystem, false},
		{native.FnGetIteratorSize, &l.getIteratorSize, false},
		{native.FnGetIteratorDeltaTime, &l.getIteratorDeltaTime, true},
		{native.FnGetEntitiesFromIterator, &l.getEntities, false},
		{native.FnGetComponentBuffer, &l.getComponentBuffer, false},
		{native.FnCreateHook, &l.createHook, false},
		{native.FnCreateTag, &l.createTag, false},
		{native.FnAddTag, &l.addTag, false},
		{native.FnDeleteAllEntitiesByTag, &l.deleteAllByTag, false},
		{native.FnUpdate, &l.update, true},
	}
}

func (l *Library) CreateEntity(name string) uint64 { return l.createEntity(name) }
func (l *Library) DestroyEntity(id uint64)         { l.destroyEntity(id) }
func (l *Library) IsAlive(id uint64) bool          { return l.isAlive(id) }
func (l *Library) SetParent(child, parent uint64)  { l.setParent(child, parent) }
func (l *Library) GetParent(id uint64) uint64      { return l.getParent(id) }

func (l *Library) GetEntityByName(name string) uint64 { return l.getEntityByName(name) }

func (l *Library) RegisterComponent(name string, size, align uint64) uint64 {
	return l.registerComponent(name, size, align)
}

func (l *Library) AddComponent(entity, component uint64) { l.addComponent(entity, component) }

func (l *Library) SetComponent(entity, component uint64, data unsafe.Pointer) {
	l.setComponent(entity, component, data)
}

func (l *Library) GetComponent(entity, component uint64) unsafe.Pointer {
	return l.getComponent(entity, component)
}

func (l *Library) HasComponent(entity, component uint64) bool {
	return l.hasComponent(entity, component)
}

func (l *Library) DestroyComponent(entity, component uint64) { l.destroyComponent(entity, component) }

// NewEntry allocates a C-callable trampoline for fn. purego keeps a bounded
// number of callbacks alive for the process, so entries must be created once
// at startup.
func (l *Library) NewEntry(fn native.Callback) native.Entry {
	ptr := purego.NewCallback(func(it uintptr) {
		fn(native.Iter(it))
	})
	return native.Entry{Ptr: ptr, Fn: fn}
}

func (l *Library) CreateSystem(name string, filters []native.Filter, multithreaded bool, dispatch native.Entry) uint64 {
	var base unsafe.Pointer
	if len(filters) > 0 {
		base = unsafe.Pointer(&filters[0])
	}
	id := l.createSystem(name, base, uint64(len(filters)), multithreaded, dispatch.Ptr)
	runtime.KeepAlive(filters)
	return id
}

func (l *Library) GetIteratorSystem(it native.Iter) uint64 { return l.getIteratorSystem(uintptr(it)) }
func (l *Library) GetIteratorSize(it native.Iter) uint64   { return l.getIteratorSize(uintptr(it)) }

func (l *Library) GetIteratorDeltaTime(it native.Iter) float64 {
	if l.getIteratorDeltaTime == nil {
		return 0
	}
	return l.getIteratorDeltaTime(uintptr(it))
}

func (l *Library) GetEntitiesFromIterator(it native.Iter) (unsafe.Pointer, uint64) {
	var n uint64
	ptr := l.getEntities(uintptr(it), &n)
	return ptr, n
}

func (l *Library) GetComponentBuffer(it native.Iter, slot uint32, size uint64) (unsafe.Pointer, uint64) {
	var n uint64
	ptr := l.getComponentBuffer(uintptr(it), slot, size, &n)
	return ptr, n
}

func (l *Library) CreateHook(component uint64, onAdd, onRemove native.Entry) {
	l.createHook(component, onAdd.Ptr, onRemove.Ptr)
}

func (l *Library) CreateTag(name string) uint64      { return l.createTag(name) }
func (l *Library) AddTag(entity, tag uint64)         { l.addTag(entity, tag) }
func (l *Library) DeleteAllEntitiesByTag(tag uint64) { l.deleteAllByTag(tag) }

// Progress advances the native frame loop when the library exports
// ECS_Update. A library without it drives its own loop and is never
// reported as stopped.
func (l *Library) Progress(dt float64) bool {
	if l.update == nil {
		l.warnOnce.Do(func() {
			l.log.Info("native library has no update entry, frames are driven natively")
		})
		return true
	}
	return l.update(dt)
}

// DrivesFrames reports whether the library runs its own frame loop.
func (l *Library) DrivesFrames() bool { return l.update == nil }

func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := closeHandle(l.handle)
	l.handle = 0
	return err
}
