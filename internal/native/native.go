// Package native defines the boundary between managed code and the ECS
// storage engine: the name-indexed function table, the wire types that cross
// it and the Engine operations both the purego binding and the in-process
// host implement.
package native

import (
	"unsafe"
)

// Iter is an opaque handle to the engine's iteration context. It is valid only
// for the duration of the callback it was passed to.
type Iter uintptr

// Callback is a managed function the engine may invoke with an iteration context.
type Callback func(it Iter)

// Entry is a managed callback made reachable from the engine. Ptr is the
// C-callable address for foreign engines and is zero for in-process engines.
// The zero Entry means "no callback".
type Entry struct {
	Ptr uintptr
	Fn  Callback
}

// IsZero reports whether the entry carries no callback.
func (e Entry) IsZero() bool {
	return e.Ptr == 0 && e.Fn == nil
}

// Usage declares how a system accesses a filter term.
type Usage int16

const (
	UsageRead      Usage = 3
	UsageWrite     Usage = 4
	UsageReadWrite Usage = 5
)

func (u Usage) String() string {
	switch u {
	case UsageRead:
		return "read"
	case UsageWrite:
		return "write"
	case UsageReadWrite:
		return "readwrite"
	}
	return "unknown"
}

// Operation combines a filter term with the rest of the query.
type Operation int16

const (
	OpAnd Operation = 0
	OpOr  Operation = 1
	OpNot Operation = 2
)

func (o Operation) String() string {
	switch o {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpNot:
		return "not"
	}
	return "unknown"
}

// Filter is one query term in the layout ECS_CreateSystem consumes:
// {u64 id; i16 usage; i16 op}, 16 bytes with 8-byte alignment.
type Filter struct {
	ID        uint64
	Usage     Usage
	Operation Operation
}

// FilterSize is the wire size of one Filter.
const FilterSize = unsafe.Sizeof(Filter{})

// Engine is the set of native operations the managed side depends on. All
// calls are synchronous. Ids are 64-bit and 0 means "none".
type Engine interface {
	CreateEntity(name string) uint64
	DestroyEntity(id uint64)
	IsAlive(id uint64) bool
	SetParent(child, parent uint64)
	GetParent(id uint64) uint64
	GetEntityByName(name string) uint64

	RegisterComponent(name string, size, align uint64) uint64
	AddComponent(entity, component uint64)
	SetComponent(entity, component uint64, data unsafe.Pointer)
	GetComponent(entity, component uint64) unsafe.Pointer
	HasComponent(entity, component uint64) bool
	DestroyComponent(entity, component uint64)

	// NewEntry makes fn callable by the engine. Entries live for the process.
	NewEntry(fn Callback) Entry
	CreateSystem(name string, filters []Filter, multithreaded bool, dispatch Entry) uint64
	GetIteratorSystem(it Iter) uint64
	GetIteratorSize(it Iter) uint64
	GetIteratorDeltaTime(it Iter) float64
	GetEntitiesFromIterator(it Iter) (unsafe.Pointer, uint64)
	// GetComponentBuffer returns the column for the filter term at slot with
	// the element count; nil when the term is absent from the batch or size
	// does not match the registered size.
	GetComponentBuffer(it Iter, slot uint32, size uint64) (unsafe.Pointer, uint64)

	CreateHook(component uint64, onAdd, onRemove Entry)
	CreateTag(name string) uint64
	AddTag(entity, tag uint64)
	DeleteAllEntitiesByTag(tag uint64)

	// Progress runs one frame of every registered system.
	Progress(dt float64) bool
	Close() error
}
