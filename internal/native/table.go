package native

import (
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// Exported symbol names of the engine's function table.
const (
	FnCreateEntity            = "ECS_CreateEntity"
	FnDestroyEntity           = "ECS_DestroyEntity"
	FnIsAlive                 = "ECS_IsAlive"
	FnSetParent               = "ECS_SetParent"
	FnGetParent               = "ECS_GetParent"
	FnGetEntityByName         = "ECS_GetEntityByName"
	FnRegisterComponent       = "ECS_RegisterComponent"
	FnAddComponent            = "ECS_AddComponent"
	FnSetComponent            = "ECS_SetComponent"
	FnGetComponent            = "ECS_GetComponent"
	FnHasComponent            = "ECS_HasComponent"
	FnDestroyComponent        = "ECS_DestroyComponent"
	FnCreateSystem            = "ECS_CreateSystem"
	FnGetIteratorSystem       = "ECS_GetIteratorSystem"
	FnGetIteratorSize         = "ECS_GetIteratorSize"
	FnGetIteratorDeltaTime    = "ECS_GetIteratorDeltaTime"
	FnGetEntitiesFromIterator = "ECS_GetEntitiesFromIterator"
	FnGetComponentBuffer      = "ECS_GetComponentBuffer"
	FnCreateHook              = "ECS_CreateHook"
	FnCreateTag               = "ECS_CreateTag"
	FnAddTag                  = "ECS_AddTag"
	FnDeleteAllEntitiesByTag  = "ECS_DeleteAllEntitiesByTag"
	FnUpdate                  = "ECS_Update"
)

// RequiredEntries must all be present before the bridge can start.
var RequiredEntries = []string{
	FnCreateEntity,
	FnDestroyEntity,
	FnIsAlive,
	FnSetParent,
	FnGetParent,
	FnGetEntityByName,
	FnRegisterComponent,
	FnAddComponent,
	FnSetComponent,
	FnGetComponent,
	FnHasComponent,
	FnDestroyComponent,
	FnCreateSystem,
	FnGetIteratorSystem,
	FnGetIteratorSize,
	FnGetEntitiesFromIterator,
	FnGetComponentBuffer,
	FnCreateHook,
	FnCreateTag,
	FnAddTag,
	FnDeleteAllEntitiesByTag,
}

// OptionalEntries are bound when present.
var OptionalEntries = []string{
	FnGetIteratorDeltaTime,
	FnUpdate,
}

var ErrMissingEntry = eris.New("native: function table entry missing")

// LookupTable maps exported names to function pointers. It is populated once
// before startup and read afterwards.
type LookupTable struct {
	mu      sync.RWMutex
	entries map[string]uintptr
}

func NewLookupTable() *LookupTable {
	return &LookupTable{entries: make(map[string]uintptr)}
}

// AddEntry records ptr under name, replacing a previous entry. Zero pointers
// are ignored.
func (t *LookupTable) AddEntry(name string, ptr uintptr) {
	if ptr == 0 {
		return
	}
	t.mu.Lock()
	t.entries[name] = ptr
	t.mu.Unlock()
}

func (t *LookupTable) Lookup(name string) (uintptr, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ptr, ok := t.entries[name]
	return ptr, ok
}

func (t *LookupTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Missing lists the required entries that have not been added, sorted.
func (t *LookupTable) Missing() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, name := range RequiredEntries {
		if _, ok := t.entries[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Validate returns ErrMissingEntry naming the first absent required entry.
func (t *LookupTable) Validate() error {
	if missing := t.Missing(); len(missing) > 0 {
		return eris.Wrapf(ErrMissingEntry, "%d missing, first %s", len(missing), missing[0])
	}
	return nil
}
