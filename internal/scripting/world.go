package scripting

import (
	"errors"
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/layout"
)

func (e *Engine) worldFuncs() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"create":        e.luaCreate,
		"destroy":       e.luaDestroy,
		"alive":         e.luaAlive,
		"find":          e.luaFind,
		"parent":        e.luaParent,
		"set_parent":    e.luaSetParent,
		"add":           e.luaAdd,
		"set":           e.luaSet,
		"get":           e.luaGet,
		"has":           e.luaHas,
		"remove":        e.luaRemove,
		"add_tag":       e.luaAddTag,
		"delete_tagged": e.luaDeleteTagged,
	}
}

func checkEntity(L *lua.LState, n int) ecs.Entity {
	v := float64(L.CheckNumber(n))
	if v < 0 || v > maxExactID || v != math.Trunc(v) {
		L.ArgError(n, "entity id expected")
	}
	return ecs.Entity(uint64(v))
}

func pushEntity(L *lua.LState, e ecs.Entity) {
	L.Push(entityValue(L, e))
}

// entityValue converts an id to a Lua number, raising for ids a float64
// cannot hold exactly.
func entityValue(L *lua.LState, e ecs.Entity) lua.LNumber {
	if uint64(e) > maxExactID {
		L.RaiseError("entity id %d does not fit a Lua number", uint64(e))
	}
	return lua.LNumber(uint64(e))
}

func (e *Engine) descriptor(L *lua.LState, n int) *ecs.Descriptor {
	d, err := e.w.Descriptor(L.CheckString(n))
	if err != nil {
		L.RaiseError("%v", err)
	}
	return d
}

func raise(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%v", err)
	}
}

// ecs.create([name]) -> id
func (e *Engine) luaCreate(L *lua.LState) int {
	id, err := e.w.CreateEntity(L.OptString(1, ""))
	raise(L, err)
	pushEntity(L, id)
	return 1
}

func (e *Engine) luaDestroy(L *lua.LState) int {
	raise(L, e.w.DestroyEntity(checkEntity(L, 1)))
	return 0
}

func (e *Engine) luaAlive(L *lua.LState) int {
	L.Push(lua.LBool(e.w.IsAlive(checkEntity(L, 1))))
	return 1
}

// ecs.find(name) -> id or nil
func (e *Engine) luaFind(L *lua.LState) int {
	id, ok := e.w.FindByName(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	pushEntity(L, id)
	return 1
}

// ecs.parent(id) -> parent id or nil for roots
func (e *Engine) luaParent(L *lua.LState) int {
	p, ok, err := e.w.Parent(checkEntity(L, 1))
	raise(L, err)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	pushEntity(L, p)
	return 1
}

// ecs.set_parent(child[, parent]); a nil or 0 parent detaches.
func (e *Engine) luaSetParent(L *lua.LState) int {
	child := checkEntity(L, 1)
	var parent ecs.Entity
	if L.Get(2) != lua.LNil {
		parent = checkEntity(L, 2)
	}
	raise(L, e.w.SetParent(child, parent))
	return 0
}

func (e *Engine) luaAdd(L *lua.LState) int {
	id := checkEntity(L, 1)
	raise(L, e.w.AddID(id, e.descriptor(L, 2)))
	return 0
}

// ecs.set(id, component, {field = value, ...}) writes the given fields,
// attaching the component first when missing. Omitted fields keep their
// value.
func (e *Engine) luaSet(L *lua.LState) int {
	id := checkEntity(L, 1)
	d := e.descriptor(L, 2)
	values, ok := toGo(L.CheckTable(3)).(map[string]any)
	if !ok {
		L.ArgError(3, "field table expected")
	}
	buf := make([]byte, d.Size)
	cur, has, err := e.w.Bytes(id, d)
	raise(L, err)
	if has {
		copy(buf, cur)
	}
	raise(L, layout.Encode(d.Layout, buf, values))
	raise(L, e.w.SetBytes(id, d, buf))
	return 0
}

// ecs.get(id, component) -> field table or nil
func (e *Engine) luaGet(L *lua.LState) int {
	id := checkEntity(L, 1)
	d := e.descriptor(L, 2)
	raw, ok, err := e.w.Bytes(id, d)
	raise(L, err)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	m, err := layout.Decode(d.Layout, raw)
	raise(L, err)
	L.Push(toLua(L, m))
	return 1
}

// ecs.has(id, name) checks a component, or a tag when no component has the
// name.
func (e *Engine) luaHas(L *lua.LState) int {
	id := checkEntity(L, 1)
	name := L.CheckString(2)
	d, err := e.w.Descriptor(name)
	if errors.Is(err, ecs.ErrComponentNotRegistered) {
		has, err := e.w.HasTag(id, name)
		raise(L, err)
		L.Push(lua.LBool(has))
		return 1
	}
	has, err := e.w.HasID(id, d)
	raise(L, err)
	L.Push(lua.LBool(has))
	return 1
}

func (e *Engine) luaRemove(L *lua.LState) int {
	id := checkEntity(L, 1)
	raise(L, e.w.RemoveID(id, e.descriptor(L, 2)))
	return 0
}

func (e *Engine) luaAddTag(L *lua.LState) int {
	raise(L, e.w.AddTag(checkEntity(L, 1), L.CheckString(2)))
	return 0
}

func (e *Engine) luaDeleteTagged(L *lua.LState) int {
	raise(L, e.w.DeleteEntitiesWithTag(L.CheckString(1)))
	return 0
}
