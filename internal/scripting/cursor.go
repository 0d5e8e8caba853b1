package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/layout"
)

const cursorType = "ecs.cursor"

// Slots and rows are 1-based on the Lua side.
var cursorMethods = map[string]lua.LGFunction{
	"count":    cursorCount,
	"system":   cursorSystem,
	"entity":   cursorEntity,
	"entities": cursorEntities,
	"has":      cursorHas,
	"get":      cursorGet,
	"set":      cursorSet,
}

func (e *Engine) openCursor() {
	mt := e.vm.NewTypeMetatable(cursorType)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), cursorMethods))
}

func (e *Engine) newCursor(c *ecs.Cursor) *lua.LUserData {
	ud := e.vm.NewUserData()
	ud.Value = c
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(cursorType))
	return ud
}

func checkCursor(L *lua.LState) *ecs.Cursor {
	ud := L.CheckUserData(1)
	c, ok := ud.Value.(*ecs.Cursor)
	if !ok {
		L.ArgError(1, "cursor expected")
	}
	return c
}

func checkRow(L *lua.LState, c *ecs.Cursor, n int) int {
	row := L.CheckInt(n)
	if row < 1 || row > c.Count() {
		L.ArgError(n, "row out of range")
	}
	return row - 1
}

// slotData returns the layout and row bytes of a slot, or nil bytes when the
// batch does not carry the component.
func slotData(L *lua.LState, c *ecs.Cursor) (*ecs.Descriptor, []byte) {
	slot := L.CheckInt(2) - 1
	row := checkRow(L, c, 3)
	d, _, err := c.Component(slot)
	raise(L, err)
	if d.Layout == nil {
		L.ArgError(2, d.Name+" carries no data")
	}
	col, err := c.Bytes(slot)
	raise(L, err)
	if col == nil {
		return d, nil
	}
	off := uintptr(row) * d.Size
	return d, col[off : off+d.Size]
}

func cursorCount(L *lua.LState) int {
	L.Push(lua.LNumber(checkCursor(L).Count()))
	return 1
}

func cursorSystem(L *lua.LState) int {
	L.Push(lua.LString(checkCursor(L).System()))
	return 1
}

func cursorEntity(L *lua.LState) int {
	c := checkCursor(L)
	row := checkRow(L, c, 2)
	ents := c.Entities()
	if ents == nil {
		raise(L, ecs.ErrCursorClosed)
	}
	pushEntity(L, ents[row])
	return 1
}

func cursorEntities(L *lua.LState) int {
	c := checkCursor(L)
	ents := c.Entities()
	t := L.CreateTable(len(ents), 0)
	for _, id := range ents {
		t.Append(entityValue(L, id))
	}
	L.Push(t)
	return 1
}

func cursorHas(L *lua.LState) int {
	c := checkCursor(L)
	L.Push(lua.LBool(c.IsSet(L.CheckInt(2) - 1)))
	return 1
}

// it:get(slot, row) -> field table, or nil for an absent optional term
func cursorGet(L *lua.LState) int {
	c := checkCursor(L)
	d, raw := slotData(L, c)
	if raw == nil {
		L.Push(lua.LNil)
		return 1
	}
	m, err := layout.Decode(d.Layout, raw)
	raise(L, err)
	L.Push(toLua(L, m))
	return 1
}

// it:set(slot, row, {field = value, ...}) writes into a writable slot.
func cursorSet(L *lua.LState) int {
	c := checkCursor(L)
	usage, err := c.Usage(L.CheckInt(2) - 1)
	raise(L, err)
	if usage == ecs.Read {
		L.ArgError(2, "slot is declared read-only")
	}
	d, raw := slotData(L, c)
	if raw == nil {
		L.ArgError(2, "batch does not carry "+d.Name)
	}
	values, ok := toGo(L.CheckTable(4)).(map[string]any)
	if !ok {
		L.ArgError(4, "field table expected")
	}
	raise(L, layout.Encode(d.Layout, raw, values))
	return 0
}
