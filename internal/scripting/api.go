package scripting

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/layout"
)

// openAPI installs the declaration globals, the ecs table and the cursor
// type.
func (e *Engine) openAPI() {
	L := e.vm
	L.SetGlobal("component", L.NewFunction(e.luaComponent))
	L.SetGlobal("tag", L.NewFunction(e.luaTag))
	L.SetGlobal("hook", L.NewFunction(e.luaHook))
	L.SetGlobal("system", L.NewFunction(e.luaSystem))
	L.SetGlobal("ecs", L.SetFuncs(L.NewTable(), e.worldFuncs()))
	e.openCursor()
}

// component(name, {{field, kind[, count]}, ...}) declares a component from
// an ordered field list. A kind naming a declared component nests it.
func (e *Engine) luaComponent(L *lua.LState) int {
	name := L.CheckString(1)
	fields := L.CheckTable(2)
	if fields.MaxN() == 0 {
		L.ArgError(2, "component needs at least one field, use tag() for markers")
		return 0
	}
	specs := make([]layout.FieldSpec, 0, fields.MaxN())
	for i := 1; i <= fields.MaxN(); i++ {
		spec, err := e.fieldSpec(fields.RawGetInt(i))
		if err != nil {
			L.ArgError(2, fmt.Sprintf("field %d: %v", i, err))
			return 0
		}
		specs = append(specs, spec)
	}
	st, err := layout.New(name, specs)
	if err != nil {
		L.RaiseError("component %s: %v", name, err)
		return 0
	}
	known := e.w.Registry().Len()
	d, err := e.w.Registry().RegisterLayout(st)
	if err != nil {
		L.RaiseError("component %s: %v", name, err)
		return 0
	}
	if e.w.Registry().Len() > known {
		e.components = append(e.components, d)
	}
	L.Push(lua.LNumber(d.ID))
	return 1
}

func (e *Engine) fieldSpec(v lua.LValue) (layout.FieldSpec, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return layout.FieldSpec{}, fmt.Errorf("want {name, kind[, count]}, got %s", v.Type())
	}
	pick := func(i int, key string) lua.LValue {
		if x := t.RawGetInt(i); x != lua.LNil {
			return x
		}
		return t.RawGetString(key)
	}
	spec := layout.FieldSpec{Name: lua.LVAsString(pick(1, "name"))}
	kind := lua.LVAsString(pick(2, "kind"))
	if n, ok := pick(3, "count").(lua.LNumber); ok {
		spec.Count = int(n)
	}
	k, err := layout.ParseKind(kind)
	if err == nil {
		spec.Kind = k
		return spec, nil
	}
	d, derr := e.w.Descriptor(kind)
	if derr != nil || d.Layout == nil {
		return layout.FieldSpec{}, err
	}
	spec.Kind = layout.Nested
	spec.Elem = d.Layout
	return spec, nil
}

// tag(name) creates a tag and returns its id.
func (e *Engine) luaTag(L *lua.LState) int {
	id, err := e.w.CreateTag(L.CheckString(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LNumber(id))
	return 1
}

// hook(component, on_add, on_remove) attaches callbacks; either may be nil.
func (e *Engine) luaHook(L *lua.LState) int {
	name := L.CheckString(1)
	d, err := e.w.Descriptor(name)
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	if err := e.w.AddHookID(d, e.hookFunc(L, 2), e.hookFunc(L, 3)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (e *Engine) hookFunc(L *lua.LState, n int) ecs.HookFunc {
	switch fn := L.Get(n).(type) {
	case *lua.LFunction:
		return func(c *ecs.Cursor) error {
			return e.call(fn, e.newCursor(c))
		}
	case *lua.LNilType:
		return nil
	default:
		L.ArgError(n, "function or nil expected")
		return nil
	}
}

// system{name=, phase=, order=, multithreaded=, query={{component, usage[, op]}, ...}, run=function(it, dt)}
// declares a system. Declared systems are registered with the frame schedule.
func (e *Engine) luaSystem(L *lua.LState) int {
	spec := L.CheckTable(1)
	name := lua.LVAsString(spec.RawGetString("name"))
	if name == "" {
		L.ArgError(1, "system needs a name")
		return 0
	}
	for _, s := range e.systems {
		if s.Name == name {
			L.RaiseError("system %q declared twice", name)
			return 0
		}
	}
	run, ok := spec.RawGetString("run").(*lua.LFunction)
	if !ok {
		L.ArgError(1, "system needs a run function")
		return 0
	}
	phase, err := ecs.ParsePhase(lua.LVAsString(spec.RawGetString("phase")))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	order := lua.LVAsNumber(spec.RawGetString("order"))
	if float64(order) != math.Trunc(float64(order)) {
		L.ArgError(1, "order must be an integer")
		return 0
	}
	if lua.LVAsBool(spec.RawGetString("multithreaded")) {
		e.log.Warn("lua systems run single-threaded", zap.String("system", name))
	}

	var query []ecs.QueryItem
	if q, ok := spec.RawGetString("query").(*lua.LTable); ok {
		for i := 1; i <= q.MaxN(); i++ {
			item, err := queryItem(q.RawGetInt(i))
			if err != nil {
				L.ArgError(1, fmt.Sprintf("query term %d: %v", i, err))
				return 0
			}
			query = append(query, item)
		}
	}

	e.systems = append(e.systems, ecs.SystemDesc{
		Name:  name,
		Query: query,
		Phase: phase,
		Order: int(order),
		Run: func(c *ecs.Cursor, dt float64) error {
			return e.call(run, e.newCursor(c), lua.LNumber(dt))
		},
	})
	e.log.Debug("lua system declared", zap.String("system", name), zap.Stringer("phase", phase))
	return 0
}

func queryItem(v lua.LValue) (ecs.QueryItem, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return ecs.QueryItem{}, fmt.Errorf("want {component, usage[, op]}, got %s", v.Type())
	}
	usage, err := ecs.ParseUsage(lua.LVAsString(t.RawGetInt(2)))
	if err != nil {
		return ecs.QueryItem{}, err
	}
	op, err := ecs.ParseOperation(lua.LVAsString(t.RawGetInt(3)))
	if err != nil {
		return ecs.QueryItem{}, err
	}
	name := lua.LVAsString(t.RawGetInt(1))
	if name == "" {
		return ecs.QueryItem{}, fmt.Errorf("term names no component")
	}
	return ecs.Named(name, usage, op), nil
}
