package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/core/ecs"
)

// APIVersion is exposed to scripts as the API_VERSION global.
const APIVersion = 1

// Engine wraps a single gopher-lua VM that declares components, tags, hooks
// and systems on a World. Single-goroutine access only: script systems are
// never multithreaded and hooks fire on the frame goroutine.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
	w   *ecs.World

	systems    []ecs.SystemDesc
	components []*ecs.Descriptor
}

// NewEngine creates a Lua engine and loads every script under scriptsDir.
// An empty scriptsDir creates an engine with no scripts loaded.
func NewEngine(scriptsDir string, w *ecs.World, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))

	e := &Engine{vm: vm, log: log, w: w}
	e.openAPI()
	if scriptsDir == "" {
		return e, nil
	}

	// Top-level scripts first, then declarations, then the systems using them.
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	for _, sub := range []string{"components", "hooks", "systems"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	log.Info("lua scripts loaded",
		zap.String("dir", scriptsDir),
		zap.Int("components", len(e.components)),
		zap.Int("systems", len(e.systems)))
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// Systems returns the systems declared by scripts, in declaration order.
// They are registered by adding them to the frame's ecs.Schedule.
func (e *Engine) Systems() []ecs.SystemDesc {
	return append([]ecs.SystemDesc(nil), e.systems...)
}

// Components returns the components declared by scripts.
func (e *Engine) Components() []*ecs.Descriptor {
	return append([]*ecs.Descriptor(nil), e.components...)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// call invokes a Lua function in protected mode and discards its results.
func (e *Engine) call(fn *lua.LFunction, args ...lua.LValue) error {
	return e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...)
}
