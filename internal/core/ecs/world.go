package ecs

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/native"
)

// World is the process-scoped bridge to a native ECS engine. It owns the
// component registry, the system table, hooks and tags, plus the single
// dispatch entry the engine calls back into for every system batch.
type World struct {
	eng   native.Engine
	log   *zap.Logger
	debug bool

	registry *Registry
	systems  systemTable
	hooks    hookTable
	tags     tagTable
	dispatch native.Entry
	closed   atomic.Bool
}

type Option func(*World)

func WithLogger(log *zap.Logger) Option {
	return func(w *World) { w.log = log }
}

// WithDebugChecks makes Column verify the requested type against the
// component declared for the slot.
func WithDebugChecks(on bool) Option {
	return func(w *World) { w.debug = on }
}

// Open binds a World to eng and creates the dispatch entry.
func Open(eng native.Engine, opts ...Option) *World {
	w := &World{eng: eng, log: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	w.registry = newRegistry(eng, w.log)
	w.tags.ids = make(map[string]uint64)
	w.hooks.byComponent = make(map[ComponentID]struct{})
	w.systems.init()
	w.dispatch = eng.NewEntry(w.dispatchEntry)
	return w
}

// Close releases the native engine. The World must not be used afterwards.
func (w *World) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	return w.eng.Close()
}

func (w *World) Engine() native.Engine { return w.eng }
func (w *World) Registry() *Registry   { return w.registry }
func (w *World) Logger() *zap.Logger   { return w.log }
func (w *World) DebugChecks() bool     { return w.debug }

// Progress runs one native frame.
func (w *World) Progress(dt time.Duration) bool {
	if w.closed.Load() {
		return false
	}
	return w.eng.Progress(dt.Seconds())
}
