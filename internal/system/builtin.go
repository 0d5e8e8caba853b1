package system

import (
	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/component"
	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/core/event"
	coresys "github.com/broken-bytes/Playground/internal/core/system"
)

// Pipeline wires the built-in native systems and the managed frame steps
// around them.
type Pipeline struct {
	Queue    *RenderQueue
	Bus      *event.Bus
	Progress *ProgressSystem
	Runner   *coresys.Runner
}

// Setup registers the built-in components, transform hooks and the draw-call
// tag on w, adds the built-in systems to s and returns the managed runner.
// Systems in s are not registered here; the caller adds its own first and
// then calls s.Register.
func Setup(w *ecs.World, s *ecs.Schedule, target Submitter, log *zap.Logger) (*Pipeline, error) {
	if _, err := component.Register(w); err != nil {
		return nil, err
	}
	if err := AttachTransformHooks(w); err != nil {
		return nil, err
	}
	if _, err := w.CreateTag(DrawCallTag); err != nil {
		return nil, err
	}
	q := NewRenderQueue()
	s.Add(HierarchySystem(w), DrawCallSystem(w), RenderSystem(q))

	bus := event.NewBus()
	p := &Pipeline{
		Queue:    q,
		Bus:      bus,
		Progress: NewProgressSystem(w, bus),
		Runner:   coresys.NewRunner(log),
	}
	if target == nil {
		target = LogSubmitter(log)
	}
	p.Runner.Register(NewEventDispatchSystem(bus))
	p.Runner.Register(p.Progress)
	p.Runner.Register(NewSubmitSystem(q, target, bus, log))
	p.Runner.Register(NewCleanupSystem(w, log, DrawCallTag))
	return p, nil
}
