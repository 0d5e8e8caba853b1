package system

import (
	"sync/atomic"
	"time"

	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/core/event"
	coresys "github.com/broken-bytes/Playground/internal/core/system"
)

// ProgressSystem advances the native engine by one frame.
// Phase 1 (Native).
type ProgressSystem struct {
	world   *ecs.World
	bus     *event.Bus
	frames  uint64
	stopped atomic.Bool
}

func NewProgressSystem(world *ecs.World, bus *event.Bus) *ProgressSystem {
	return &ProgressSystem{world: world, bus: bus}
}

func (s *ProgressSystem) Phase() coresys.Phase { return coresys.PhaseNative }

func (s *ProgressSystem) Update(dt time.Duration) {
	s.frames++
	if s.world.Progress(dt) || s.stopped.Swap(true) {
		return
	}
	if s.bus != nil {
		event.Emit(s.bus, event.EngineStopped{Frame: s.frames})
	}
}

// Stopped reports whether the native engine asked to quit.
func (s *ProgressSystem) Stopped() bool { return s.stopped.Load() }
