package system

import (
	"time"

	"github.com/broken-bytes/Playground/internal/core/event"
	coresys "github.com/broken-bytes/Playground/internal/core/system"
)

// EventDispatchSystem delivers last frame's events.
// Phase 0 (Input).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
