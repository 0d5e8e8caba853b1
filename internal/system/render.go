package system

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/component"
	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/core/event"
	coresys "github.com/broken-bytes/Playground/internal/core/system"
)

// Submitter receives the draw calls collected during one frame.
type Submitter interface {
	Submit(frame []component.DrawCall) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(frame []component.DrawCall) error

func (f SubmitterFunc) Submit(frame []component.DrawCall) error { return f(frame) }

// RenderQueue accumulates draw calls between native collection and managed
// submission. Safe for concurrent Push.
type RenderQueue struct {
	mu      sync.Mutex
	pending []component.DrawCall
}

func NewRenderQueue() *RenderQueue {
	return &RenderQueue{pending: make([]component.DrawCall, 0, 256)}
}

func (q *RenderQueue) Push(calls ...component.DrawCall) {
	q.mu.Lock()
	q.pending = append(q.pending, calls...)
	q.mu.Unlock()
}

// Drain hands over everything pushed so far and resets the queue.
func (q *RenderQueue) Drain() []component.DrawCall {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = make([]component.DrawCall, 0, cap(out))
	return out
}

func (q *RenderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// RenderSystem copies every staged DrawCall into q.
func RenderSystem(q *RenderQueue) ecs.SystemDesc {
	return ecs.SystemDesc{
		Name:  "RenderSystem",
		Query: []ecs.QueryItem{ecs.Reads[component.DrawCall]()},
		Phase: ecs.OnStore,
		Run: func(c *ecs.Cursor, _ float64) error {
			calls, err := ecs.Column[component.DrawCall](c, 0)
			if err != nil {
				return err
			}
			q.Push(calls...)
			return nil
		},
	}
}

// SubmitSystem hands the collected frame to the submitter and reports the
// outcome on the bus.
// Phase 2 (Render).
type SubmitSystem struct {
	queue  *RenderQueue
	target Submitter
	bus    *event.Bus
	log    *zap.Logger
	frame  uint64
}

func NewSubmitSystem(q *RenderQueue, target Submitter, bus *event.Bus, log *zap.Logger) *SubmitSystem {
	return &SubmitSystem{queue: q, target: target, bus: bus, log: log}
}

func (s *SubmitSystem) Phase() coresys.Phase { return coresys.PhaseRender }

func (s *SubmitSystem) Update(_ time.Duration) {
	frame := s.queue.Drain()
	s.frame++
	if s.target == nil {
		return
	}
	if err := s.target.Submit(frame); err != nil {
		s.log.Error("submit frame", zap.Uint64("frame", s.frame), zap.Int("draw_calls", len(frame)), zap.Error(err))
		if s.bus != nil {
			event.Emit(s.bus, event.SubmitFailed{Frame: s.frame, Err: err})
		}
		return
	}
	if s.bus != nil {
		event.Emit(s.bus, event.FrameSubmitted{Frame: s.frame, DrawCalls: len(frame)})
	}
}

// LogSubmitter reports frame sizes at debug level. Used when no native
// renderer is attached.
func LogSubmitter(log *zap.Logger) Submitter {
	return SubmitterFunc(func(frame []component.DrawCall) error {
		log.Debug("frame submitted", zap.Int("draw_calls", len(frame)))
		return nil
	})
}
