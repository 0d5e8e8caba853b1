package system

import "time"

// Phase defines execution ordering of managed steps within a single frame.
// Native systems run inside PhaseNative, ordered by their own ecs.Phase.
type Phase int

const (
	PhaseInput   Phase = iota // 0: scripts and external input
	PhaseNative               // 1: native engine progress
	PhaseRender               // 2: submit collected draw calls
	PhaseCleanup              // 3: delete per-frame entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseNative:
		return "native"
	case PhaseRender:
		return "render"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every managed frame step implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
