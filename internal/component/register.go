package component

import (
	"github.com/broken-bytes/Playground/internal/core/ecs"
)

// Register registers the built-in components in a fixed order so native ids
// are stable across runs.
func Register(w *ecs.World) ([]*ecs.Descriptor, error) {
	regs := []func(*ecs.World) (*ecs.Descriptor, error){
		ecs.Register[Transform],
		ecs.Register[WorldTransform],
		ecs.Register[Mesh],
		ecs.Register[Material],
		ecs.Register[DrawCall],
	}
	out := make([]*ecs.Descriptor, 0, len(regs))
	for _, reg := range regs {
		d, err := reg(w)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
