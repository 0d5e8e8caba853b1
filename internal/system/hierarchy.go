package system

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/broken-bytes/Playground/internal/component"
	"github.com/broken-bytes/Playground/internal/core/ecs"
)

// HierarchySystem derives WorldTransform from Transform and the parent's
// local Transform. Only the direct parent is composed: deeper chains do not
// accumulate, and the parent's rotation does not rotate the child's offset.
// Entities whose parent has no Transform are treated as roots.
func HierarchySystem(w *ecs.World) ecs.SystemDesc {
	return ecs.SystemDesc{
		Name: "HierarchySystem",
		Query: []ecs.QueryItem{
			ecs.Reads[component.Transform](),
			ecs.Writes[component.WorldTransform](),
		},
		Multithreaded: true,
		Phase:         ecs.PostUpdate,
		Run: func(c *ecs.Cursor, _ float64) error {
			return ecs.Each2(c, 0, 1, func(e ecs.Entity, local *component.Transform, world *component.WorldTransform) {
				*world = compose(w, e, *local)
			})
		},
	}
}

func compose(w *ecs.World, e ecs.Entity, local component.Transform) component.WorldTransform {
	parent, ok, err := w.Parent(e)
	if err != nil || !ok {
		return local.World()
	}
	pt, ok, err := ecs.Get[component.Transform](w, parent)
	if err != nil || !ok {
		return local.World()
	}
	return Compose(*pt, local)
}

// Compose combines a parent's local transform with a child's.
func Compose(parent, local component.Transform) component.WorldTransform {
	return component.WorldTransform{
		Position: parent.Position.Add(local.Position),
		Rotation: parent.Rotation.Mul(local.Rotation),
		Scale: mgl32.Vec3{
			parent.Scale[0] * local.Scale[0],
			parent.Scale[1] * local.Scale[1],
			parent.Scale[2] * local.Scale[2],
		},
	}
}

// AttachTransformHooks keeps WorldTransform present exactly while Transform
// is: attaching Transform seeds WorldTransform with the local value and
// removing it drops the derived component.
func AttachTransformHooks(w *ecs.World) error {
	return ecs.AddHook[component.Transform](w,
		func(c *ecs.Cursor) error {
			ts, err := ecs.Field[component.Transform](c)
			if err != nil {
				return err
			}
			for i, e := range c.Entities() {
				if err := ecs.Set(w, e, ts[i].World()); err != nil {
					return err
				}
			}
			return nil
		},
		func(c *ecs.Cursor) error {
			for _, e := range c.Entities() {
				if err := ecs.Remove[component.WorldTransform](w, e); err != nil {
					return err
				}
			}
			return nil
		})
}
