package system

import (
	"github.com/google/uuid"

	"github.com/broken-bytes/Playground/internal/component"
	"github.com/broken-bytes/Playground/internal/core/ecs"
)

// DrawCallTag marks the per-frame entities staged by DrawCallSystem.
const DrawCallTag = "___internal___DrawCall"

// DrawCallSystem stages one DrawCall entity per renderable entity. The staged
// entities are created while the system runs and become visible to later
// systems of the same frame; CleanupSystem deletes them at frame end.
func DrawCallSystem(w *ecs.World) ecs.SystemDesc {
	return ecs.SystemDesc{
		Name: "DrawCallSystem",
		Query: []ecs.QueryItem{
			ecs.Reads[component.WorldTransform](),
			ecs.Reads[component.Mesh](),
			ecs.Reads[component.Material](),
		},
		Phase: ecs.PreStore,
		Run: func(c *ecs.Cursor, _ float64) error {
			var stageErr error
			err := ecs.Each3(c, 0, 1, 2, func(_ ecs.Entity, t *component.WorldTransform, m *component.Mesh, mat *component.Material) {
				if stageErr != nil {
					return
				}
				stageErr = stage(w, component.DrawCall{
					Model:    m.Handle,
					Material: mat.Handle,
					MeshID:   m.MeshID,
					Position: t.Position,
					Rotation: t.Rotation,
					Scale:    t.Scale,
				})
			})
			if err != nil {
				return err
			}
			return stageErr
		},
	}
}

func stage(w *ecs.World, dc component.DrawCall) error {
	e, err := w.CreateEntity("DrawCall_" + uuid.NewString())
	if err != nil {
		return err
	}
	if err := w.AddTag(e, DrawCallTag); err != nil {
		return err
	}
	return ecs.Set(w, e, dc)
}
