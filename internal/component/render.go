package component

import "github.com/go-gl/mathgl/mgl32"

// Mesh references geometry owned by the native renderer.
type Mesh struct {
	Handle uintptr
	MeshID uint32
}

// Material references a native material instance.
type Material struct {
	Handle uintptr
}

// DrawCall is a per-frame snapshot staged for the renderer. Entities
// carrying it are tagged and deleted at frame end.
type DrawCall struct {
	Model    uintptr
	Material uintptr
	MeshID   uint32
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}
