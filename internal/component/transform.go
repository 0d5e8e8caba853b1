package component

import "github.com/go-gl/mathgl/mgl32"

// Transform is an entity's local placement relative to its parent.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// WorldTransform is derived from Transform by the hierarchy system.
// Never written by gameplay code.
type WorldTransform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// NewTransform returns a transform at pos with identity rotation and unit scale.
func NewTransform(pos mgl32.Vec3) Transform {
	return Transform{
		Position: pos,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// World copies a root transform into world space unchanged.
func (t Transform) World() WorldTransform {
	return WorldTransform(t)
}

// Matrix returns the model matrix scale, then rotate, then translate.
func (t WorldTransform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(t.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}
