package scene

import "github.com/achilleasa/gargantua/types"

type RigidBodyType uint8

const (
	StaticBody RigidBodyType = iota
	KinematicBody
	DynamicBody
)

// RigidBody marks how an entity moves. Entities without a rigid body
// component behave as static.
type RigidBody struct {
	Type RigidBodyType
}

// Transform places an entity in world space.
type Transform struct {
	Position types.Vec3
	Rotation types.Quat
	Scale    types.Vec3
}

func NewTransform(position types.Vec3) Transform {
	return Transform{
		Position: position,
		Rotation: types.QuatIdent(),
		Scale:    types.XYZ(1, 1, 1),
	}
}

// Matrix composes translation, rotation and scale into a world matrix.
// Zero-valued rotation/scale fields fall back to identity so that literal
// Transform{Position: ...} values behave.
func (t Transform) Matrix() types.Mat4 {
	if t.Rotation == (types.Quat{}) {
		t.Rotation = types.QuatIdent()
	}
	if t.Scale == (types.Vec3{}) {
		t.Scale = types.XYZ(1, 1, 1)
	}
	return types.Translate4(t.Position).Mul4(t.Rotation.Mat4()).Mul4(types.Scale4(t.Scale))
}

// MeshInstance binds a mesh to an entity together with its shading inputs.
type MeshInstance struct {
	// Handle returned by Scene.AddMesh.
	Mesh int32

	// Index returned by Scene.AddMaterial, or MatNone to shade with the
	// inline values below.
	Material int32

	// Raytraced gates inclusion in the flattened geometry.
	Raytraced bool

	// StaticOnly excludes the instance from the flattened geometry once
	// its rigid body stops being static.
	StaticOnly bool

	// Inline shading fallback used when Material == MatNone.
	Albedo        types.Vec3
	Emissive      types.Vec3
	EmissiveScale float32
}

// Beam is an emissive quad strip between two points. Its geometry is
// regenerated by the flattener every frame and is always raytraced.
type Beam struct {
	Start types.Vec3
	End   types.Vec3
	Width float32

	Color         types.Vec3
	EmissiveScale float32

	// PulseHz modulates the beam radiance over time. Zero keeps it steady.
	PulseHz float32
}

// Background is the analytic environment sampled by escaped rays: a vertical
// radiance gradient plus a procedural star field.
type Background struct {
	Top    types.Vec3
	Bottom types.Vec3

	// Fraction of sky directions resolving to a star; zero disables the
	// star field.
	StarDensity   float32
	StarIntensity float32
}

func DefaultBackground() Background {
	return Background{
		Top:           types.XYZ(0.012, 0.016, 0.034),
		Bottom:        types.XYZ(0.002, 0.002, 0.006),
		StarDensity:   0.0015,
		StarIntensity: 6.0,
	}
}
