package scene

import "github.com/achilleasa/gargantua/types"

// MatNone marks triangles that shade with inline albedo/emissive values
// instead of a material table entry.
const MatNone int32 = -1

// Defines a scene material.
type Material struct {
	Name string

	// Base surface reflectance.
	Albedo types.Vec3

	// Emitted radiance, scaled by EmissiveScale.
	Emissive      types.Vec3
	EmissiveScale float32

	// Mirror reflectivity in [0, 1]. Reflective surfaces bounce rays up
	// to the configured bounce budget; the reflected rays keep lensing.
	Reflectivity float32
}

// Radiance returns the material's total emitted radiance.
func (m Material) Radiance() types.Vec3 {
	scale := m.EmissiveScale
	if scale == 0 {
		scale = 1
	}
	return m.Emissive.Mul(scale)
}
