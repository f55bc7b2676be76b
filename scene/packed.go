package scene

import "github.com/achilleasa/gargantua/types"

// PackedScene bundles the immutable per-frame data consumed by the
// tracing kernels: a BVH over the flattened triangles plus the material
// table and the background. The renderer builds a fresh instance
// whenever the flattened content hash changes and swaps it in between
// frames; tracers never mutate it.
type PackedScene struct {
	BVH        *BVH
	Materials  []Material
	Background Background

	// Indices into BVH.Triangles for triangles that emit light. The
	// shading kernel samples these for direct lighting.
	EmissiveTris []int32

	// The content hash of the flattened geometry this scene was
	// packed from.
	Hash uint64
}

// Pack builds a BVH over the flattened triangles and bundles it with
// the material table and background. An empty triangle list yields
// ErrNoGeometry; callers that want to keep tracing against empty space
// should pack an empty BVH instead.
func Pack(flat *FlatScene, background Background, maxLeafSize int) (*PackedScene, error) {
	bvh, err := NewTriangleBVH(flat.Triangles, maxLeafSize)
	if err != nil {
		return nil, err
	}

	packed := &PackedScene{
		BVH:        bvh,
		Materials:  flat.Materials,
		Background: background,
		Hash:       flat.Hash,
	}

	// The BVH reorders triangles, so the light table must index the
	// packed order, not the flattened one.
	for idx := range bvh.Triangles {
		if packed.TriangleRadiance(&bvh.Triangles[idx]) != (types.Vec3{}) {
			packed.EmissiveTris = append(packed.EmissiveTris, int32(idx))
		}
	}
	return packed, nil
}

// TriangleRadiance resolves the emitted radiance of a packed triangle
// through the material table, falling back to the inline emissive value
// for MatNone triangles.
func (ps *PackedScene) TriangleRadiance(tri *Triangle) types.Vec3 {
	if tri.MatIndex != MatNone && int(tri.MatIndex) < len(ps.Materials) {
		return ps.Materials[tri.MatIndex].Radiance()
	}
	return tri.Emissive
}
