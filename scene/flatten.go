package scene

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/chewxy/math32"

	"github.com/achilleasa/gargantua/types"
)

// Triangles with edges shorter than this are dropped as degenerate.
const minEdgeLength float32 = 1e-6

// Triangle is the raytracer-facing primitive emitted by the flattener.
// Triangles are immutable once submitted for a frame.
type Triangle struct {
	// World space vertices.
	V [3]types.Vec3

	// Face normal, the normalized cross product of the first two edges.
	N types.Vec3

	// Per vertex texture coordinates.
	UV [3]types.Vec2

	// World space tangent; W carries handedness.
	Tangent types.Vec4

	// Material table index, or MatNone for inline shading.
	MatIndex int32

	// Inline shading values used when MatIndex == MatNone.
	Albedo   types.Vec3
	Emissive types.Vec3
}

// BBox implements BoundedVolume.
func (t *Triangle) BBox() [2]types.Vec3 {
	return [2]types.Vec3{
		types.MinVec3(types.MinVec3(t.V[0], t.V[1]), t.V[2]),
		types.MaxVec3(types.MaxVec3(t.V[0], t.V[1]), t.V[2]),
	}
}

// Center implements BoundedVolume.
func (t *Triangle) Center() types.Vec3 {
	return t.V[0].Add(t.V[1]).Add(t.V[2]).Mul(1.0 / 3.0)
}

// FlatScene is the geometry snapshot handed to the tracer backends for one
// frame.
type FlatScene struct {
	Triangles []Triangle
	Materials []Material

	// Hash of every input that shaped Triangles. Stable frame to frame
	// for an unchanged scene so BVH rebuilds can be skipped.
	Hash uint64

	// Dynamic marks scenes whose geometry changes every frame (non-static
	// bodies or beams present); the BVH is then rebuilt per frame.
	Dynamic bool
}

// flattenCache memoizes the triangles of static instances between frames.
type flattenCache struct {
	valid bool
	hash  uint64
	tris  []Triangle
}

// Flatten converts the live scene into an ordered triangle soup. Static
// instances come first in instance insertion order, then non-static
// instances, then per-frame beam geometry. The same unchanged scene always
// produces the same triangles in the same order.
func (s *Scene) Flatten(fc FrameContext) *FlatScene {
	staticHasher := newContentHasher()
	var staticInsts, dynamicInsts []int

	for idx, inst := range s.instances {
		if !inst.Raytraced {
			continue
		}
		owner := s.instOwner[idx]
		matrix, exists := s.transformMatrixOf(owner)
		if !exists {
			continue
		}
		body := s.rigidBodyOf(owner)
		if body.Type != StaticBody {
			if inst.StaticOnly {
				continue
			}
			dynamicInsts = append(dynamicInsts, idx)
			continue
		}
		staticInsts = append(staticInsts, idx)
		staticHasher.instance(&inst, matrix)
	}

	staticHash := staticHasher.sum()
	if !s.flatCache.valid || s.flatCache.hash != staticHash {
		s.flatCache.tris = s.flatCache.tris[:0]
		for _, idx := range staticInsts {
			matrix, _ := s.transformMatrixOf(s.instOwner[idx])
			s.flatCache.tris = s.triangulate(&s.instances[idx], matrix, s.flatCache.tris)
		}
		s.flatCache.hash = staticHash
		s.flatCache.valid = true
	}

	flat := &FlatScene{
		Triangles: append(make([]Triangle, 0, len(s.flatCache.tris)), s.flatCache.tris...),
		Materials: append([]Material(nil), s.materials...),
		Dynamic:   len(dynamicInsts)+len(s.beams) > 0,
	}

	frameHasher := newContentHasher()
	frameHasher.u64(staticHash)
	for _, idx := range dynamicInsts {
		matrix, _ := s.transformMatrixOf(s.instOwner[idx])
		frameHasher.instance(&s.instances[idx], matrix)
		flat.Triangles = s.triangulate(&s.instances[idx], matrix, flat.Triangles)
	}
	flat.Triangles = s.appendBeams(fc, flat.Triangles, frameHasher)
	flat.Hash = frameHasher.sum()

	return flat
}

// triangulate expands a mesh instance into world space triangles, dropping
// degenerate faces.
func (s *Scene) triangulate(inst *MeshInstance, matrix types.Mat4, out []Triangle) []Triangle {
	mesh := s.meshes[inst.Mesh]
	hasUVs := len(mesh.UVs) == len(mesh.Vertices)

	albedo := inst.Albedo
	emissive := inst.Emissive
	if inst.EmissiveScale != 0 {
		emissive = emissive.Mul(inst.EmissiveScale)
	}

	for _, face := range mesh.Faces {
		var tri Triangle
		for corner := 0; corner < 3; corner++ {
			tri.V[corner] = matrix.Mul4x1(mesh.Vertices[face[corner]].Vec4(1)).Vec3()
			if hasUVs {
				tri.UV[corner] = mesh.UVs[face[corner]]
			}
		}

		e1 := tri.V[1].Sub(tri.V[0])
		e2 := tri.V[2].Sub(tri.V[0])
		cross := e1.Cross(e2)
		if cross.Len() < minEdgeLength {
			continue
		}
		tri.N = cross.Normalize()
		tri.Tangent = faceTangent(e1, e2, tri.N, tri.UV, hasUVs)
		tri.MatIndex = inst.Material
		tri.Albedo = albedo
		tri.Emissive = emissive
		out = append(out, tri)
	}
	return out
}

// faceTangent derives the world space tangent from the uv layout, falling
// back to the first edge for meshes without uv data.
func faceTangent(e1, e2, normal types.Vec3, uv [3]types.Vec2, hasUVs bool) types.Vec4 {
	if !hasUVs {
		return e1.Normalize().Vec4(1)
	}

	duv1 := uv[1].Sub(uv[0])
	duv2 := uv[2].Sub(uv[0])
	denom := duv1[0]*duv2[1] - duv1[1]*duv2[0]
	if math32.Abs(denom) < 1e-12 {
		return e1.Normalize().Vec4(1)
	}

	r := 1.0 / denom
	tangent := e1.Mul(duv2[1] * r).Sub(e2.Mul(duv1[1] * r)).Normalize()
	bitangent := e2.Mul(duv1[0] * r).Sub(e1.Mul(duv2[0] * r))

	handedness := float32(1)
	if normal.Cross(tangent).Dot(bitangent) < 0 {
		handedness = -1
	}
	return tangent.Vec4(handedness)
}

// appendBeams triangulates every beam as a camera facing quad. Beam fields
// and the generated corners fold into the frame hash so scenes with beams
// re-hash differently every frame.
func (s *Scene) appendBeams(fc FrameContext, out []Triangle, hasher *contentHasher) []Triangle {
	if len(s.beams) == 0 {
		return out
	}

	eye := types.XYZ(0, 0, 1)
	if s.Camera != nil {
		eye = s.Camera.Position
	}

	for _, beam := range s.beams {
		axis := beam.End.Sub(beam.Start)
		if axis.Len() < minEdgeLength {
			continue
		}
		mid := beam.Start.Add(beam.End).Mul(0.5)
		side := axis.Cross(eye.Sub(mid))
		if side.Len() < minEdgeLength {
			// Beam points straight at the eye; any perpendicular works.
			side = axis.Cross(types.XYZ(0, 1, 0))
			if side.Len() < minEdgeLength {
				side = axis.Cross(types.XYZ(1, 0, 0))
			}
		}
		side = side.Normalize().Mul(beam.Width * 0.5)

		pulse := float32(1)
		if beam.PulseHz > 0 {
			elapsed := float32(fc.FrameCount) * fc.Delta
			pulse = 0.75 + 0.25*math32.Sin(2*math32.Pi*beam.PulseHz*elapsed)
		}
		radiance := beam.Color.Mul(beam.EmissiveScale * pulse)

		corners := [4]types.Vec3{
			beam.Start.Sub(side),
			beam.Start.Add(side),
			beam.End.Add(side),
			beam.End.Sub(side),
		}
		hasher.u32(fc.FrameCount)
		for _, corner := range corners {
			hasher.vec3(corner)
		}
		hasher.vec3(radiance)

		quadUV := [2][3]types.Vec2{
			{{0, 0}, {1, 0}, {1, 1}},
			{{0, 0}, {1, 1}, {0, 1}},
		}
		quadIdx := [2][3]int{{0, 1, 2}, {0, 2, 3}}
		for half := 0; half < 2; half++ {
			var tri Triangle
			for corner := 0; corner < 3; corner++ {
				tri.V[corner] = corners[quadIdx[half][corner]]
			}
			e1 := tri.V[1].Sub(tri.V[0])
			e2 := tri.V[2].Sub(tri.V[0])
			cross := e1.Cross(e2)
			if cross.Len() < minEdgeLength {
				continue
			}
			tri.N = cross.Normalize()
			tri.UV = quadUV[half]
			tri.Tangent = e1.Normalize().Vec4(1)
			tri.MatIndex = MatNone
			tri.Emissive = radiance
			out = append(out, tri)
		}
	}
	return out
}

// LensingHash folds every black hole parameter into a single hash. The
// renderer resets sample accumulation when it changes.
func (s *Scene) LensingHash() uint64 {
	hasher := newContentHasher()
	for idx := range s.holes {
		hole := &s.holes[idx]
		hasher.vec3(hole.Position)
		hasher.f32(hole.Mass)
		hasher.f32(hole.Spin)
		hasher.vec3(hole.SpinAxis)
		hasher.f32(hole.DiskInnerRadius)
		hasher.f32(hole.DiskOuterRadius)
		hasher.f32(hole.DiskInnerTemp)
		hasher.f32(hole.DiskOuterTemp)
	}
	return hasher.sum()
}

// contentHasher folds scene fields into an fnv-1a stream.
type contentHasher struct {
	h   hash.Hash64
	buf [8]byte
}

func newContentHasher() *contentHasher {
	return &contentHasher{h: fnv.New64a()}
}

func (ch *contentHasher) f32(v float32) {
	binary.LittleEndian.PutUint32(ch.buf[:4], math32.Float32bits(v))
	ch.h.Write(ch.buf[:4])
}

func (ch *contentHasher) u32(v uint32) {
	binary.LittleEndian.PutUint32(ch.buf[:4], v)
	ch.h.Write(ch.buf[:4])
}

func (ch *contentHasher) i32(v int32) {
	ch.u32(uint32(v))
}

func (ch *contentHasher) u64(v uint64) {
	binary.LittleEndian.PutUint64(ch.buf[:], v)
	ch.h.Write(ch.buf[:])
}

func (ch *contentHasher) vec3(v types.Vec3) {
	ch.f32(v[0])
	ch.f32(v[1])
	ch.f32(v[2])
}

func (ch *contentHasher) mat4(m types.Mat4) {
	for _, v := range m {
		ch.f32(v)
	}
}

func (ch *contentHasher) instance(inst *MeshInstance, matrix types.Mat4) {
	ch.i32(inst.Mesh)
	ch.i32(inst.Material)
	ch.mat4(matrix)
	ch.vec3(inst.Albedo)
	ch.vec3(inst.Emissive)
	ch.f32(inst.EmissiveScale)
}

func (ch *contentHasher) sum() uint64 {
	return ch.h.Sum64()
}
