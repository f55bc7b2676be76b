package scene

import (
	"github.com/chewxy/math32"

	"github.com/achilleasa/gargantua/types"
)

// Mesh holds indexed triangle geometry in model space. UVs are optional;
// meshes without them get a default tangent basis during flattening.
type Mesh struct {
	Name     string
	Vertices []types.Vec3
	UVs      []types.Vec2
	Faces    [][3]uint32
}

// Create a quad plane mesh centered at the origin spanning the XZ plane.
func NewPlaneMesh(name string, size float32) *Mesh {
	h := size * 0.5
	return &Mesh{
		Name: name,
		Vertices: []types.Vec3{
			{-h, 0, -h},
			{h, 0, -h},
			{h, 0, h},
			{-h, 0, h},
		},
		UVs: []types.Vec2{
			{0, 0},
			{1, 0},
			{1, 1},
			{0, 1},
		},
		Faces: [][3]uint32{
			{0, 2, 1},
			{0, 3, 2},
		},
	}
}

// Create a unit cube mesh centered at the origin.
func NewBoxMesh(name string, size float32) *Mesh {
	h := size * 0.5
	verts := []types.Vec3{
		{-h, -h, -h}, {h, -h, -h}, {h, h, -h}, {-h, h, -h},
		{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h},
	}
	faces := [][3]uint32{
		{0, 2, 1}, {0, 3, 2}, // back
		{4, 5, 6}, {4, 6, 7}, // front
		{0, 7, 3}, {0, 4, 7}, // left
		{1, 2, 6}, {1, 6, 5}, // right
		{3, 6, 2}, {3, 7, 6}, // top
		{0, 1, 5}, {0, 5, 4}, // bottom
	}
	return &Mesh{Name: name, Vertices: verts, Faces: faces}
}

// Create a UV sphere mesh centered at the origin.
func NewSphereMesh(name string, radius float32, stacks, slices int) *Mesh {
	if stacks < 2 {
		stacks = 2
	}
	if slices < 3 {
		slices = 3
	}

	mesh := &Mesh{Name: name}
	for stack := 0; stack <= stacks; stack++ {
		phi := math32.Pi * float32(stack) / float32(stacks)
		sinPhi, cosPhi := math32.Sincos(phi)
		for slice := 0; slice <= slices; slice++ {
			theta := 2 * math32.Pi * float32(slice) / float32(slices)
			sinTheta, cosTheta := math32.Sincos(theta)
			mesh.Vertices = append(mesh.Vertices, types.XYZ(
				radius*sinPhi*cosTheta,
				radius*cosPhi,
				radius*sinPhi*sinTheta,
			))
			mesh.UVs = append(mesh.UVs, types.XY(
				float32(slice)/float32(slices),
				float32(stack)/float32(stacks),
			))
		}
	}

	ringLen := uint32(slices + 1)
	for stack := 0; stack < stacks; stack++ {
		for slice := 0; slice < slices; slice++ {
			a := uint32(stack)*ringLen + uint32(slice)
			b := a + ringLen
			if stack != 0 {
				mesh.Faces = append(mesh.Faces, [3]uint32{a, b, a + 1})
			}
			if stack != stacks-1 {
				mesh.Faces = append(mesh.Faces, [3]uint32{a + 1, b, b + 1})
			}
		}
	}
	return mesh
}
