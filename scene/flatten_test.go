package scene

import (
	"reflect"
	"testing"

	"github.com/achilleasa/gargantua/types"
)

func flattenTestScene(t *testing.T) (*Scene, Entity) {
	t.Helper()

	sc := NewScene()
	matIdx, err := sc.AddMaterial(Material{Name: "plate", Albedo: types.XYZ(0.5, 0.5, 0.5)})
	if err != nil {
		t.Fatal(err)
	}
	meshIdx, err := sc.AddMesh(NewPlaneMesh("plate", 2))
	if err != nil {
		t.Fatal(err)
	}

	ent := sc.CreateEntity()
	if err = sc.SetTransform(ent, NewTransform(types.XYZ(0, -3, 0))); err != nil {
		t.Fatal(err)
	}
	if err = sc.SetMeshInstance(ent, MeshInstance{
		Mesh:      meshIdx,
		Material:  matIdx,
		Raytraced: true,
	}); err != nil {
		t.Fatal(err)
	}
	return sc, ent
}

func TestFlattenDeterminism(t *testing.T) {
	sc, _ := flattenTestScene(t)
	fc := FrameContext{Delta: 0.016, FrameCount: 1}

	flat1 := sc.Flatten(fc)
	flat2 := sc.Flatten(fc)

	if len(flat1.Triangles) != 2 {
		t.Fatalf("expected 2 triangles; got %d", len(flat1.Triangles))
	}
	if flat1.Dynamic {
		t.Fatal("expected static scene not to be flagged dynamic")
	}
	if flat1.Hash == 0 {
		t.Fatal("expected a non-zero content hash")
	}
	if flat1.Hash != flat2.Hash {
		t.Fatalf("expected stable hash for unchanged scene; got %x and %x", flat1.Hash, flat2.Hash)
	}
	if !reflect.DeepEqual(flat1.Triangles, flat2.Triangles) {
		t.Fatal("expected identical triangles for unchanged scene")
	}
}

func TestFlattenHashTracksTransforms(t *testing.T) {
	sc, ent := flattenTestScene(t)
	fc := FrameContext{FrameCount: 1}

	origHash := sc.Flatten(fc).Hash

	if err := sc.SetTransform(ent, NewTransform(types.XYZ(0, -5, 0))); err != nil {
		t.Fatal(err)
	}
	movedHash := sc.Flatten(fc).Hash
	if movedHash == origHash {
		t.Fatal("expected hash to move with the instance transform")
	}

	if err := sc.SetTransform(ent, NewTransform(types.XYZ(0, -3, 0))); err != nil {
		t.Fatal(err)
	}
	if restoredHash := sc.Flatten(fc).Hash; restoredHash != origHash {
		t.Fatalf("expected restored scene to re-hash to %x; got %x", origHash, restoredHash)
	}
}

func TestFlattenSkipsUnraytracedInstances(t *testing.T) {
	sc, ent := flattenTestScene(t)

	meshIdx, _ := sc.MeshByName("plate")
	if err := sc.SetMeshInstance(ent, MeshInstance{
		Mesh:      meshIdx,
		Material:  0,
		Raytraced: false,
	}); err != nil {
		t.Fatal(err)
	}

	if numTris := len(sc.Flatten(FrameContext{}).Triangles); numTris != 0 {
		t.Fatalf("expected no triangles for unraytraced instance; got %d", numTris)
	}

	// Instances without a transform are skipped too.
	orphan := sc.CreateEntity()
	if err := sc.SetMeshInstance(orphan, MeshInstance{Mesh: meshIdx, Material: 0, Raytraced: true}); err != nil {
		t.Fatal(err)
	}
	if numTris := len(sc.Flatten(FrameContext{}).Triangles); numTris != 0 {
		t.Fatalf("expected no triangles for instance without transform; got %d", numTris)
	}
}

func TestFlattenStaticOnlyInstances(t *testing.T) {
	sc, _ := flattenTestScene(t)

	boxIdx, err := sc.AddMesh(NewBoxMesh("crate", 2))
	if err != nil {
		t.Fatal(err)
	}
	crate := sc.CreateEntity()
	if err = sc.SetTransform(crate, NewTransform(types.XYZ(4, 0, 0))); err != nil {
		t.Fatal(err)
	}
	if err = sc.SetMeshInstance(crate, MeshInstance{
		Mesh:       boxIdx,
		Material:   MatNone,
		Raytraced:  true,
		StaticOnly: true,
		Albedo:     types.XYZ(0.3, 0.3, 0.3),
	}); err != nil {
		t.Fatal(err)
	}

	// Without a rigid body the crate counts as static and flattens.
	flat := sc.Flatten(FrameContext{})
	if len(flat.Triangles) != 14 {
		t.Fatalf("expected 14 triangles for plane and crate; got %d", len(flat.Triangles))
	}

	// Once the crate starts moving its static-only geometry drops out.
	if err = sc.SetRigidBody(crate, RigidBody{Type: KinematicBody}); err != nil {
		t.Fatal(err)
	}
	flat = sc.Flatten(FrameContext{})
	if len(flat.Triangles) != 2 {
		t.Fatalf("expected the moving crate to drop out; got %d triangles", len(flat.Triangles))
	}
	if flat.Dynamic {
		t.Fatal("expected scene without flattened dynamic geometry not to be flagged dynamic")
	}
}

func TestFlattenOrdersStaticBeforeDynamic(t *testing.T) {
	sc, _ := flattenTestScene(t)

	boxIdx, err := sc.AddMesh(NewBoxMesh("probe", 2))
	if err != nil {
		t.Fatal(err)
	}
	probe := sc.CreateEntity()
	if err = sc.SetTransform(probe, NewTransform(types.XYZ(4, 0, 0))); err != nil {
		t.Fatal(err)
	}
	if err = sc.SetRigidBody(probe, RigidBody{Type: KinematicBody}); err != nil {
		t.Fatal(err)
	}
	if err = sc.SetMeshInstance(probe, MeshInstance{
		Mesh:      boxIdx,
		Material:  MatNone,
		Raytraced: true,
		Albedo:    types.XYZ(0.3, 0.3, 0.3),
	}); err != nil {
		t.Fatal(err)
	}

	flat := sc.Flatten(FrameContext{})
	if len(flat.Triangles) != 14 {
		t.Fatalf("expected 14 triangles; got %d", len(flat.Triangles))
	}
	if !flat.Dynamic {
		t.Fatal("expected scene with a kinematic instance to be flagged dynamic")
	}

	// The static plane triangles come first, then the probe box.
	for idx := 0; idx < 2; idx++ {
		if flat.Triangles[idx].V[0][1] != -3 {
			t.Fatalf("expected triangle %d to belong to the static plane; got %v", idx, flat.Triangles[idx].V)
		}
	}
	for idx := 2; idx < 14; idx++ {
		if flat.Triangles[idx].V[0][0] < 3 {
			t.Fatalf("expected triangle %d to belong to the probe box; got %v", idx, flat.Triangles[idx].V)
		}
	}
}

func TestFlattenInlineShading(t *testing.T) {
	sc := NewScene()
	meshIdx, err := sc.AddMesh(NewPlaneMesh("panel", 2))
	if err != nil {
		t.Fatal(err)
	}
	ent := sc.CreateEntity()
	if err = sc.SetTransform(ent, NewTransform(types.XYZ(0, 0, 0))); err != nil {
		t.Fatal(err)
	}
	if err = sc.SetMeshInstance(ent, MeshInstance{
		Mesh:          meshIdx,
		Material:      MatNone,
		Raytraced:     true,
		Albedo:        types.XYZ(0.2, 0, 0),
		Emissive:      types.XYZ(1, 0.5, 0),
		EmissiveScale: 2,
	}); err != nil {
		t.Fatal(err)
	}

	flat := sc.Flatten(FrameContext{})
	if len(flat.Triangles) != 2 {
		t.Fatalf("expected 2 triangles; got %d", len(flat.Triangles))
	}

	tri := flat.Triangles[0]
	if tri.MatIndex != MatNone {
		t.Fatalf("expected MatNone; got %d", tri.MatIndex)
	}
	if tri.Albedo != types.XYZ(0.2, 0, 0) {
		t.Fatalf("expected inline albedo to propagate; got %v", tri.Albedo)
	}
	if tri.Emissive != types.XYZ(2, 1, 0) {
		t.Fatalf("expected scaled emissive (2, 1, 0); got %v", tri.Emissive)
	}
	if tri.N != types.XYZ(0, 1, 0) {
		t.Fatalf("expected plane normal +Y; got %v", tri.N)
	}
	if tri.UV[0] != (types.Vec2{0, 0}) || tri.UV[1] != (types.Vec2{1, 1}) || tri.UV[2] != (types.Vec2{1, 0}) {
		t.Fatalf("expected mesh uvs to propagate; got %v", tri.UV)
	}
}

func TestBeamsRehashEveryFrame(t *testing.T) {
	sc := NewScene()
	beam := sc.CreateEntity()
	if err := sc.SetBeam(beam, Beam{
		Start:         types.XYZ(-5, 0, 0),
		End:           types.XYZ(5, 0, 0),
		Width:         0.5,
		Color:         types.XYZ(1, 0, 0),
		EmissiveScale: 3,
	}); err != nil {
		t.Fatal(err)
	}

	fc := FrameContext{Delta: 0.016, FrameCount: 1}
	flat1 := sc.Flatten(fc)
	flat2 := sc.Flatten(fc)
	flat3 := sc.Flatten(FrameContext{Delta: 0.016, FrameCount: 2})

	if !flat1.Dynamic {
		t.Fatal("expected scene with beams to be flagged dynamic")
	}
	if len(flat1.Triangles) != 2 {
		t.Fatalf("expected 2 beam triangles; got %d", len(flat1.Triangles))
	}
	if flat1.Hash != flat2.Hash {
		t.Fatal("expected the same frame context to produce the same hash")
	}
	if flat1.Hash == flat3.Hash {
		t.Fatal("expected a new frame to re-hash the beam geometry")
	}

	tri := flat1.Triangles[0]
	if tri.MatIndex != MatNone {
		t.Fatalf("expected beam triangles to shade inline; got material %d", tri.MatIndex)
	}
	if tri.Emissive != types.XYZ(3, 0, 0) {
		t.Fatalf("expected beam radiance (3, 0, 0); got %v", tri.Emissive)
	}
}

func TestFlattenDropsDegenerateTriangles(t *testing.T) {
	sc := NewScene()
	mesh := &Mesh{
		Name:     "sliver",
		Vertices: []types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces: [][3]uint32{
			{0, 1, 2},
			{0, 0, 1},
		},
	}
	meshIdx, err := sc.AddMesh(mesh)
	if err != nil {
		t.Fatal(err)
	}
	ent := sc.CreateEntity()
	if err = sc.SetTransform(ent, NewTransform(types.XYZ(0, 0, 0))); err != nil {
		t.Fatal(err)
	}
	if err = sc.SetMeshInstance(ent, MeshInstance{Mesh: meshIdx, Material: MatNone, Raytraced: true}); err != nil {
		t.Fatal(err)
	}

	if numTris := len(sc.Flatten(FrameContext{}).Triangles); numTris != 1 {
		t.Fatalf("expected the degenerate face to be dropped; got %d triangles", numTris)
	}
}

func TestLensingHashTracksHoleParams(t *testing.T) {
	sc := NewScene()

	emptyHash := sc.LensingHash()
	if emptyHash == 0 {
		t.Fatal("expected a non-zero basis hash for hole-free scenes")
	}

	ent := sc.CreateEntity()
	hole := NewBlackHole(types.XYZ(0, 0, -40), 1.0)
	if err := sc.SetBlackHole(ent, hole); err != nil {
		t.Fatal(err)
	}
	holeHash := sc.LensingHash()
	if holeHash == emptyHash {
		t.Fatal("expected attaching a hole to change the lensing hash")
	}
	if sc.LensingHash() != holeHash {
		t.Fatal("expected stable lensing hash for unchanged holes")
	}

	hole.Mass = 1.2
	if err := sc.SetBlackHole(ent, hole); err != nil {
		t.Fatal(err)
	}
	if sc.LensingHash() == holeHash {
		t.Fatal("expected a mass change to move the lensing hash")
	}
}
