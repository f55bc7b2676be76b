package scene

import (
	"fmt"

	"github.com/achilleasa/gargantua/types"
)

// Built-in demo scenes, in menu order.
var demoSceneOrder = []string{"gargantua", "binary", "beams", "grid"}

var demoScenes = map[string]struct {
	desc  string
	build func() (*Scene, error)
}{
	"gargantua": {
		desc:  "spinning black hole with an accretion disk over a ground plane",
		build: newGargantuaScene,
	},
	"binary": {
		desc:  "black hole pair demonstrating additive lensing",
		build: newBinaryScene,
	},
	"beams": {
		desc:  "laser beams and a tumbling probe near a fast spinning hole",
		build: newBeamsScene,
	},
	"grid": {
		desc:  "emissive box grid lensed behind a non-spinning hole",
		build: newGridScene,
	},
}

// DemoSceneNames lists the built-in demo scenes in menu order.
func DemoSceneNames() []string {
	return demoSceneOrder
}

// DemoSceneDescription returns the one-line description of a demo scene.
func DemoSceneDescription(name string) string {
	return demoScenes[name].desc
}

// DemoScene constructs one of the built-in demo scenes by name.
func DemoScene(name string) (*Scene, error) {
	entry, exists := demoScenes[name]
	if !exists {
		return nil, fmt.Errorf("scene: unknown demo scene %q", name)
	}
	return entry.build()
}

func newGargantuaScene() (*Scene, error) {
	sc := NewScene()

	hole := NewBlackHole(types.XYZ(0, 0, 0), 2.2)
	hole.Spin = 0.6
	if err := sc.SetBlackHole(sc.CreateEntity(), hole); err != nil {
		return nil, err
	}

	groundMat, err := sc.AddMaterial(Material{
		Name:   "ground",
		Albedo: types.XYZ(0.55, 0.53, 0.5),
	})
	if err != nil {
		return nil, err
	}
	groundMesh, err := sc.AddMesh(NewPlaneMesh("ground", 80))
	if err != nil {
		return nil, err
	}

	ground := sc.CreateEntity()
	if err = sc.SetTransform(ground, NewTransform(types.XYZ(0, -12, 0))); err != nil {
		return nil, err
	}
	if err = sc.SetMeshInstance(ground, MeshInstance{
		Mesh:      groundMesh,
		Material:  groundMat,
		Raytraced: true,
	}); err != nil {
		return nil, err
	}

	camera := NewCamera(55)
	camera.Position = types.XYZ(0, 3, 40)
	camera.LookAt = types.XYZ(0, 0, 0)
	sc.SetCamera(camera)

	return sc, nil
}

func newBinaryScene() (*Scene, error) {
	sc := NewScene()

	primary := NewBlackHole(types.XYZ(-9, 0, 0), 1.6)
	if err := sc.SetBlackHole(sc.CreateEntity(), primary); err != nil {
		return nil, err
	}

	secondary := NewBlackHole(types.XYZ(9, 0, 0), 1.1)
	secondary.Spin = 0.85
	secondary.SpinAxis = types.XYZ(0.3, 1, 0.1)
	if err := sc.SetBlackHole(sc.CreateEntity(), secondary); err != nil {
		return nil, err
	}

	camera := NewCamera(60)
	camera.Position = types.XYZ(0, 7, 52)
	camera.LookAt = types.XYZ(0, 0, 0)
	sc.SetCamera(camera)

	return sc, nil
}

func newBeamsScene() (*Scene, error) {
	sc := NewScene()

	hole := NewBlackHole(types.XYZ(0, 0, 0), 2.0)
	hole.Spin = 0.9
	if err := sc.SetBlackHole(sc.CreateEntity(), hole); err != nil {
		return nil, err
	}

	redBeam := sc.CreateEntity()
	if err := sc.SetBeam(redBeam, Beam{
		Start:         types.XYZ(-24, 6, -6),
		End:           types.XYZ(24, -2, -6),
		Width:         0.4,
		Color:         types.XYZ(1, 0.22, 0.18),
		EmissiveScale: 7,
		PulseHz:       1.5,
	}); err != nil {
		return nil, err
	}

	greenBeam := sc.CreateEntity()
	if err := sc.SetBeam(greenBeam, Beam{
		Start:         types.XYZ(-20, -8, 4),
		End:           types.XYZ(22, 9, 4),
		Width:         0.3,
		Color:         types.XYZ(0.25, 1, 0.3),
		EmissiveScale: 5,
	}); err != nil {
		return nil, err
	}

	probeMesh, err := sc.AddMesh(NewBoxMesh("probe", 1.6))
	if err != nil {
		return nil, err
	}
	probeMat, err := sc.AddMaterial(Material{
		Name:         "probe-hull",
		Albedo:       types.XYZ(0.8, 0.8, 0.85),
		Reflectivity: 0.35,
	})
	if err != nil {
		return nil, err
	}

	probe := sc.CreateEntity()
	if err = sc.SetTransform(probe, NewTransform(types.XYZ(12, 2, 8))); err != nil {
		return nil, err
	}
	if err = sc.SetRigidBody(probe, RigidBody{Type: KinematicBody}); err != nil {
		return nil, err
	}
	if err = sc.SetMeshInstance(probe, MeshInstance{
		Mesh:      probeMesh,
		Material:  probeMat,
		Raytraced: true,
	}); err != nil {
		return nil, err
	}

	camera := NewCamera(58)
	camera.Position = types.XYZ(0, 4, 42)
	camera.LookAt = types.XYZ(0, 0, 0)
	sc.SetCamera(camera)

	return sc, nil
}

func newGridScene() (*Scene, error) {
	sc := NewScene()

	hole := NewBlackHole(types.XYZ(0, 0, 0), 2.2)
	hole.Spin = 0
	hole.DiskOuterRadius = 0 // no disk; the lensed grid is the subject
	if err := sc.SetBlackHole(sc.CreateEntity(), hole); err != nil {
		return nil, err
	}

	boxMesh, err := sc.AddMesh(NewBoxMesh("cell", 2.4))
	if err != nil {
		return nil, err
	}

	var palette = []types.Vec3{
		types.XYZ(1, 0.5, 0.2),
		types.XYZ(0.3, 0.8, 1),
		types.XYZ(0.9, 0.9, 0.4),
		types.XYZ(0.7, 0.4, 1),
	}
	for row := -2; row <= 2; row++ {
		for col := -2; col <= 2; col++ {
			if row == 0 && col == 0 {
				continue
			}
			cell := sc.CreateEntity()
			pos := types.XYZ(float32(col)*9, float32(row)*9, -34)
			if err = sc.SetTransform(cell, NewTransform(pos)); err != nil {
				return nil, err
			}
			tint := palette[(row*5+col+12)%len(palette)]
			if err = sc.SetMeshInstance(cell, MeshInstance{
				Mesh:          boxMesh,
				Material:      MatNone,
				Raytraced:     true,
				Albedo:        tint.Mul(0.2),
				Emissive:      tint,
				EmissiveScale: 1.4,
			}); err != nil {
				return nil, err
			}
		}
	}

	camera := NewCamera(55)
	camera.Position = types.XYZ(0, 0, 40)
	camera.LookAt = types.XYZ(0, 0, 0)
	sc.SetCamera(camera)

	return sc, nil
}
