package scene

import (
	"fmt"

	"github.com/achilleasa/gargantua/types"
)

// Entity is a stable handle into the scene arena.
type Entity uint32

// Per-frame inputs passed explicitly to anything that varies with time.
type FrameContext struct {
	// Seconds elapsed since the previous frame. Only procedural geometry
	// (beams) depends on it.
	Delta float32

	// Monotonically increasing frame counter.
	FrameCount uint32
}

// Component slots for a single entity. Negative slots mean the entity does
// not carry that component.
type componentSet struct {
	transform int32
	mesh      int32
	body      int32
	beam      int32
	hole      int32
}

// Scene is a tagged-component arena. Components of each type are stored in
// dense slices so scene queries iterate contiguous memory; entities resolve
// to component slots through a per-entity lookup table.
type Scene struct {
	Camera     *Camera
	Background Background

	materials []Material
	meshes    []*Mesh

	entities []componentSet

	transforms []Transform
	instances  []MeshInstance
	instOwner  []Entity
	bodies     []RigidBody
	beams      []Beam
	beamOwner  []Entity
	holes      []BlackHole

	flatCache flattenCache
}

func NewScene() *Scene {
	return &Scene{
		Background: DefaultBackground(),
	}
}

// Attach a camera to the scene.
func (s *Scene) SetCamera(camera *Camera) {
	s.Camera = camera
}

// Add a material to the scene. Returns the material index that mesh
// instances reference.
func (s *Scene) AddMaterial(material Material) (int32, error) {
	for _, mat := range s.materials {
		if mat.Name != "" && mat.Name == material.Name {
			return 0, fmt.Errorf("scene: material %q already added", material.Name)
		}
	}
	s.materials = append(s.materials, material)
	return int32(len(s.materials) - 1), nil
}

// Add a triangle mesh to the scene. Returns the mesh handle that mesh
// instances reference.
func (s *Scene) AddMesh(mesh *Mesh) (int32, error) {
	if mesh == nil || len(mesh.Faces) == 0 {
		return 0, fmt.Errorf("scene: cannot add empty mesh")
	}
	numVerts := uint32(len(mesh.Vertices))
	for _, face := range mesh.Faces {
		if face[0] >= numVerts || face[1] >= numVerts || face[2] >= numVerts {
			return 0, fmt.Errorf("scene: mesh %q references out of range vertex", mesh.Name)
		}
	}
	s.meshes = append(s.meshes, mesh)
	return int32(len(s.meshes) - 1), nil
}

// Allocate a new entity with no components attached.
func (s *Scene) CreateEntity() Entity {
	s.entities = append(s.entities, componentSet{
		transform: -1,
		mesh:      -1,
		body:      -1,
		beam:      -1,
		hole:      -1,
	})
	return Entity(len(s.entities) - 1)
}

func (s *Scene) lookup(ent Entity) (*componentSet, error) {
	if int(ent) >= len(s.entities) {
		return nil, fmt.Errorf("scene: unknown entity %d", ent)
	}
	return &s.entities[int(ent)], nil
}

// Attach or replace the entity's transform.
func (s *Scene) SetTransform(ent Entity, transform Transform) error {
	set, err := s.lookup(ent)
	if err != nil {
		return err
	}
	if set.transform >= 0 {
		s.transforms[set.transform] = transform
		return nil
	}
	set.transform = int32(len(s.transforms))
	s.transforms = append(s.transforms, transform)
	return nil
}

// Get the entity's transform. The second return flags component presence.
func (s *Scene) TransformOf(ent Entity) (*Transform, bool) {
	set, err := s.lookup(ent)
	if err != nil || set.transform < 0 {
		return nil, false
	}
	return &s.transforms[set.transform], true
}

// Attach or replace the entity's mesh instance. The instance must reference
// a mesh already added to the scene and either a valid material index or
// MatNone with inline shading values.
func (s *Scene) SetMeshInstance(ent Entity, inst MeshInstance) error {
	set, err := s.lookup(ent)
	if err != nil {
		return err
	}
	if inst.Mesh < 0 || int(inst.Mesh) >= len(s.meshes) {
		return fmt.Errorf("scene: mesh instance references unknown mesh %d", inst.Mesh)
	}
	if inst.Material != MatNone && (inst.Material < 0 || int(inst.Material) >= len(s.materials)) {
		return fmt.Errorf("scene: mesh instance references unknown material %d; ensure that the material is added to the scene before the instance", inst.Material)
	}
	if set.mesh >= 0 {
		s.instances[set.mesh] = inst
		return nil
	}
	set.mesh = int32(len(s.instances))
	s.instances = append(s.instances, inst)
	s.instOwner = append(s.instOwner, ent)
	return nil
}

// Attach or replace the entity's rigid body marker. Entities without one are
// treated as static.
func (s *Scene) SetRigidBody(ent Entity, body RigidBody) error {
	set, err := s.lookup(ent)
	if err != nil {
		return err
	}
	if set.body >= 0 {
		s.bodies[set.body] = body
		return nil
	}
	set.body = int32(len(s.bodies))
	s.bodies = append(s.bodies, body)
	return nil
}

// Attach or replace an emissive beam on the entity. Beam geometry is
// regenerated every frame by the flattener.
func (s *Scene) SetBeam(ent Entity, beam Beam) error {
	set, err := s.lookup(ent)
	if err != nil {
		return err
	}
	if set.beam >= 0 {
		s.beams[set.beam] = beam
		return nil
	}
	set.beam = int32(len(s.beams))
	s.beams = append(s.beams, beam)
	s.beamOwner = append(s.beamOwner, ent)
	return nil
}

// Attach or replace a black hole on the entity. Parameters outside their
// legal ranges are clamped, never rejected.
func (s *Scene) SetBlackHole(ent Entity, hole BlackHole) error {
	set, err := s.lookup(ent)
	if err != nil {
		return err
	}
	hole.clamp()
	if set.hole >= 0 {
		s.holes[set.hole] = hole
		return nil
	}
	set.hole = int32(len(s.holes))
	s.holes = append(s.holes, hole)
	return nil
}

// Get the dense black hole list in entity attachment order.
func (s *Scene) BlackHoles() []BlackHole {
	return s.holes
}

// Get the dense material list. Indices match the handles returned by
// AddMaterial.
func (s *Scene) Materials() []Material {
	return s.materials
}

// Get the mesh registered under the given handle.
func (s *Scene) MeshByName(name string) (int32, bool) {
	for idx, mesh := range s.meshes {
		if mesh.Name == name {
			return int32(idx), true
		}
	}
	return 0, false
}

// rigidBodyOf returns the body attached to ent, or the static default.
func (s *Scene) rigidBodyOf(ent Entity) RigidBody {
	set, err := s.lookup(ent)
	if err != nil || set.body < 0 {
		return RigidBody{Type: StaticBody}
	}
	return s.bodies[set.body]
}

func (s *Scene) transformMatrixOf(ent Entity) (types.Mat4, bool) {
	trans, exists := s.TransformOf(ent)
	if !exists {
		return types.Mat4{}, false
	}
	return trans.Matrix(), true
}
