package scene

import (
	"errors"
	"reflect"
	"testing"

	"github.com/achilleasa/gargantua/types"
)

func TestPackCollectsEmissiveTriangles(t *testing.T) {
	plate := cellTriangle(0, 0, -5)
	plate.MatIndex = 0

	lamp := cellTriangle(3, 0, -5)
	lamp.MatIndex = 1

	inline := cellTriangle(6, 0, -5)
	inline.MatIndex = MatNone
	inline.Emissive = types.XYZ(0.5, 0, 0)

	flat := &FlatScene{
		Triangles: []Triangle{plate, lamp, inline},
		Materials: []Material{
			{Name: "plate", Albedo: types.XYZ(0.7, 0.7, 0.7)},
			{Name: "lamp", Emissive: types.XYZ(1, 1, 0), EmissiveScale: 2},
		},
		Hash: 0xfeed,
	}

	background := DefaultBackground()
	packed, err := Pack(flat, background, 8)
	if err != nil {
		t.Fatal(err)
	}

	if packed.Hash != flat.Hash {
		t.Fatalf("expected packed scene to keep hash %x; got %x", flat.Hash, packed.Hash)
	}
	if packed.Background != background {
		t.Fatalf("expected packed scene to keep the background; got %v", packed.Background)
	}
	if !reflect.DeepEqual(packed.Materials, flat.Materials) {
		t.Fatal("expected packed scene to keep the material table")
	}
	if len(packed.BVH.Triangles) != len(flat.Triangles) {
		t.Fatalf("expected %d packed triangles; got %d", len(flat.Triangles), len(packed.BVH.Triangles))
	}

	// The light table must index the packed triangle order and resolve to
	// non-zero radiance for both material-backed and inline emitters.
	if len(packed.EmissiveTris) != 2 {
		t.Fatalf("expected 2 emissive triangles; got %d", len(packed.EmissiveTris))
	}
	seen := make(map[types.Vec3]bool)
	for _, triIdx := range packed.EmissiveTris {
		if triIdx < 0 || int(triIdx) >= len(packed.BVH.Triangles) {
			t.Fatalf("emissive index %d out of triangle list bounds", triIdx)
		}
		seen[packed.TriangleRadiance(&packed.BVH.Triangles[triIdx])] = true
	}
	if !seen[types.XYZ(2, 2, 0)] {
		t.Fatal("expected the light table to include the scaled lamp radiance")
	}
	if !seen[types.XYZ(0.5, 0, 0)] {
		t.Fatal("expected the light table to include the inline emitter radiance")
	}
}

func TestPackNoGeometry(t *testing.T) {
	_, err := Pack(&FlatScene{Hash: 42}, DefaultBackground(), 8)
	if !errors.Is(err, ErrNoGeometry) {
		t.Fatalf("expected ErrNoGeometry; got %v", err)
	}
}

func TestTriangleRadianceFallback(t *testing.T) {
	packed := &PackedScene{
		Materials: []Material{
			{Name: "lamp", Emissive: types.XYZ(1, 1, 0), EmissiveScale: 2},
		},
	}

	type spec struct {
		tri         Triangle
		expRadiance types.Vec3
	}

	specs := []spec{
		// Material-backed radiance.
		{Triangle{MatIndex: 0}, types.XYZ(2, 2, 0)},
		// Inline emitter.
		{Triangle{MatIndex: MatNone, Emissive: types.XYZ(0.25, 0, 0)}, types.XYZ(0.25, 0, 0)},
		// Out of range indices fall back to the inline value.
		{Triangle{MatIndex: 7, Emissive: types.XYZ(0.25, 0, 0)}, types.XYZ(0.25, 0, 0)},
	}

	for specIndex, spec := range specs {
		if got := packed.TriangleRadiance(&spec.tri); got != spec.expRadiance {
			t.Fatalf("[spec %d] expected radiance %v; got %v", specIndex, spec.expRadiance, got)
		}
	}
}
