package scene

import (
	"errors"
	"testing"

	"github.com/achilleasa/gargantua/types"
)

// A small triangle whose right-angle corner sits at (x, y, z) facing +Z.
func cellTriangle(x, y, z float32) Triangle {
	return Triangle{
		V: [3]types.Vec3{
			{x, y, z},
			{x + 1, y, z},
			{x, y + 1, z},
		},
		N: types.XYZ(0, 0, 1),
	}
}

func TestBvhNodeEncoding(t *testing.T) {
	var node BvhNode

	node.SetPrimitives(5, 3)
	if !node.Leaf() {
		t.Fatal("expected a node with primitives to be a leaf")
	}
	first, count := node.GetPrimitives()
	if first != 5 || count != 3 {
		t.Fatalf("expected primitive range (5, 3); got (%d, %d)", first, count)
	}

	// A leaf whose range starts at triangle 0 must still decode as a leaf.
	node.SetPrimitives(0, 7)
	if !node.Leaf() {
		t.Fatal("expected leaf starting at triangle 0 to decode as a leaf")
	}

	node.SetChildNodes(1, 2)
	if node.Leaf() {
		t.Fatal("expected a node with children not to be a leaf")
	}

	node.SetBBox([2]types.Vec3{{-1, -2, -3}, {1, 2, 3}})
	if node.Min != types.XYZ(-1, -2, -3) || node.Max != types.XYZ(1, 2, 3) {
		t.Fatalf("expected bbox to round-trip; got %v %v", node.Min, node.Max)
	}
}

func TestTriangleIntersect(t *testing.T) {
	tri := cellTriangle(0, 0, -20)

	var hitT, hitU, hitV float32
	origin := types.XYZ(0.25, 0.25, 0)

	if !tri.Intersect(origin, types.XYZ(0, 0, -1), 1000, &hitT, &hitU, &hitV) {
		t.Fatal("expected ray to hit the triangle")
	}
	if hitT != 20 || hitU != 0.25 || hitV != 0.25 {
		t.Fatalf("expected hit (t, u, v) to be (20, 0.25, 0.25); got (%f, %f, %f)", hitT, hitU, hitV)
	}

	// Segment ends before the triangle.
	if tri.Intersect(origin, types.XYZ(0, 0, -1), 20, &hitT, &hitU, &hitV) {
		t.Fatal("expected no hit past the segment end")
	}

	// Both triangle sides register hits.
	if !tri.Intersect(types.XYZ(0.25, 0.25, -40), types.XYZ(0, 0, 1), 1000, &hitT, &hitU, &hitV) {
		t.Fatal("expected ray to hit the triangle back face")
	}
	if hitT != 20 {
		t.Fatalf("expected back face hit at t 20; got %f", hitT)
	}

	// Ray misses outside the hypotenuse.
	if tri.Intersect(types.XYZ(0.75, 0.75, 0), types.XYZ(0, 0, -1), 1000, &hitT, &hitU, &hitV) {
		t.Fatal("expected no hit outside the triangle")
	}
}

func TestTriangleBVHPartitioning(t *testing.T) {
	var tris []Triangle
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			tris = append(tris, cellTriangle(float32(col)*3, float32(row)*3, -20))
		}
	}

	bvh, err := NewTriangleBVH(tris, 4)
	if err != nil {
		t.Fatal(err)
	}
	if bvh.Empty() {
		t.Fatal("expected a non-empty bvh")
	}
	if len(bvh.Triangles) != len(tris) {
		t.Fatalf("expected %d packed triangles; got %d", len(tris), len(bvh.Triangles))
	}
	if len(bvh.Nodes) < 3 {
		t.Fatalf("expected the triangle grid to partition into multiple nodes; got %d", len(bvh.Nodes))
	}

	// Every triangle must be indexed by exactly one leaf.
	covered := make([]int, len(tris))
	for idx := range bvh.Nodes {
		node := &bvh.Nodes[idx]
		if !node.Leaf() {
			continue
		}
		first, count := node.GetPrimitives()
		if first+count > uint32(len(bvh.Triangles)) {
			t.Fatalf("leaf range (%d, %d) exceeds triangle list", first, count)
		}
		for triIdx := first; triIdx < first+count; triIdx++ {
			covered[triIdx]++
		}
	}
	for idx, hits := range covered {
		if hits != 1 {
			t.Fatalf("expected triangle %d to be indexed by exactly one leaf; got %d", idx, hits)
		}
	}
}

func TestTriangleBVHTraversal(t *testing.T) {
	var tris []Triangle
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			tris = append(tris, cellTriangle(float32(col)*3, float32(row)*3, -20))
		}
	}

	bvh, err := NewTriangleBVH(tris, 4)
	if err != nil {
		t.Fatal(err)
	}

	// Aim at the interior of the cell at grid position (5, 2).
	origin := types.XYZ(5*3+0.25, 2*3+0.25, 0)
	dir := types.XYZ(0, 0, -1)

	var hit Intersection
	if !bvh.Intersect(origin, dir, 1000, &hit) {
		t.Fatal("expected traversal to find the cell triangle")
	}
	if hit.T != 20 || hit.U != 0.25 || hit.V != 0.25 {
		t.Fatalf("expected hit (t, u, v) to be (20, 0.25, 0.25); got (%f, %f, %f)", hit.T, hit.U, hit.V)
	}
	expCorner := types.XYZ(5*3, 2*3, -20)
	if bvh.Triangles[hit.TriIndex].V[0] != expCorner {
		t.Fatalf("expected hit triangle cornered at %v; got %v", expCorner, bvh.Triangles[hit.TriIndex].V[0])
	}

	// The segment form stops short of the plane.
	if bvh.Intersect(origin, dir, 15, &hit) {
		t.Fatal("expected no hit for a segment ending before the grid")
	}

	// A ray between cells escapes.
	if bvh.Intersect(types.XYZ(2.5, 2.5, 0), dir, 1000, &hit) {
		t.Fatal("expected ray through the grid gap to miss")
	}
}

func TestTriangleBVHNearestHit(t *testing.T) {
	tris := []Triangle{
		cellTriangle(0, 0, -20),
		cellTriangle(0, 0, -10),
		cellTriangle(0, 0, -30),
	}

	bvh, err := NewTriangleBVH(tris, 8)
	if err != nil {
		t.Fatal(err)
	}

	var hit Intersection
	if !bvh.Intersect(types.XYZ(0.25, 0.25, 0), types.XYZ(0, 0, -1), 1000, &hit) {
		t.Fatal("expected a hit")
	}
	if hit.T != 10 {
		t.Fatalf("expected the nearest layer at t 10; got %f", hit.T)
	}
	if bvh.Triangles[hit.TriIndex].V[0][2] != -10 {
		t.Fatalf("expected the hit triangle on the z -10 layer; got %f", bvh.Triangles[hit.TriIndex].V[0][2])
	}
}

func TestTriangleBVHNoGeometry(t *testing.T) {
	_, err := NewTriangleBVH(nil, 4)
	if !errors.Is(err, ErrNoGeometry) {
		t.Fatalf("expected ErrNoGeometry; got %v", err)
	}

	var nilBvh *BVH
	if !nilBvh.Empty() {
		t.Fatal("expected nil bvh to report empty")
	}
	if !(&BVH{}).Empty() {
		t.Fatal("expected zero-value bvh to report empty")
	}

	var hit Intersection
	if (&BVH{}).Intersect(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), 1000, &hit) {
		t.Fatal("expected traversal over an empty bvh to miss")
	}
}
