package scene

import (
	"errors"

	"github.com/chewxy/math32"

	"github.com/achilleasa/gargantua/types"
)

// Returned when a BVH build is requested for a scene without any
// raytraceable triangles. Callers skip the rebuild and trace the frame
// against an empty structure.
var ErrNoGeometry = errors.New("scene: no raytraceable geometry")

const triIntersectEpsilon float32 = 1e-7

// Bvh node definition. Each node takes 32 bytes. Inner nodes store the
// left/right child indices in LData/RData; leaves store the negated index
// of their first triangle in LData and the triangle count in RData.
type BvhNode struct {
	Min   types.Vec3
	LData int32

	Max   types.Vec3
	RData int32
}

// Set the node bounding box.
func (n *BvhNode) SetBBox(bbox [2]types.Vec3) {
	n.Min = bbox[0]
	n.Max = bbox[1]
}

// Set left and right child node indices.
func (n *BvhNode) SetChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Set the primitive range for a leaf.
func (n *BvhNode) SetPrimitives(firstTriIndex, count uint32) {
	n.LData = -int32(firstTriIndex)
	n.RData = int32(count)
}

// Get the primitive range of a leaf.
func (n *BvhNode) GetPrimitives() (firstTriIndex, count uint32) {
	return uint32(-n.LData), uint32(n.RData)
}

// Leaf reports whether the node terminates traversal. The root always
// occupies slot 0 so inner nodes carry strictly positive child indices.
func (n *BvhNode) Leaf() bool {
	return n.LData <= 0
}

// Intersection describes the nearest triangle hit found by a traversal.
type Intersection struct {
	TriIndex int32
	T        float32

	// Barycentric coordinates of the hit point.
	U, V float32
}

// BVH pairs the flat node array with the reordered triangle list its leaves
// index into. It is immutable once built and safe for concurrent traversal.
type BVH struct {
	Nodes     []BvhNode
	Triangles []Triangle
}

// NewTriangleBVH builds the acceleration structure for a flattened triangle
// list. The BVH owns a reordered copy of the triangles so that each leaf's
// primitives are contiguous.
func NewTriangleBVH(tris []Triangle, maxLeafSize int) (*BVH, error) {
	if len(tris) == 0 {
		return nil, ErrNoGeometry
	}
	if maxLeafSize < 1 {
		maxLeafSize = 1
	}

	ordered := make([]Triangle, 0, len(tris))
	workList := make([]BoundedVolume, len(tris))
	for idx := range tris {
		workList[idx] = &tris[idx]
	}

	nodes := BuildBVH(workList, maxLeafSize, func(leaf *BvhNode, items []BoundedVolume) {
		first := uint32(len(ordered))
		for _, item := range items {
			ordered = append(ordered, *(item.(*Triangle)))
		}
		leaf.SetPrimitives(first, uint32(len(items)))
	})

	return &BVH{Nodes: nodes, Triangles: ordered}, nil
}

// Empty reports whether traversal can skip this BVH entirely.
func (b *BVH) Empty() bool {
	return b == nil || len(b.Nodes) == 0
}

// Intersect finds the nearest triangle hit along the segment from origin
// towards dir, no further than tMax. dir does not need to be unit length;
// hit distances are expressed in multiples of it.
func (b *BVH) Intersect(origin, dir types.Vec3, tMax float32, hit *Intersection) bool {
	if b.Empty() {
		return false
	}

	invDir := types.Vec3{1 / dir[0], 1 / dir[1], 1 / dir[2]}

	var stack [64]int32
	stackTop := 0
	stack[0] = 0

	found := false
	nearest := tMax

	for stackTop >= 0 {
		node := &b.Nodes[stack[stackTop]]
		stackTop--

		if !node.intersectBox(origin, invDir, nearest) {
			continue
		}

		if !node.Leaf() {
			stack[stackTop+1] = node.LData
			stack[stackTop+2] = node.RData
			stackTop += 2
			continue
		}

		first, count := node.GetPrimitives()
		for idx := first; idx < first+count; idx++ {
			tri := &b.Triangles[idx]
			var t, u, v float32
			if !tri.Intersect(origin, dir, nearest, &t, &u, &v) {
				continue
			}
			nearest = t
			found = true
			hit.TriIndex = int32(idx)
			hit.T = t
			hit.U = u
			hit.V = v
		}
	}

	return found
}

// intersectBox runs the slab test against the node bounds.
func (n *BvhNode) intersectBox(origin, invDir types.Vec3, tMax float32) bool {
	tMin := float32(0)
	for axis := 0; axis < 3; axis++ {
		t1 := (n.Min[axis] - origin[axis]) * invDir[axis]
		t2 := (n.Max[axis] - origin[axis]) * invDir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return false
		}
	}
	return true
}

// Intersect runs the Moller-Trumbore test against a single triangle. Both
// triangle sides are considered hits.
func (tri *Triangle) Intersect(origin, dir types.Vec3, tMax float32, t, u, v *float32) bool {
	e1 := tri.V[1].Sub(tri.V[0])
	e2 := tri.V[2].Sub(tri.V[0])

	pvec := dir.Cross(e2)
	det := e1.Dot(pvec)
	if math32.Abs(det) < triIntersectEpsilon {
		return false
	}
	invDet := 1.0 / det

	tvec := origin.Sub(tri.V[0])
	hitU := tvec.Dot(pvec) * invDet
	if hitU < 0 || hitU > 1 {
		return false
	}

	qvec := tvec.Cross(e1)
	hitV := dir.Dot(qvec) * invDet
	if hitV < 0 || hitU+hitV > 1 {
		return false
	}

	hitT := e2.Dot(qvec) * invDet
	if hitT < triIntersectEpsilon || hitT >= tMax {
		return false
	}

	*t = hitT
	*u = hitU
	*v = hitV
	return true
}
