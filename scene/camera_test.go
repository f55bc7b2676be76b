package scene

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/achilleasa/gargantua/types"
)

func TestCameraFrustrumCorners(t *testing.T) {
	c := NewCamera(90)
	c.SetupProjection(1)

	// A 90 degree fov at aspect 1 spans one unit in each direction at the
	// near plane.
	expCorners := [4]types.Vec3{
		{-1, 1, -1},
		{1, 1, -1},
		{-1, -1, -1},
		{1, -1, -1},
	}

	tol := float32(1e-3)
	for idx, exp := range expCorners {
		for axis := 0; axis < 3; axis++ {
			if math32.Abs(c.Frustrum[idx][axis]-exp[axis]) > tol {
				t.Fatalf("[corner %d] expected ray to be close to %v; got %v", idx, exp, c.Frustrum[idx])
			}
		}
	}
}

func TestCameraFrustrumAspect(t *testing.T) {
	c := NewCamera(90)
	c.SetupProjection(2)

	// Widening the aspect scales the horizontal extent only.
	exp := types.Vec3{2, 1, -1}
	tol := float32(1e-3)
	for axis := 0; axis < 3; axis++ {
		if math32.Abs(c.Frustrum[1][axis]-exp[axis]) > tol {
			t.Fatalf("expected top-right ray to be close to %v; got %v", exp, c.Frustrum[1])
		}
	}
}

func TestCameraInvertY(t *testing.T) {
	c := NewCamera(90)
	c.SetupProjection(1)
	fr := c.Frustrum

	c.InvertY = true
	c.Update()

	// Inverting Y swaps the top and bottom corner rows.
	swapped := [4]int{2, 3, 0, 1}
	tol := float32(1e-6)
	for idx, swapIdx := range swapped {
		for axis := 0; axis < 3; axis++ {
			if math32.Abs(c.Frustrum[idx][axis]-fr[swapIdx][axis]) > tol {
				t.Fatalf("[corner %d] expected inverted ray to match corner %d; got %v and %v", idx, swapIdx, c.Frustrum[idx], fr[swapIdx])
			}
		}
	}
}

func TestFrustrumRayInterpolation(t *testing.T) {
	c := NewCamera(90)
	c.SetupProjection(1)
	fr := c.Frustrum

	// The corner samples interpolate to the corner rays themselves.
	if fr.Ray(0, 0) != fr[0] {
		t.Fatalf("expected ray at (0, 0) to equal the top-left corner; got %v", fr.Ray(0, 0))
	}

	tol := float32(1e-5)
	corners := map[types.Vec3][2]float32{
		fr[1]: {1, 0},
		fr[2]: {0, 1},
		fr[3]: {1, 1},
	}
	for exp, uv := range corners {
		got := fr.Ray(uv[0], uv[1])
		for axis := 0; axis < 3; axis++ {
			if math32.Abs(got[axis]-exp[axis]) > tol {
				t.Fatalf("expected ray at (%f, %f) to be close to %v; got %v", uv[0], uv[1], exp, got)
			}
		}
	}

	// The frame center looks straight down the view axis.
	center := fr.Ray(0.5, 0.5)
	exp := types.Vec3{0, 0, -1}
	for axis := 0; axis < 3; axis++ {
		if math32.Abs(center[axis]-exp[axis]) > float32(1e-3) {
			t.Fatalf("expected center ray to be close to %v; got %v", exp, center)
		}
	}
}

func TestCameraMove(t *testing.T) {
	c := NewCamera(90)
	c.Position = types.XYZ(0, 0, 5)
	c.LookAt = types.XYZ(0, 0, 0)
	c.SetupProjection(1)

	// Update collapses the look target to unit distance.
	if c.LookAt != types.XYZ(0, 0, 4) {
		t.Fatalf("expected look target at unit distance; got %v", c.LookAt)
	}

	type spec struct {
		dir         CameraDirection
		speed       float32
		expPosition types.Vec3
	}

	specs := []spec{
		{Forward, 1, types.XYZ(0, 0, 4)},
		{Right, 3, types.XYZ(3, 0, 4)},
		{Backward, 2, types.XYZ(3, 0, 6)},
		{Left, 3, types.XYZ(0, 0, 6)},
	}

	for specIndex, spec := range specs {
		c.Move(spec.dir, spec.speed)
		if c.Position != spec.expPosition {
			t.Fatalf("[spec %d] expected camera position %v; got %v", specIndex, spec.expPosition, c.Position)
		}
		if exp := spec.expPosition.Add(types.XYZ(0, 0, -1)); c.LookAt != exp {
			t.Fatalf("[spec %d] expected look target %v; got %v", specIndex, exp, c.LookAt)
		}
	}

	// Translation preserves the view direction.
	center := c.Frustrum.Ray(0.5, 0.5)
	exp := types.Vec3{0, 0, -1}
	for axis := 0; axis < 3; axis++ {
		if math32.Abs(center[axis]-exp[axis]) > float32(1e-3) {
			t.Fatalf("expected center ray to be close to %v after moving; got %v", exp, center)
		}
	}
}
