package scene

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/achilleasa/gargantua/types"
)

// Stores the ray directions at the four corners of the camera frustrum. The
// integrator generates per pixel rays by bilinear interpolation of the
// corner rays.
type Frustrum [4]types.Vec3

func (fr Frustrum) String() string {
	return fmt.Sprintf(
		"Frustrum Rays:\nTL : (%3.3f, %3.3f, %3.3f)\nTR : (%3.3f, %3.3f, %3.3f)\nBL : (%3.3f, %3.3f, %3.3f)\nBR : (%3.3f, %3.3f, %3.3f)",
		fr[0][0], fr[0][1], fr[0][2],
		fr[1][0], fr[1][1], fr[1][2],
		fr[2][0], fr[2][1], fr[2][2],
		fr[3][0], fr[3][1], fr[3][2],
	)
}

// Ray returns the unnormalized ray direction for normalized screen
// coordinates u, v in [0, 1] with v increasing downwards.
func (fr Frustrum) Ray(u, v float32) types.Vec3 {
	top := fr[0].Lerp(fr[1], u)
	bottom := fr[2].Lerp(fr[3], u)
	return top.Lerp(bottom, v)
}

// Camera movement directions.
type CameraDirection uint8

const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
)

// The camera type controls the scene camera.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3
	Pitch    float32
	Yaw      float32

	ViewMat  types.Mat4
	ProjMat  types.Mat4
	Frustrum Frustrum

	// Camera FOV in degrees.
	FOV float32

	// Adjust the frustrum so that Y is inverted
	InvertY bool
}

func NewCamera(fov float32) *Camera {
	return &Camera{
		ViewMat:  types.Ident4(),
		ProjMat:  types.Ident4(),
		Position: types.Vec3{0, 0, 0},
		LookAt:   types.Vec3{0, 0, -1},
		Up:       types.Vec3{0, 1, 0},
		FOV:      fov,
	}
}

// Setup camera projection matrix.
func (c *Camera) SetupProjection(aspect float32) {
	c.ProjMat = types.Perspective4(c.FOV*math32.Pi/180.0, aspect, 1, 1000)
	c.Update()
}

// Update camera.
func (c *Camera) Update() {
	dir := c.LookAt.Sub(c.Position).Normalize()
	pitchAxis := dir.Cross(c.Up)
	pitchQuat := types.QuatFromAxisAngle(pitchAxis, c.Pitch)
	yawQuat := types.QuatFromAxisAngle(c.Up, c.Yaw)

	orientQuat := pitchQuat.Mul(yawQuat).Normalize()

	// Update direction
	dir = orientQuat.Rotate(dir)
	c.LookAt = c.Position.Add(dir.Mul(1.0))

	c.ViewMat = types.LookAtV(c.Position, c.LookAt, c.Up)
	c.updateFrustrum()
}

// Move the camera along the given direction keeping its orientation.
func (c *Camera) Move(dir CameraDirection, speed float32) {
	var offset types.Vec3

	look := c.LookAt.Sub(c.Position).Normalize()
	right := look.Cross(c.Up).Normalize()

	switch dir {
	case Forward:
		offset = look.Mul(speed)
	case Backward:
		offset = look.Mul(-speed)
	case Left:
		offset = right.Mul(-speed)
	case Right:
		offset = right.Mul(speed)
	}

	c.Position = c.Position.Add(offset)
	c.LookAt = c.LookAt.Add(offset)
	c.ViewMat = types.LookAtV(c.Position, c.LookAt, c.Up)
	c.updateFrustrum()
}

func (c *Camera) InvViewProjMat() types.Mat4 {
	return c.ProjMat.Mul4(c.ViewMat).Inv()
}

// Generate a ray vector for each corner of the camera frustrum by
// multiplying clip space vectors for each corner with the inv proj/view
// matrix, applying perspective and subtracting the camera eye position.
func (c *Camera) updateFrustrum() {
	var v types.Vec4
	invProjViewMat := c.InvViewProjMat()

	var yUp float32 = 1.0
	if c.InvertY {
		yUp = -1.0
	}

	v = invProjViewMat.Mul4x1(types.XYZW(-1, yUp, -1, 1))
	c.Frustrum[0] = v.Mul(1.0 / v[3]).Vec3().Sub(c.Position)

	v = invProjViewMat.Mul4x1(types.XYZW(1, yUp, -1, 1))
	c.Frustrum[1] = v.Mul(1.0 / v[3]).Vec3().Sub(c.Position)

	v = invProjViewMat.Mul4x1(types.XYZW(-1, -yUp, -1, 1))
	c.Frustrum[2] = v.Mul(1.0 / v[3]).Vec3().Sub(c.Position)

	v = invProjViewMat.Mul4x1(types.XYZW(1, -yUp, -1, 1))
	c.Frustrum[3] = v.Mul(1.0 / v[3]).Vec3().Sub(c.Position)
}
