package scene

import (
	"github.com/chewxy/math32"

	"github.com/achilleasa/gargantua/types"
)

// BlackHole parameters use geometrized units (G = c = 1) so the event
// horizon of a non-rotating hole sits at twice the mass.
type BlackHole struct {
	Position types.Vec3

	// Mass in geometrized units. Must be positive; clamped otherwise.
	Mass float32

	// Spin is the dimensionless Kerr parameter a/M in [0, 1). Zero is a
	// Schwarzschild hole; values approaching one are near-extremal.
	Spin float32

	// SpinAxis orients the hole's angular momentum. Normalized on clamp;
	// zero-valued axes default to +Y.
	SpinAxis types.Vec3

	// Accretion disk annulus. A zero DiskOuterRadius disables the disk.
	// DiskInnerRadius defaults to the innermost stable circular orbit.
	DiskInnerRadius float32
	DiskOuterRadius float32

	// Disk temperatures in Kelvin at the inner and outer edges.
	DiskInnerTemp float32
	DiskOuterTemp float32
}

const (
	maxSpin = 0.999

	defaultDiskInnerTemp float32 = 9000
	defaultDiskOuterTemp float32 = 2600
)

// NewBlackHole returns a hole of the given mass with a default accretion
// disk spanning the ISCO to seven Schwarzschild radii.
func NewBlackHole(position types.Vec3, mass float32) BlackHole {
	hole := BlackHole{
		Position:      position,
		Mass:          mass,
		SpinAxis:      types.XYZ(0, 1, 0),
		DiskInnerTemp: defaultDiskInnerTemp,
		DiskOuterTemp: defaultDiskOuterTemp,
	}
	hole.clamp()
	hole.DiskInnerRadius = hole.IscoRadius()
	hole.DiskOuterRadius = 3.5 * hole.SchwarzschildRadius()
	return hole
}

// SchwarzschildRadius is the event horizon radius of the non-rotating hole,
// 2M in geometrized units.
func (bh BlackHole) SchwarzschildRadius() float32 {
	return 2 * bh.Mass
}

// EventHorizonRadius is the outer Kerr horizon, M (1 + sqrt(1 - chi^2)).
// It reduces to the Schwarzschild radius for spinless holes and shrinks
// towards M as the spin grows, which is what lets rays reach the
// ergosphere interior of a spinning hole before they are captured.
func (bh BlackHole) EventHorizonRadius() float32 {
	return bh.Mass * (1 + math32.Sqrt(1-bh.Spin*bh.Spin))
}

// PhotonSphereRadius is where light can orbit unstably, 1.5 times the
// Schwarzschild radius.
func (bh BlackHole) PhotonSphereRadius() float32 {
	return 1.5 * bh.SchwarzschildRadius()
}

// IscoRadius is the innermost stable circular orbit for the non-rotating
// case, 3 times the Schwarzschild radius.
func (bh BlackHole) IscoRadius() float32 {
	return 3 * bh.SchwarzschildRadius()
}

// ErgosphereRadius is the outer ergosphere boundary at polar angle theta
// measured from the spin axis: M (1 + sqrt(1 - chi^2 cos^2 theta)). At the
// equator it reaches the Schwarzschild radius; at the poles it touches the
// horizon.
func (bh BlackHole) ErgosphereRadius(cosTheta float32) float32 {
	chiCos := bh.Spin * cosTheta
	return bh.Mass * (1 + math32.Sqrt(1-chiCos*chiCos))
}

// HasDisk reports whether the hole carries a renderable accretion disk.
func (bh BlackHole) HasDisk() bool {
	return bh.DiskOuterRadius > bh.DiskInnerRadius && bh.DiskOuterRadius > 0
}

// clamp forces all parameters into their legal ranges.
func (bh *BlackHole) clamp() {
	if bh.Mass <= 0 {
		bh.Mass = 1e-3
	}
	if bh.Spin < 0 {
		bh.Spin = 0
	}
	if bh.Spin > maxSpin {
		bh.Spin = maxSpin
	}
	if bh.SpinAxis == (types.Vec3{}) {
		bh.SpinAxis = types.XYZ(0, 1, 0)
	}
	bh.SpinAxis = bh.SpinAxis.Normalize()
	if bh.DiskInnerRadius < 0 {
		bh.DiskInnerRadius = 0
	}
	if bh.DiskOuterRadius < 0 {
		bh.DiskOuterRadius = 0
	}
	if bh.DiskOuterRadius > 0 && bh.DiskInnerRadius > bh.DiskOuterRadius {
		bh.DiskInnerRadius, bh.DiskOuterRadius = bh.DiskOuterRadius, bh.DiskInnerRadius
	}
	if bh.DiskInnerTemp <= 0 {
		bh.DiskInnerTemp = defaultDiskInnerTemp
	}
	if bh.DiskOuterTemp <= 0 {
		bh.DiskOuterTemp = defaultDiskOuterTemp
	}
}
