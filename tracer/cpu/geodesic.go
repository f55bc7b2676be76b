package cpu

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/achilleasa/gargantua/scene"
	"github.com/achilleasa/gargantua/tracer"
	"github.com/achilleasa/gargantua/types"
)

const (
	// Step scale floor near the photon sphere.
	minStepScale float32 = 0.05

	// Squared radius below which the field evaluation is skipped; the
	// capture test owns the interior.
	minFieldRadius2 float32 = 1e-12

	// Chain segments shorter than this are skipped during BVH checks.
	minSegmentLength float32 = 1e-7

	// Capacity of the step position ring. LensingBvhCheckInterval is
	// clamped to this bound by profile.Settings.
	maxChainSegments = 64
)

// Terminal classification for a lensed ray.
type rayStatus uint8

const (
	rayEscaped rayStatus = iota
	rayCaptured
	rayHitScene
	rayHitDisk
)

// geoRay carries the integration state for a single lensed ray.
type geoRay struct {
	pos types.Vec3
	vel types.Vec3

	// Accumulated affine distance along the path.
	dist float32

	status rayStatus

	// Terminal payload: the world space hit point for scene and disk
	// hits, the triangle intersection for scene hits and the hole
	// index plus disk radius for disk hits.
	point      types.Vec3
	tri        scene.Intersection
	diskHole   int32
	diskRadius float32

	// Closest approach to the photon sphere and ergosphere shells over
	// the whole path, as a ratio of the shell radius.
	minPsRatio   float32
	minErgoRatio float32
}

// xorshift32 keeps the per-pixel jitter deterministic for a given
// block seed so accumulated frames converge instead of crawling.
type xorshift32 uint32

func pixelRng(seed, pixel, sample uint32) xorshift32 {
	state := seed ^ pixel*2654435761 ^ sample*0x9e3779b9
	if state == 0 {
		state = 0x6c078965
	}
	return xorshift32(state)
}

// Get the next random float in [0, 1).
func (s *xorshift32) next() float32 {
	x := uint32(*s)
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	*s = xorshift32(x)
	return float32(x>>8) * (1.0 / 16777216.0)
}

// Clear the accumulated samples for the block.
func (tr *Tracer) clearAccumulator(blockReq *tracer.BlockRequest) (time.Duration, error) {
	start := time.Now()
	if tr.output == nil {
		return 0, ErrNoOutputBuffers
	}

	acc := tr.output.Accumulator
	tr.forEachRow(blockReq, func(y uint32) {
		rowStart := (y*blockReq.FrameW + blockReq.BlockX) * 4
		row := acc[rowStart : rowStart+blockReq.BlockW*4]
		for i := range row {
			row[i] = 0
		}
	})

	return time.Since(start), nil
}

// Generate one primary ray per block pixel by interpolating the camera
// frustrum corner rays. The first sample of a pixel goes through the
// pixel center; later samples jitter inside the pixel footprint.
func (tr *Tracer) generatePrimaryRays(blockReq *tracer.BlockRequest) (time.Duration, error) {
	start := time.Now()

	invW := 1.0 / float32(blockReq.FrameW)
	invH := 1.0 / float32(blockReq.FrameH)
	jitter := blockReq.AccumulatedSamples+tr.samplePass > 0

	tr.forEachRow(blockReq, func(y uint32) {
		for x := blockReq.BlockX; x < blockReq.BlockX+blockReq.BlockW; x++ {
			idx := y*blockReq.FrameW + x

			jx, jy := float32(0.5), float32(0.5)
			if jitter {
				rng := pixelRng(blockReq.Seed, idx, blockReq.AccumulatedSamples+tr.samplePass)
				jx, jy = rng.next(), rng.next()
			}

			u := (float32(x) + jx) * invW
			v := (float32(y) + jy) * invH

			tr.buffers.rays[idx] = geoRay{
				pos:          tr.cameraPosition,
				vel:          tr.cameraFrustrum.Ray(u, v).Normalize(),
				minPsRatio:   math32.MaxFloat32,
				minErgoRatio: math32.MaxFloat32,
			}
		}
	})

	return time.Since(start), nil
}

// Integrate the primary rays for the block, shade their terminal
// states and blend the results into the accumulation buffer.
func (tr *Tracer) integrateBlock(blockReq *tracer.BlockRequest) (time.Duration, error) {
	start := time.Now()

	tr.forEachRow(blockReq, func(y uint32) {
		for x := blockReq.BlockX; x < blockReq.BlockX+blockReq.BlockW; x++ {
			idx := y*blockReq.FrameW + x
			ray := &tr.buffers.rays[idx]
			tr.integrate(ray)
			tr.blendSample(idx, tr.shade(ray, 0), blockReq)
		}
	})

	return time.Since(start), nil
}

// Blend a new sample into the accumulation buffer as a running average
// over the total sample count for the pixel.
func (tr *Tracer) blendSample(pixel uint32, color types.Vec3, blockReq *tracer.BlockRequest) {
	// A non-finite sample would poison the running average for good.
	if !finiteVec3(color) {
		color = types.Vec3{}
	}

	history := blockReq.AccumulatedSamples
	if !tr.settings.Accumulate {
		history = 0
	}
	n := float32(history + tr.samplePass)
	inv := 1.0 / (n + 1)

	acc := tr.output.Accumulator
	base := pixel * 4
	acc[base] = (acc[base]*n + color[0]) * inv
	acc[base+1] = (acc[base+1]*n + color[1]) * inv
	acc[base+2] = (acc[base+2]*n + color[2]) * inv
	acc[base+3] = 1
}

// Integrate a single ray through the lensed spacetime field until it
// terminates or exhausts its budgets.
func (tr *Tracer) integrate(ray *geoRay) {
	if len(tr.holes) == 0 {
		tr.integrateFlat(ray)
		return
	}

	settings := &tr.settings
	baseStep := settings.LensingStepSize
	interval := int(settings.LensingBvhCheckInterval)
	if interval > maxChainSegments {
		interval = maxChainSegments
	}

	checkBVH := !tr.sceneData.BVH.Empty()
	var chain [maxChainSegments + 1]types.Vec3
	chain[0] = ray.pos
	chainLen := 0

	for step := uint32(0); step < settings.LensingMaxSteps; step++ {
		// Classify the current position against every hole: capture,
		// overlay shell distances and the step scale for the nearest
		// photon sphere.
		scale := float32(1)
		for i := range tr.holes {
			hole := &tr.holes[i]
			offset := ray.pos.Sub(hole.Position)
			r2 := offset.Len2()
			horizon := hole.EventHorizonRadius()
			if r2 <= horizon*horizon {
				ray.status = rayCaptured
				return
			}

			r := math32.Sqrt(r2)
			psRatio := r / hole.PhotonSphereRadius()
			if psRatio < ray.minPsRatio {
				ray.minPsRatio = psRatio
			}
			if hole.Spin > 0 {
				cosTheta := offset.Dot(hole.SpinAxis) / r
				ergoRatio := r / hole.ErgosphereRadius(cosTheta)
				if ergoRatio < ray.minErgoRatio {
					ray.minErgoRatio = ergoRatio
				}
			}

			if s := (psRatio - 1) / 3; s < scale {
				scale = s
			}
		}
		if scale < minStepScale {
			scale = minStepScale
		}

		h := baseStep * scale
		prevPos := ray.pos
		rk4Step(ray, tr.holes, h)
		ray.dist += h

		if !finiteVec3(ray.pos) || !finiteVec3(ray.vel) {
			// The integrator blew up inside the strong field; treat it
			// as captured rather than leaking a NaN into shading.
			ray.status = rayCaptured
			return
		}

		if tr.diskTest(ray, prevPos) {
			return
		}

		chainLen++
		chain[chainLen] = ray.pos
		if checkBVH && chainLen >= interval {
			if tr.chainIntersect(ray, chain[:chainLen+1]) {
				return
			}
			chain[0] = ray.pos
			chainLen = 0
		}

		if ray.dist >= settings.LensingMaxDistance {
			break
		}
	}

	if checkBVH && chainLen > 0 && tr.chainIntersect(ray, chain[:chainLen+1]) {
		return
	}

	// Budget exhausted without a terminal event. Rays that ended up
	// inside a horizon are captured; everything else escapes.
	for i := range tr.holes {
		horizon := tr.holes[i].EventHorizonRadius()
		if ray.pos.Sub(tr.holes[i].Position).Len2() <= horizon*horizon {
			ray.status = rayCaptured
			return
		}
	}
	ray.status = rayEscaped
}

// Integrate a ray with no lensing field: a single straight BVH query.
func (tr *Tracer) integrateFlat(ray *geoRay) {
	dir := ray.vel.Normalize()
	ray.vel = dir

	var hit scene.Intersection
	if !tr.sceneData.BVH.Empty() &&
		tr.sceneData.BVH.Intersect(ray.pos, dir, tr.settings.LensingMaxDistance, &hit) {
		ray.status = rayHitScene
		ray.tri = hit
		ray.point = ray.pos.Add(dir.Mul(hit.T))
		ray.dist = hit.T
		return
	}
	ray.status = rayEscaped
}

// Advance the ray state by affine step h using a classic fourth-order
// Runge-Kutta integration of the geodesic ODE.
func rk4Step(ray *geoRay, holes []scene.BlackHole, h float32) {
	p0, v0 := ray.pos, ray.vel

	a1 := lensingAccel(holes, p0, v0)

	v2 := v0.Add(a1.Mul(h * 0.5))
	a2 := lensingAccel(holes, p0.Add(v0.Mul(h*0.5)), v2)

	v3 := v0.Add(a2.Mul(h * 0.5))
	a3 := lensingAccel(holes, p0.Add(v2.Mul(h*0.5)), v3)

	v4 := v0.Add(a3.Mul(h))
	a4 := lensingAccel(holes, p0.Add(v3.Mul(h)), v4)

	sixth := h / 6
	ray.pos = p0.Add(v0.Add(v2.Mul(2)).Add(v3.Mul(2)).Add(v4).Mul(sixth))
	ray.vel = v0.Add(a1.Add(a2.Mul(2)).Add(a3.Mul(2)).Add(a4).Mul(sixth))
}

// Evaluate the gravitational acceleration on a photon at the given
// position and velocity. The pull term uses the conserved angular
// momentum h^2 = |offset x vel|^2, which reproduces the Schwarzschild
// deflection of 4M/b in the weak field. Spinning holes add a
// gravitomagnetic dipole that drags prograde rays; it preserves |vel|
// because the force stays perpendicular to the velocity. Contributions
// from multiple holes superpose.
func lensingAccel(holes []scene.BlackHole, pos, vel types.Vec3) types.Vec3 {
	var accel types.Vec3

	for i := range holes {
		hole := &holes[i]
		offset := pos.Sub(hole.Position)
		r2 := offset.Len2()
		if r2 < minFieldRadius2 {
			continue
		}

		r := math32.Sqrt(r2)
		r5 := r2 * r2 * r

		am := offset.Cross(vel)
		h2 := am.Len2()
		accel = accel.Add(offset.Mul(-1.5 * hole.SchwarzschildRadius() * h2 / r5))

		if hole.Spin > 0 {
			j := hole.Mass * hole.Mass * hole.Spin
			rhat := offset.Mul(1 / r)
			gmag := hole.SpinAxis.Sub(rhat.Mul(3 * hole.SpinAxis.Dot(rhat))).Mul(2 * j / (r2 * r))
			accel = accel.Add(vel.Cross(gmag))
		}
	}

	return accel
}

// Resolve an equatorial plane crossing within the last step segment
// against each accretion disk annulus.
func (tr *Tracer) diskTest(ray *geoRay, prevPos types.Vec3) bool {
	for i := range tr.holes {
		hole := &tr.holes[i]
		if !hole.HasDisk() {
			continue
		}

		d0 := prevPos.Sub(hole.Position).Dot(hole.SpinAxis)
		d1 := ray.pos.Sub(hole.Position).Dot(hole.SpinAxis)
		if d0*d1 >= 0 {
			continue
		}

		point := prevPos.Lerp(ray.pos, d0/(d0-d1))
		radius := point.Sub(hole.Position).Len()
		if radius < hole.DiskInnerRadius || radius > hole.DiskOuterRadius {
			continue
		}

		ray.status = rayHitDisk
		ray.point = point
		ray.diskHole = int32(i)
		ray.diskRadius = radius
		return true
	}
	return false
}

// Test the recorded step positions against the BVH as a chain of short
// straight segments. The first hit along the chain is the nearest
// scene intersection on the curved path.
func (tr *Tracer) chainIntersect(ray *geoRay, chain []types.Vec3) bool {
	bvh := tr.sceneData.BVH
	var hit scene.Intersection

	for i := 0; i+1 < len(chain); i++ {
		seg := chain[i+1].Sub(chain[i])
		segLen := seg.Len()
		if segLen < minSegmentLength {
			continue
		}
		dir := seg.Mul(1 / segLen)
		if bvh.Intersect(chain[i], dir, segLen, &hit) {
			ray.status = rayHitScene
			ray.tri = hit
			ray.point = chain[i].Add(dir.Mul(hit.T))
			ray.vel = dir
			return true
		}
	}
	return false
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

func finiteVec3(v types.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}
