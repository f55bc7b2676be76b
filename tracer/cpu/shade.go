package cpu

import (
	"github.com/chewxy/math32"

	"github.com/achilleasa/gargantua/scene"
	"github.com/achilleasa/gargantua/types"
)

const (
	// Scale applied to the background radiance sampled as ambient light.
	ambientStrength float32 = 0.08

	// Offset applied to shadow ray origins to avoid self intersections.
	shadowBias float32 = 1e-3

	// Base luminance of the accretion disk before beaming is applied.
	diskBaseLuminance float32 = 1.8

	// Maximum relativistic orbital speed used for disk doppler shading.
	maxOrbitBeta float32 = 0.99

	// Grid resolution of the procedural star field.
	starFieldCells float32 = 192

	psOverlayStrength   float32 = 0.6
	ergoOverlayStrength float32 = 0.5
)

var (
	photonSphereOverlayColor = types.Vec3{1.0, 0.62, 0.12}
	ergosphereOverlayColor   = types.Vec3{0.25, 0.47, 1.0}
)

// Shade the terminal state of an integrated ray. The depth argument
// counts lensed reflection bounces.
func (tr *Tracer) shade(ray *geoRay, depth uint32) types.Vec3 {
	var color types.Vec3

	switch ray.status {
	case rayCaptured:
		// Below the horizon nothing comes back.
	case rayEscaped:
		color = tr.shadeBackground(ray.vel.Normalize())
	case rayHitDisk:
		color = tr.shadeDisk(ray)
	case rayHitScene:
		color = tr.shadeSurface(ray, depth)
	}

	return tr.blendOverlays(ray, color)
}

// Sample the analytic background for an escape direction: a vertical
// radiance gradient plus the procedural star field.
func (tr *Tracer) shadeBackground(dir types.Vec3) types.Vec3 {
	bg := &tr.sceneData.Background
	color := bg.Bottom.Lerp(bg.Top, 0.5*(dir[1]+1))
	if bg.StarDensity > 0 {
		color = color.Add(starField(dir, bg.StarDensity, bg.StarIntensity))
	}
	return color
}

// Sample the procedural star field for a direction. The field is a
// pure function of direction: lensed and accumulated frames must see
// the same star in the same place every sample.
func starField(dir types.Vec3, density, intensity float32) types.Vec3 {
	cx := math32.Floor((dir[0] + 1) * starFieldCells)
	cy := math32.Floor((dir[1] + 1) * starFieldCells)
	cz := math32.Floor((dir[2] + 1) * starFieldCells)

	rng := pixelRng(uint32(int32(cx))*73856093, uint32(int32(cy))*19349663, uint32(int32(cz))*83492791)
	if rng.next() > density {
		return types.Vec3{}
	}

	// Tent falloff towards the cell center keeps stars round-ish
	// instead of rendering whole cells.
	fx := (dir[0]+1)*starFieldCells - cx
	fy := (dir[1]+1)*starFieldCells - cy
	fz := (dir[2]+1)*starFieldCells - cz
	w := (1 - math32.Abs(2*fx-1)) * (1 - math32.Abs(2*fy-1)) * (1 - math32.Abs(2*fz-1))
	if w <= 0 {
		return types.Vec3{}
	}

	brightness := intensity * (0.25 + 0.75*rng.next()) * w * w
	temp := 2500 + 9500*rng.next()
	return blackbodyRGB(temp).Mul(brightness)
}

// Shade an accretion disk crossing: blackbody emission with a radial
// temperature falloff, shifted by the doppler factor of the Keplerian
// orbital flow and by gravitational redshift.
func (tr *Tracer) shadeDisk(ray *geoRay) types.Vec3 {
	hole := &tr.holes[ray.diskHole]
	rs := hole.SchwarzschildRadius()
	radius := ray.diskRadius

	// Radial temperature profile: normalized r^(-3/4) thin-disk falloff
	// pinned to the configured edge temperatures.
	pOut := math32.Pow(hole.DiskOuterRadius/hole.DiskInnerRadius, -0.75)
	p := math32.Pow(radius/hole.DiskInnerRadius, -0.75)
	temp := hole.DiskOuterTemp + (hole.DiskInnerTemp-hole.DiskOuterTemp)*(p-pOut)/(1-pOut)

	// Keplerian orbital speed of the emitting plasma, prograde around
	// the spin axis.
	beta := float32(0)
	if radius > rs {
		beta = math32.Sqrt(hole.Mass / (radius - rs))
	}
	if beta > maxOrbitBeta {
		beta = maxOrbitBeta
	}
	gamma := 1 / math32.Sqrt(1-beta*beta)

	radial := ray.point.Sub(hole.Position)
	orbitDir := hole.SpinAxis.Cross(radial).Normalize()
	toObserver := ray.vel.Normalize().Neg()
	doppler := 1 / (gamma * (1 - beta*orbitDir.Dot(toObserver)))

	// Gravitational redshift for emission at this radius.
	redshift := math32.Sqrt(clamp32(1-rs/radius, 0.01, 1))

	shift := doppler * redshift
	color := blackbodyRGB(temp * shift)
	luminance := diskBaseLuminance * shift * shift * shift

	// Procedural ring banding plus soft annulus edges.
	bands := 0.8 + 0.2*math32.Sin(radius*3.1+1.7*math32.Sin(radius*7.3))
	span := hole.DiskOuterRadius - hole.DiskInnerRadius
	fadeIn := smoothstep(hole.DiskInnerRadius, hole.DiskInnerRadius+0.08*span, radius)
	fadeOut := 1 - smoothstep(hole.DiskOuterRadius-0.25*span, hole.DiskOuterRadius, radius)

	return color.Mul(luminance * bands * fadeIn * fadeOut)
}

// Shade a scene geometry hit: emitted radiance, ambient background
// light and direct Lambertian lighting from the emissive triangles,
// plus a lensed reflection for mirror materials.
func (tr *Tracer) shadeSurface(ray *geoRay, depth uint32) types.Vec3 {
	tri := &tr.sceneData.BVH.Triangles[ray.tri.TriIndex]
	albedo, radiance, reflectivity := tr.resolveMaterial(tri)

	normal := tri.N
	if normal.Dot(ray.vel) > 0 {
		normal = normal.Neg()
	}

	color := radiance
	color = color.Add(albedo.MulVec3(tr.shadeBackground(normal)).Mul(ambientStrength))
	color = color.Add(albedo.MulVec3(tr.directLight(ray.point, normal)))

	if reflectivity > 0 && depth < tr.settings.MaxBounces {
		incoming := ray.vel.Normalize()
		reflected := geoRay{
			pos:          ray.point.Add(normal.Mul(shadowBias)),
			vel:          incoming.Sub(normal.Mul(2 * incoming.Dot(normal))),
			minPsRatio:   math32.MaxFloat32,
			minErgoRatio: math32.MaxFloat32,
		}
		tr.integrate(&reflected)
		color = color.Add(tr.shade(&reflected, depth+1).Mul(reflectivity))
	}

	return color
}

// Resolve the shading values for a triangle through the material
// table, falling back to the inline values for MatNone triangles.
func (tr *Tracer) resolveMaterial(tri *scene.Triangle) (albedo, radiance types.Vec3, reflectivity float32) {
	if tri.MatIndex != scene.MatNone && int(tri.MatIndex) < len(tr.sceneData.Materials) {
		mat := &tr.sceneData.Materials[tri.MatIndex]
		return mat.Albedo, mat.Radiance(), mat.Reflectivity
	}
	return tri.Albedo, tri.Emissive, 0
}

// Gather direct Lambertian contributions from the emissive triangles.
// Shadow rays are traced straight; lensing-accurate shadows would need
// a full geodesic integration per light sample.
func (tr *Tracer) directLight(point, normal types.Vec3) types.Vec3 {
	var total types.Vec3
	bvh := tr.sceneData.BVH

	for _, lightIdx := range tr.sceneData.EmissiveTris {
		light := &bvh.Triangles[lightIdx]
		toLight := light.Center().Sub(point)
		dist2 := toLight.Len2()
		if dist2 < 1e-8 {
			continue
		}
		dist := math32.Sqrt(dist2)
		dir := toLight.Mul(1 / dist)

		cosSurface := normal.Dot(dir)
		if cosSurface <= 0 {
			continue
		}
		// Emissive triangles light both of their sides.
		cosLight := math32.Abs(dir.Dot(light.N))
		if cosLight <= 0 {
			continue
		}

		var hit scene.Intersection
		if bvh.Intersect(point.Add(normal.Mul(shadowBias)), dir, dist-2*shadowBias, &hit) &&
			hit.TriIndex != lightIdx {
			continue
		}

		e1 := light.V[1].Sub(light.V[0])
		e2 := light.V[2].Sub(light.V[0])
		area := 0.5 * e1.Cross(e2).Len()

		weight := cosSurface * cosLight * area / (dist2 * math32.Pi)
		total = total.Add(tr.sceneData.TriangleRadiance(light).Mul(weight))
	}

	return total
}

// Composite the translucent photon sphere and ergosphere shells over
// the shaded color based on the ray's closest approach to each shell.
func (tr *Tracer) blendOverlays(ray *geoRay, color types.Vec3) types.Vec3 {
	if tr.settings.ShowPhotonSphere && ray.minPsRatio < 1 {
		alpha := clamp32((1-ray.minPsRatio)*psOverlayStrength, 0, psOverlayStrength)
		color = color.Lerp(photonSphereOverlayColor, alpha)
	}
	if tr.settings.ShowErgosphere && ray.minErgoRatio < 1 {
		alpha := clamp32((1-ray.minErgoRatio)*ergoOverlayStrength, 0, ergoOverlayStrength)
		color = color.Lerp(ergosphereOverlayColor, alpha)
	}
	return color
}

// Approximate the normalized sRGB chromaticity of a blackbody radiator
// at the given temperature in Kelvin.
func blackbodyRGB(kelvin float32) types.Vec3 {
	t := clamp32(kelvin, 1000, 40000) / 100

	var r, g, b float32
	if t <= 66 {
		r = 255
		g = 99.4708025861*math32.Log(t) - 161.1195681661
		if t <= 19 {
			b = 0
		} else {
			b = 138.5177312231*math32.Log(t-10) - 305.0447927307
		}
	} else {
		r = 329.698727446 * math32.Pow(t-60, -0.1332047592)
		g = 288.1221695283 * math32.Pow(t-60, -0.0755148492)
		b = 255
	}

	return types.Vec3{
		clamp32(r, 0, 255) / 255,
		clamp32(g, 0, 255) / 255,
		clamp32(b, 0, 255) / 255,
	}
}

func clamp32(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func smoothstep(edge0, edge1, v float32) float32 {
	t := clamp32((v-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}
