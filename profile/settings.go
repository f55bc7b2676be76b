package profile

import (
	"fmt"
	"strings"
)

// Quality selects a canned set of geodesic integration knobs.
type Quality uint8

const (
	Low Quality = iota
	Medium
	High
	Ultra

	// Custom marks hand-tuned lensing knobs; applying it never
	// overwrites the current values.
	Custom
)

func (q Quality) String() string {
	switch q {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Ultra:
		return "ultra"
	}
	return "custom"
}

// ParseQuality maps a name to a quality level.
func ParseQuality(name string) (Quality, error) {
	switch strings.ToLower(name) {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	case "ultra":
		return Ultra, nil
	case "custom":
		return Custom, nil
	}
	return Custom, fmt.Errorf("profile: unknown quality level %q", name)
}

// UpscaleMethod selects the filter used to scale a reduced-resolution
// frame up to the display resolution.
type UpscaleMethod uint8

const (
	UpscaleNone UpscaleMethod = iota
	UpscaleNearest
	UpscaleBilinear
	UpscaleCatmullRom
)

func (m UpscaleMethod) String() string {
	switch m {
	case UpscaleNearest:
		return "nearest"
	case UpscaleBilinear:
		return "bilinear"
	case UpscaleCatmullRom:
		return "catmull-rom"
	}
	return "none"
}

// ParseUpscaleMethod maps a name to an upscale method.
func ParseUpscaleMethod(name string) (UpscaleMethod, error) {
	switch strings.ToLower(name) {
	case "none":
		return UpscaleNone, nil
	case "nearest":
		return UpscaleNearest, nil
	case "bilinear":
		return UpscaleBilinear, nil
	case "catmull-rom", "catmullrom":
		return UpscaleCatmullRom, nil
	}
	return UpscaleNone, fmt.Errorf("profile: unknown upscale method %q", name)
}

// Settings holds every knob the raytracer reads. A settings value is
// snapshotted by each tracer at block start; out-of-range values are
// corrected by Clamp, never rejected.
type Settings struct {
	// The number of rays emitted per pixel per frame.
	RaysPerPixel uint32

	// Reflection bounce budget for lensed secondary rays.
	MaxBounces uint32

	// Upper bound on accumulated samples per pixel. Zero keeps
	// refining indefinitely.
	SampleCap uint32

	// Blend new samples into the running per-pixel average instead of
	// replacing it.
	Accumulate bool

	// Run the edge-preserving denoise filter when resolving the frame.
	Denoise bool

	// The quality level the lensing knobs below were derived from.
	Quality Quality

	// Geodesic integration knobs: step budget per ray, base step size
	// in world units, steps between scene intersection checks and the
	// travel distance after which a ray counts as escaped.
	LensingMaxSteps         uint32
	LensingStepSize         float32
	LensingBvhCheckInterval uint32
	LensingMaxDistance      float32

	// Analytic overlay shells.
	ShowErgosphere   bool
	ShowPhotonSphere bool

	// Tonemap toggle and exposure for the HDR resolve.
	Tonemap  bool
	Exposure float32

	// Render at display resolution divided by UpscaleFactor and scale
	// the frame back up with the selected method.
	Upscale       UpscaleMethod
	UpscaleFactor uint32
}

// The canned lensing knobs per quality level. Step budgets strictly
// increase and step sizes strictly decrease from Low to Ultra.
type lensingPreset struct {
	maxSteps         uint32
	stepSize         float32
	bvhCheckInterval uint32
}

var qualityPresets = map[Quality]lensingPreset{
	Low:    {maxSteps: 192, stepSize: 0.40, bvhCheckInterval: 8},
	Medium: {maxSteps: 384, stepSize: 0.22, bvhCheckInterval: 6},
	High:   {maxSteps: 768, stepSize: 0.12, bvhCheckInterval: 4},
	Ultra:  {maxSteps: 1536, stepSize: 0.06, bvhCheckInterval: 2},
}

// DefaultSettings returns a medium-quality settings value suitable for
// a desktop-class host.
func DefaultSettings() Settings {
	s := Settings{
		RaysPerPixel:       1,
		MaxBounces:         1,
		SampleCap:          0,
		Accumulate:         true,
		Denoise:            false,
		ShowErgosphere:     false,
		ShowPhotonSphere:   false,
		Tonemap:            true,
		Exposure:           1.2,
		LensingMaxDistance: 220,
		Upscale:            UpscaleNone,
		UpscaleFactor:      1,
	}
	s.ApplyQuality(Medium)
	return s
}

// ApplyQuality loads the canned lensing knobs for a quality level.
// Applying Custom tags the settings but keeps the current knob values.
func (s *Settings) ApplyQuality(q Quality) {
	s.Quality = q

	preset, exists := qualityPresets[q]
	if !exists {
		return
	}

	s.LensingMaxSteps = preset.maxSteps
	s.LensingStepSize = preset.stepSize
	s.LensingBvhCheckInterval = preset.bvhCheckInterval
	s.Clamp()
}

// Clamp corrects out-of-range values in place. It is idempotent. The
// legal ranges are:
//
//	RaysPerPixel            [1, 32]
//	MaxBounces              [0, 8]
//	SampleCap               [0, 1<<20]
//	LensingMaxSteps         [16, 8192]
//	LensingStepSize         [0.005, 2.0]
//	LensingBvhCheckInterval [1, 64]
//	LensingMaxDistance      [10, 10000]
//	Exposure                [0.01, 100]
//	UpscaleFactor           [1, 8] (forced to 1 when Upscale is none)
func (s *Settings) Clamp() {
	s.RaysPerPixel = clampU32(s.RaysPerPixel, 1, 32)
	if s.MaxBounces > 8 {
		s.MaxBounces = 8
	}
	if s.SampleCap > 1<<20 {
		s.SampleCap = 1 << 20
	}

	s.LensingMaxSteps = clampU32(s.LensingMaxSteps, 16, 8192)
	s.LensingStepSize = clampF32(s.LensingStepSize, 0.005, 2.0)
	s.LensingBvhCheckInterval = clampU32(s.LensingBvhCheckInterval, 1, 64)
	s.LensingMaxDistance = clampF32(s.LensingMaxDistance, 10, 10000)
	s.Exposure = clampF32(s.Exposure, 0.01, 100)

	if s.Quality > Custom {
		s.Quality = Custom
	}
	if s.Upscale > UpscaleCatmullRom {
		s.Upscale = UpscaleNone
	}
	if s.Upscale == UpscaleNone {
		s.UpscaleFactor = 1
	} else {
		s.UpscaleFactor = clampU32(s.UpscaleFactor, 1, 8)
	}
}

func clampU32(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampF32(v, min, max float32) float32 {
	// NaN compares false with everything; land it on the lower bound.
	if !(v >= min) {
		return min
	}
	if v > max {
		return max
	}
	return v
}
