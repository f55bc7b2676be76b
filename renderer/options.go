package renderer

import "github.com/achilleasa/gargantua/profile"

type Options struct {
	// Display frame dims.
	FrameW uint32
	FrameH uint32

	// Initial raytracer settings. Out-of-range values are clamped, never
	// rejected. When Settings.UpscaleFactor is greater than one, frames
	// are traced at the display dims divided by the factor.
	Settings profile.Settings

	// Number of CPU tracers to attach. The host cores are split between
	// them. Zero attaches a single tracer owning every core.
	NumTracers int
}
