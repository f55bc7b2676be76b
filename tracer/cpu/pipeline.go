package cpu

import (
	"image"
	"image/png"
	"os"
	"time"

	"github.com/achilleasa/gargantua/tracer"
)

// An alias for functions that can be used as part of the rendering pipeline.
type PipelineStage func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error)

// The list of pluggable stages that are used to render a frame block.
type Pipeline struct {
	// Reset the accumulated samples for the block. This stage is
	// executed whenever a block request discards its sample history.
	Reset PipelineStage

	// This stage is executed whenever the tracer generates a new set
	// of primary rays. Depending on the samples per pixel this stage
	// may be invoked more than once per block request.
	PrimaryRayGenerator PipelineStage

	// This stage integrates the primary rays through the lensed
	// spacetime field, shades their terminal states and blends the
	// results into the accumulation buffer.
	Integrator PipelineStage

	// A set of post-processing stages that resolve the accumulated
	// samples into the output framebuffer when a block is synced.
	PostProcess []PipelineStage
}

// DefaultPipeline assembles the standard lensing pipeline.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		Reset:               ClearAccumulator(),
		PrimaryRayGenerator: PerspectiveCamera(),
		Integrator:          GeodesicIntegrator(),
		PostProcess: []PipelineStage{
			BilateralDenoiser(),
			TonemapSimpleReinhard(),
		},
	}
}

// Clear the accumulated samples for the block rows.
func ClearAccumulator() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		return tr.clearAccumulator(blockReq)
	}
}

// Use a perspective camera for the primary ray generation stage. Rays
// are seeded from the committed camera position and frustrum.
func PerspectiveCamera() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		return tr.generatePrimaryRays(blockReq)
	}
}

// Integrate the primary rays through the lensed spacetime field and
// blend the shaded results into the accumulation buffer.
func GeodesicIntegrator() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		return tr.integrateBlock(blockReq)
	}
}

// Run the edge-preserving denoise filter over the accumulated samples
// for the block rows.
func BilateralDenoiser() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		return tr.denoiseBlock(blockReq)
	}
}

// Apply simple Reinhard tone-mapping and resolve the block rows into
// 8-bit RGBA.
func TonemapSimpleReinhard() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		return tr.tonemapBlock(blockReq)
	}
}

// Dump a copy of the RGBA framebuffer after each block sync.
func DebugFrameBuffer(imgFile string) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		f, err := os.Create(imgFile)
		if err != nil {
			return 0, err
		}
		defer f.Close()

		im := image.NewRGBA(image.Rect(0, 0, int(blockReq.FrameW), int(blockReq.FrameH)))
		copy(im.Pix, tr.output.Framebuffer)

		return time.Since(start), png.Encode(f, im)
	}
}
