package renderer

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/achilleasa/gargantua/profile"
)

// scalerFor maps an upscale method to its x/image/draw implementation.
// A nil scaler means frames are already traced at the display resolution.
func scalerFor(method profile.UpscaleMethod) draw.Scaler {
	switch method {
	case profile.UpscaleNearest:
		return draw.NearestNeighbor
	case profile.UpscaleBilinear:
		return draw.ApproxBiLinear
	case profile.UpscaleCatmullRom:
		return draw.CatmullRom
	}
	return nil
}

// upscaleFrame scales a traced frame up to the display resolution. The
// destination keeps its own pixel storage so readers never observe a
// half-resolved frame while the next block sync is running.
func upscaleFrame(dst *image.RGBA, src *image.RGBA, scaler draw.Scaler) {
	if scaler == nil {
		copy(dst.Pix, src.Pix)
		return
	}
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}
