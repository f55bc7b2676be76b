package cpu

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/achilleasa/gargantua/tracer"
)

const (
	// Neighborhood luminance variance below which a pixel is treated as
	// converged and passes through the denoiser untouched.
	denoiseVarianceGate float32 = 2.5e-5

	// Floor for the adaptive range sigma of the bilateral kernel.
	minRangeSigma2 float32 = 1e-4
)

// Spatial gaussian weights for the 3x3 bilateral footprint, indexed by
// squared offset distance (sigma = 1).
var bilateralSpatial = [3]float32{1, 0.6065, 0.3679}

func luminance(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// Run the 3x3 edge-preserving bilateral filter over the accumulated
// samples for the block rows and hand the result to the tonemapper.
// The filter reads the shared accumulation buffer, which is stable by
// the time blocks are synced, and writes only tracer-local scratch, so
// neighboring blocks owned by other tracers stay untouched.
func (tr *Tracer) denoiseBlock(blockReq *tracer.BlockRequest) (time.Duration, error) {
	start := time.Now()

	acc := tr.output.Accumulator
	dst := tr.buffers.filtered

	if !tr.settings.Denoise {
		tr.forEachRow(blockReq, func(y uint32) {
			rowStart := (y*blockReq.FrameW + blockReq.BlockX) * 4
			copy(dst[rowStart:rowStart+blockReq.BlockW*4], acc[rowStart:rowStart+blockReq.BlockW*4])
		})
		return time.Since(start), nil
	}

	tr.forEachRow(blockReq, func(y uint32) {
		for x := blockReq.BlockX; x < blockReq.BlockX+blockReq.BlockW; x++ {
			bilateralPixel(acc, dst, x, y, blockReq.FrameW, blockReq.FrameH)
		}
	})

	return time.Since(start), nil
}

// Filter a single pixel against its 3x3 neighborhood. The range sigma
// adapts to the local luminance variance: noisy regions smooth hard,
// genuine edges (disk against horizon) survive because their variance
// driven sigma never catches the luminance gap.
func bilateralPixel(acc, dst []float32, x, y, frameW, frameH uint32) {
	base := (y*frameW + x) * 4

	x0, x1 := int(x)-1, int(x)+1
	y0, y1 := int(y)-1, int(y)+1
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 >= int(frameW) {
		x1 = int(frameW) - 1
	}
	if y1 >= int(frameH) {
		y1 = int(frameH) - 1
	}

	var sum, sumSq, count float32
	for ny := y0; ny <= y1; ny++ {
		for nx := x0; nx <= x1; nx++ {
			idx := (uint32(ny)*frameW + uint32(nx)) * 4
			lum := luminance(acc[idx], acc[idx+1], acc[idx+2])
			sum += lum
			sumSq += lum * lum
			count++
		}
	}
	mean := sum / count
	variance := sumSq/count - mean*mean
	if variance < denoiseVarianceGate {
		dst[base] = acc[base]
		dst[base+1] = acc[base+1]
		dst[base+2] = acc[base+2]
		dst[base+3] = acc[base+3]
		return
	}

	centerLum := luminance(acc[base], acc[base+1], acc[base+2])
	sigma2 := 2 * variance
	if sigma2 < minRangeSigma2 {
		sigma2 = minRangeSigma2
	}

	var wSum, r, g, b float32
	for ny := y0; ny <= y1; ny++ {
		for nx := x0; nx <= x1; nx++ {
			idx := (uint32(ny)*frameW + uint32(nx)) * 4
			lum := luminance(acc[idx], acc[idx+1], acc[idx+2])
			dx := nx - int(x)
			dy := ny - int(y)
			diff := lum - centerLum
			w := bilateralSpatial[dx*dx+dy*dy] * math32.Exp(-diff*diff/sigma2)
			wSum += w
			r += acc[idx] * w
			g += acc[idx+1] * w
			b += acc[idx+2] * w
		}
	}

	inv := 1 / wSum
	dst[base] = r * inv
	dst[base+1] = g * inv
	dst[base+2] = b * inv
	dst[base+3] = acc[base+3]
}

// Resolve the filtered samples for the block rows into 8-bit RGBA:
// exposure scaling, simple Reinhard compression and gamma 2.0.
func (tr *Tracer) tonemapBlock(blockReq *tracer.BlockRequest) (time.Duration, error) {
	start := time.Now()

	src := tr.buffers.filtered
	fb := tr.output.Framebuffer
	exposure := tr.settings.Exposure
	compress := tr.settings.Tonemap

	tr.forEachRow(blockReq, func(y uint32) {
		for x := blockReq.BlockX; x < blockReq.BlockX+blockReq.BlockW; x++ {
			idx := (y*blockReq.FrameW + x) * 4

			r := src[idx] * exposure
			g := src[idx+1] * exposure
			b := src[idx+2] * exposure

			if compress {
				scale := 1 / (1 + luminance(r, g, b))
				r *= scale
				g *= scale
				b *= scale
			}

			fb[idx] = uint8(clamp32(math32.Sqrt(r), 0, 1)*255 + 0.5)
			fb[idx+1] = uint8(clamp32(math32.Sqrt(g), 0, 1)*255 + 0.5)
			fb[idx+2] = uint8(clamp32(math32.Sqrt(b), 0, 1)*255 + 0.5)
			fb[idx+3] = 255
		}
	})

	return time.Since(start), nil
}
