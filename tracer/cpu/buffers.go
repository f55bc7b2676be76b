package cpu

// bufferSet owns the tracer-local scratch buffers. The shared
// accumulation and output framebuffers are not part of the set; they
// are attached via OutputBuffers updates and owned by the renderer.
type bufferSet struct {
	// Per-pixel integration state for the in-flight sample pass.
	rays []geoRay

	// Filtered HDR samples handed from the denoise stage to the
	// tonemapper; 4 floats per pixel.
	filtered []float32
}

// Resize the scratch buffers to match the frame dimensions.
func (b *bufferSet) Resize(frameW, frameH uint32) {
	pixels := int(frameW) * int(frameH)

	if cap(b.rays) < pixels {
		b.rays = make([]geoRay, pixels)
	} else {
		b.rays = b.rays[:pixels]
	}

	if cap(b.filtered) < pixels*4 {
		b.filtered = make([]float32, pixels*4)
	} else {
		b.filtered = b.filtered[:pixels*4]
	}
}

// Release the scratch buffers.
func (b *bufferSet) Release() {
	b.rays = nil
	b.filtered = nil
}
