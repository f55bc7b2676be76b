package renderer

import "image"

type Renderer interface {
	// Render frame.
	Render() error

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats

	// Get a copy of the latest resolved frame at the display resolution.
	Frame() *image.RGBA
}
