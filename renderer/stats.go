package renderer

import "time"

type TracerStat struct {
	// The tracer id.
	Id string

	// The block height and the percentage of total frame area it represents.
	BlockH       uint32
	FramePercent float32

	// Render time for assigned block.
	RenderTime time.Duration

	// Time spent committing queued state updates for the last block.
	UpdateTime time.Duration
}

type FrameStats struct {
	// Individual tracer stats.
	Tracers []TracerStat

	// Total render time for entire frame.
	RenderTime time.Duration

	// Samples blended into the accumulation buffer per pixel.
	AccumulatedSamples uint32
}
