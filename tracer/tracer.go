package tracer

import "time"

// Tracer capability flags.
type Flag uint8

const (
	// Local tracers run in-process on the host machine.
	Local Flag = 1 << iota
)

// UpdateMode controls how state updates are applied.
type UpdateMode uint8

const (
	// Synchronous updates are committed before UpdateState returns.
	Synchronous UpdateMode = iota

	// Asynchronous updates are queued and committed before the next
	// traced block. Updates are grouped by type; the latest update of
	// a type always overwrites a queued one.
	Asynchronous
)

// UpdateType describes the payload of a state update.
type UpdateType uint8

const (
	// FrameDimensions expects a [2]uint32{frameW, frameH} payload.
	FrameDimensions UpdateType = iota

	// OutputBuffers expects a *Output payload sized for the current
	// frame dimensions.
	OutputBuffers

	// SceneData expects a *scene.PackedScene payload.
	SceneData

	// LensingData expects a []scene.BlackHole payload.
	LensingData

	// CameraData expects a *scene.Camera payload. The tracer snapshots
	// the camera position and frustrum when the update is committed.
	CameraData

	// SettingsData expects a profile.Settings payload.
	SettingsData
)

// Output groups the render targets shared between a renderer and its
// attached tracers. The same buffers may be attached to multiple
// tracers as long as their block requests target disjoint frame rows.
type Output struct {
	// HDR accumulation buffer; 4 floats per pixel.
	Accumulator []float32

	// Tonemapped framebuffer; 4 bytes (RGBA) per pixel.
	Framebuffer []uint8
}

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Frame dimensions.
	FrameW uint32
	FrameH uint32

	// Block origin and dimensions.
	BlockX uint32
	BlockY uint32
	BlockW uint32
	BlockH uint32

	// The number of emitted rays per traced pixel.
	SamplesPerPixel uint32

	// The number of samples already blended into the accumulation
	// buffer. A zero value discards any accumulated history for the
	// block before the new samples are blended in.
	AccumulatedSamples uint32

	// A random seed value for the tracer's random number generator.
	Seed uint32
}

// Tracer statistics for the last rendered block.
type Stats struct {
	// The dimensions of the last rendered block.
	BlockW uint32
	BlockH uint32

	// The time spent tracing the last block.
	RenderTime time.Duration

	// The time spent committing queued state updates.
	UpdateTime time.Duration
}

type Tracer interface {
	// Get the tracer id.
	Id() string

	// Get the tracer capability flags.
	Flags() Flag

	// Get the tracer speed estimate relative to the other attached
	// tracers. The block schedulers use it until real frame timings
	// become available.
	Speed() uint32

	// Initialize the tracer and start its block worker.
	Init() error

	// Shutdown and cleanup tracer.
	Close()

	// Queue a state update. Synchronous updates are committed before
	// this method returns; asynchronous updates are committed before
	// the next traced block.
	UpdateState(UpdateMode, UpdateType, interface{}) (time.Duration, error)

	// Trace a block of the current frame and blend the results into
	// the accumulation buffer.
	Trace(*BlockRequest) (time.Duration, error)

	// Run the post-process stages for a block and resolve the
	// accumulated samples into the output framebuffer.
	SyncFramebuffer(*BlockRequest) (time.Duration, error)

	// Retrieve last frame statistics.
	Stats() *Stats
}
