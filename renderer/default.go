package renderer

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/achilleasa/gargantua/log"
	"github.com/achilleasa/gargantua/profile"
	"github.com/achilleasa/gargantua/scene"
	"github.com/achilleasa/gargantua/tracer"
	"github.com/achilleasa/gargantua/tracer/cpu"
)

// Max triangles per BVH leaf.
const bvhMaxLeafSize = 8

// The default renderer tiles each frame into row blocks, hands them to a
// pool of attached tracers and resolves the traced result into a display
// resolution RGBA frame.
type defaultRenderer struct {
	logger log.Logger

	sc        *scene.Scene
	scheduler tracer.BlockScheduler
	options   Options

	tracers          []tracer.Tracer
	blockAssignments []uint32

	// Frames are traced at the display dims divided by the upscale
	// factor and scaled back up while resolving.
	renderW uint32
	renderH uint32
	output  *tracer.Output
	scaler  draw.Scaler
	frame   *image.RGBA

	// Committed raytracer settings. Changes are pushed to the tracers as
	// queued updates so a running kernel never observes a partial write.
	settings profile.Settings

	accumulatedSamples uint32
	frameCount         uint32
	lastFrameAt        time.Time

	// Content hashes gating geometry repacks and accumulator resets.
	packedHash  uint64
	lensingHash uint64
	havePacked  bool

	stats  FrameStats
	closed bool

	// Guards frame and stats access from other goroutines.
	sync.Mutex
}

// Create a new block renderer. The scheduler splits frame rows between a
// pool of CPU tracers created from the options; every tracer runs the
// same pipeline instance.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, pipeline *cpu.Pipeline, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, ErrInvalidFrameDims
	}

	opts.Settings.Clamp()
	if opts.NumTracers <= 0 {
		opts.NumTracers = 1
	}

	r := &defaultRenderer{
		logger:    log.New("renderer"),
		sc:        sc,
		scheduler: scheduler,
		options:   opts,
		settings:  opts.Settings,
		scaler:    scalerFor(opts.Settings.Upscale),
		frame:     image.NewRGBA(image.Rect(0, 0, int(opts.FrameW), int(opts.FrameH))),
	}

	factor := opts.Settings.UpscaleFactor
	r.renderW = maxU32(1, opts.FrameW/factor)
	r.renderH = maxU32(1, opts.FrameH/factor)
	r.output = &tracer.Output{
		Accumulator: make([]float32, r.renderW*r.renderH*4),
		Framebuffer: make([]uint8, r.renderW*r.renderH*4),
	}

	// The projection follows the display aspect so reduced resolution
	// frames are not distorted by the upscale.
	sc.Camera.SetupProjection(float32(opts.FrameW) / float32(opts.FrameH))

	if err := r.attachTracers(pipeline); err != nil {
		r.Close()
		return nil, err
	}

	r.logger.Noticef(
		"attached %d tracer(s); tracing at %dx%d for a %dx%d frame",
		len(r.tracers), r.renderW, r.renderH, opts.FrameW, opts.FrameH,
	)

	return r, nil
}

// attachTracers creates and initializes the CPU tracer pool and commits
// the frame setup to each member.
func (r *defaultRenderer) attachTracers(pipeline *cpu.Pipeline) error {
	// Split the host cores between the attached tracers.
	workers := runtime.NumCPU() / r.options.NumTracers
	if workers < 1 {
		workers = 1
	}

	for idx := 0; idx < r.options.NumTracers; idx++ {
		tr, err := cpu.NewTracer(fmt.Sprintf("cpu-%d", idx), pipeline, workers)
		if err != nil {
			return err
		}
		if err = tr.Init(); err != nil {
			return err
		}
		r.tracers = append(r.tracers, tr)
	}
	if len(r.tracers) == 0 {
		return ErrNoTracers
	}

	updates := []struct {
		updateType tracer.UpdateType
		data       interface{}
	}{
		{tracer.FrameDimensions, [2]uint32{r.renderW, r.renderH}},
		{tracer.OutputBuffers, r.output},
		{tracer.SettingsData, r.settings},
		{tracer.CameraData, r.sc.Camera},
	}
	for _, tr := range r.tracers {
		for _, update := range updates {
			if _, err := tr.UpdateState(tracer.Synchronous, update.updateType, update.data); err != nil {
				return err
			}
		}
	}

	return nil
}

// Render traces one progressive sample pass over the frame. Passes keep
// accumulating until the sample cap is reached or the scene changes.
func (r *defaultRenderer) Render() error {
	r.Lock()
	defer r.Unlock()

	if r.settings.SampleCap != 0 && r.accumulatedSamples >= r.settings.SampleCap {
		return nil
	}
	return r.renderFrame()
}

func (r *defaultRenderer) Close() {
	r.Lock()
	defer r.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Get a copy of the last frame statistics.
func (r *defaultRenderer) Stats() FrameStats {
	r.Lock()
	defer r.Unlock()

	stats := r.stats
	stats.Tracers = append([]TracerStat(nil), r.stats.Tracers...)
	return stats
}

// Get a copy of the latest resolved frame at the display resolution.
func (r *defaultRenderer) Frame() *image.RGBA {
	r.Lock()
	defer r.Unlock()

	frame := image.NewRGBA(r.frame.Rect)
	copy(frame.Pix, r.frame.Pix)
	return frame
}

// renderFrame commits pending scene changes, traces one sample pass
// over the full frame and resolves the result into the display frame.
// The caller must hold the lock.
func (r *defaultRenderer) renderFrame() error {
	if r.closed || len(r.tracers) == 0 {
		return ErrNoTracers
	}

	start := time.Now()

	if err := r.commitSceneChanges(); err != nil {
		return err
	}

	// Tile the frame into row blocks weighted by tracer throughput.
	r.blockAssignments = r.scheduler.Schedule(r.tracers, r.renderH)

	seed := rand.Uint32()
	blockReqs := make([]tracer.BlockRequest, len(r.tracers))
	var blockY uint32
	for idx := range r.tracers {
		blockReqs[idx] = tracer.BlockRequest{
			FrameW:             r.renderW,
			FrameH:             r.renderH,
			BlockY:             blockY,
			BlockW:             r.renderW,
			BlockH:             r.blockAssignments[idx],
			SamplesPerPixel:    r.settings.RaysPerPixel,
			AccumulatedSamples: r.accumulatedSamples,
			Seed:               seed,
		}
		blockY += r.blockAssignments[idx]
	}

	// Every block must be traced before any block is resolved; the
	// denoise stage reads accumulator rows across block boundaries.
	if err := r.fanOut(blockReqs, tracer.Tracer.Trace); err != nil {
		return err
	}
	if err := r.fanOut(blockReqs, tracer.Tracer.SyncFramebuffer); err != nil {
		return err
	}

	if r.settings.Accumulate {
		r.accumulatedSamples += r.settings.RaysPerPixel
	} else {
		r.accumulatedSamples = 0
	}
	r.frameCount++

	r.resolveFrame()
	r.collectStats(time.Since(start))
	return nil
}

// fanOut invokes op for every attached tracer in parallel and collects
// the first reported error. It returns after every tracer is done.
func (r *defaultRenderer) fanOut(blockReqs []tracer.BlockRequest, op func(tracer.Tracer, *tracer.BlockRequest) (time.Duration, error)) error {
	var wg sync.WaitGroup
	errChan := make(chan error, len(r.tracers))

	for idx, tr := range r.tracers {
		wg.Add(1)
		go func(tr tracer.Tracer, blockReq *tracer.BlockRequest) {
			defer wg.Done()
			if _, err := op(tr, blockReq); err != nil {
				errChan <- err
			}
		}(tr, &blockReqs[idx])
	}
	wg.Wait()

	select {
	case err := <-errChan:
		return err
	default:
	}
	return nil
}

// commitSceneChanges flattens the live scene and pushes changed state to
// the attached tracers. Geometry is repacked only when the content hash
// moves; a repack or a lensing parameter change restarts accumulation.
func (r *defaultRenderer) commitSceneChanges() error {
	var delta float32
	now := time.Now()
	if !r.lastFrameAt.IsZero() {
		delta = float32(now.Sub(r.lastFrameAt).Seconds())
	}
	r.lastFrameAt = now

	flat := r.sc.Flatten(scene.FrameContext{Delta: delta, FrameCount: r.frameCount})

	reset := false
	if !r.havePacked || flat.Hash != r.packedHash {
		packed, err := scene.Pack(flat, r.sc.Background, bvhMaxLeafSize)
		if errors.Is(err, scene.ErrNoGeometry) {
			// Hole-only scenes keep tracing against empty space.
			packed = &scene.PackedScene{
				BVH:        &scene.BVH{},
				Materials:  flat.Materials,
				Background: r.sc.Background,
				Hash:       flat.Hash,
			}
		} else if err != nil {
			return err
		}

		if err = r.updateAll(tracer.SceneData, packed); err != nil {
			return err
		}
		r.packedHash = flat.Hash
		r.havePacked = true
		reset = true
	}

	if lensingHash := r.sc.LensingHash(); lensingHash != r.lensingHash {
		holes := append([]scene.BlackHole(nil), r.sc.BlackHoles()...)
		if err := r.updateAll(tracer.LensingData, holes); err != nil {
			return err
		}
		r.lensingHash = lensingHash
		reset = true
	}

	if reset {
		r.resetAccumulation()
	}
	return nil
}

// updateAll commits a state update on every attached tracer before
// returning.
func (r *defaultRenderer) updateAll(updateType tracer.UpdateType, data interface{}) error {
	for _, tr := range r.tracers {
		if _, err := tr.UpdateState(tracer.Synchronous, updateType, data); err != nil {
			return err
		}
	}
	return nil
}

// applySettings clamps and pushes new raytracer settings to every
// tracer and restarts sample accumulation. The traced resolution is
// fixed at attach time, so upscale changes are ignored. The caller must
// hold the lock.
func (r *defaultRenderer) applySettings(settings profile.Settings) error {
	settings.Clamp()
	settings.Upscale = r.settings.Upscale
	settings.UpscaleFactor = r.settings.UpscaleFactor

	if err := r.updateAll(tracer.SettingsData, settings); err != nil {
		return err
	}
	r.settings = settings
	r.resetAccumulation()
	return nil
}

// resetAccumulation discards the blended sample history. The next
// traced block starts from a cleared accumulator.
func (r *defaultRenderer) resetAccumulation() {
	r.accumulatedSamples = 0
}

// resolveFrame publishes the traced framebuffer as the display frame,
// upscaling reduced resolution renders.
func (r *defaultRenderer) resolveFrame() {
	src := &image.RGBA{
		Pix:    r.output.Framebuffer,
		Stride: int(r.renderW) * 4,
		Rect:   image.Rect(0, 0, int(r.renderW), int(r.renderH)),
	}
	upscaleFrame(r.frame, src, r.scaler)
}

func (r *defaultRenderer) collectStats(renderTime time.Duration) {
	r.stats.Tracers = r.stats.Tracers[:0]
	for idx, tr := range r.tracers {
		trStats := tr.Stats()
		r.stats.Tracers = append(r.stats.Tracers, TracerStat{
			Id:           tr.Id(),
			BlockH:       r.blockAssignments[idx],
			FramePercent: float32(r.blockAssignments[idx]) * 100.0 / float32(r.renderH),
			RenderTime:   trStats.RenderTime,
			UpdateTime:   trStats.UpdateTime,
		})
	}
	r.stats.RenderTime = renderTime
	r.stats.AccumulatedSamples = r.accumulatedSamples
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
