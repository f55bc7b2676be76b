package cpu

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/achilleasa/gargantua/log"
	"github.com/achilleasa/gargantua/profile"
	"github.com/achilleasa/gargantua/scene"
	"github.com/achilleasa/gargantua/tracer"
	"github.com/achilleasa/gargantua/types"
)

// The kind of work handled by the tracer worker.
type workKind uint8

const (
	workCommit workKind = iota
	workTrace
	workSync
)

// A unit of work submitted to the tracer worker.
type workRequest struct {
	kind     workKind
	blockReq *tracer.BlockRequest
	errChan  chan error
}

// Tracer is a pure-Go implementation of the lensing raytracer. Each
// tracer owns a worker goroutine that serializes state commits with
// block rendering and fans the per-pixel kernels out to a pool of
// kernel goroutines.
type Tracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	// The number of goroutines used to run the per-pixel kernels.
	numWorkers int

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateBuffer map[tracer.UpdateType]interface{}

	// A channel for receiving work requests from the renderer.
	workChan chan workRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered block.
	stats *tracer.Stats

	// The tracer rendering pipeline.
	pipeline *Pipeline

	// The tracer-local scratch buffers.
	buffers *bufferSet

	// Committed state. Only the worker touches these fields while the
	// tracer is running.
	frameW, frameH uint32
	output         *tracer.Output
	sceneData      *scene.PackedScene
	holes          []scene.BlackHole
	cameraPosition types.Vec3
	cameraFrustrum scene.Frustrum
	settings       profile.Settings

	// The sample pass index within the in-flight block request.
	samplePass uint32
}

// Create a new cpu tracer backed by numWorkers kernel goroutines. A
// non-positive worker count selects one goroutine per logical core. A
// nil pipeline selects the default lensing pipeline.
func NewTracer(id string, pipeline *Pipeline, numWorkers int) (*Tracer, error) {
	if pipeline == nil {
		pipeline = DefaultPipeline()
	}
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	tr := &Tracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		numWorkers:   numWorkers,
		updateBuffer: make(map[tracer.UpdateType]interface{}),
		workChan:     make(chan workRequest),
		stats:        &tracer.Stats{},
		pipeline:     pipeline,
		buffers:      &bufferSet{},
		settings:     profile.DefaultSettings(),
	}

	return tr, nil
}

// Get the tracer id.
func (tr *Tracer) Id() string {
	return tr.id
}

// Get the tracer capability flags.
func (tr *Tracer) Flags() tracer.Flag {
	return tracer.Local
}

// Get the tracer speed estimate. For cpu tracers this is the number of
// kernel goroutines, which makes speed proportional across tracers
// splitting the cores of the same host.
func (tr *Tracer) Speed() uint32 {
	return uint32(tr.numWorkers)
}

// Initialize the tracer and start its block worker.
func (tr *Tracer) Init() error {
	tr.Lock()
	defer tr.Unlock()

	if tr.closeChan == nil {
		tr.closeChan = make(chan struct{})
		tr.startWorker()
	}
	return nil
}

// Shutdown and cleanup tracer.
func (tr *Tracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close and shutdown channel
		<-tr.closeChan
		close(tr.closeChan)
		tr.closeChan = nil
		tr.wg.Wait()
	}

	tr.buffers.Release()
	tr.sceneData = nil
	tr.output = nil
}

// Retrieve last frame statistics.
func (tr *Tracer) Stats() *tracer.Stats {
	return tr.stats
}

// Queue a state update. Synchronous updates are committed before this
// method returns; asynchronous updates are committed by the worker
// before the next traced block.
func (tr *Tracer) UpdateState(mode tracer.UpdateMode, updateType tracer.UpdateType, data interface{}) (time.Duration, error) {
	start := time.Now()

	tr.Lock()
	tr.updateBuffer[updateType] = data
	running := tr.closeChan != nil
	tr.Unlock()

	if mode == tracer.Asynchronous {
		return time.Since(start), nil
	}

	if !running {
		// No worker to route through; commit in place.
		_, err := tr.commitUpdates()
		return time.Since(start), err
	}

	req := workRequest{kind: workCommit, errChan: make(chan error, 1)}
	tr.workChan <- req
	return time.Since(start), <-req.errChan
}

// Trace a block of the current frame and blend the results into the
// accumulation buffer. The call blocks until the worker has rendered
// the block.
func (tr *Tracer) Trace(blockReq *tracer.BlockRequest) (time.Duration, error) {
	return tr.submit(workTrace, blockReq)
}

// Run the post-process stages for a block and resolve the accumulated
// samples into the output framebuffer.
func (tr *Tracer) SyncFramebuffer(blockReq *tracer.BlockRequest) (time.Duration, error) {
	return tr.submit(workSync, blockReq)
}

// Submit a work request and block until the worker replies.
func (tr *Tracer) submit(kind workKind, blockReq *tracer.BlockRequest) (time.Duration, error) {
	start := time.Now()

	tr.Lock()
	running := tr.closeChan != nil
	tr.Unlock()
	if !running {
		return 0, ErrNotInitialized
	}

	req := workRequest{kind: kind, blockReq: blockReq, errChan: make(chan error, 1)}
	tr.workChan <- req
	return time.Since(start), <-req.errChan
}

// Spawn a go-routine to process work requests.
func (tr *Tracer) startWorker() {
	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		close(readyChan)
		for {
			select {
			case req := <-tr.workChan:
				req.errChan <- tr.process(req)
			case <-tr.closeChan:
				// Ack close
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Process a work request. Queued updates are always committed before
// any block work touches the tracer state.
func (tr *Tracer) process(req workRequest) error {
	start := time.Now()
	committed, err := tr.commitUpdates()
	if err != nil {
		return err
	}
	if committed {
		tr.stats.UpdateTime = time.Since(start)
	}

	switch req.kind {
	case workTrace:
		return tr.traceBlock(req.blockReq)
	case workSync:
		return tr.syncBlock(req.blockReq)
	}
	return nil
}

// Commit queued changes.
func (tr *Tracer) commitUpdates() (bool, error) {
	tr.Lock()
	defer tr.Unlock()

	if len(tr.updateBuffer) == 0 {
		return false, nil
	}

	for updateType, data := range tr.updateBuffer {
		switch updateType {
		case tracer.FrameDimensions:
			dims, ok := data.([2]uint32)
			if !ok {
				return true, fmt.Errorf("%w: FrameDimensions expects a [2]uint32 payload", ErrInvalidUpdateData)
			}
			tr.frameW, tr.frameH = dims[0], dims[1]
			tr.buffers.Resize(dims[0], dims[1])
		case tracer.OutputBuffers:
			output, ok := data.(*tracer.Output)
			if !ok {
				return true, fmt.Errorf("%w: OutputBuffers expects a *tracer.Output payload", ErrInvalidUpdateData)
			}
			tr.output = output
		case tracer.SceneData:
			sceneData, ok := data.(*scene.PackedScene)
			if !ok {
				return true, fmt.Errorf("%w: SceneData expects a *scene.PackedScene payload", ErrInvalidUpdateData)
			}
			tr.sceneData = sceneData
		case tracer.LensingData:
			holes, ok := data.([]scene.BlackHole)
			if !ok {
				return true, fmt.Errorf("%w: LensingData expects a []scene.BlackHole payload", ErrInvalidUpdateData)
			}
			tr.holes = holes
		case tracer.CameraData:
			camera, ok := data.(*scene.Camera)
			if !ok {
				return true, fmt.Errorf("%w: CameraData expects a *scene.Camera payload", ErrInvalidUpdateData)
			}
			tr.cameraPosition = camera.Position
			tr.cameraFrustrum = camera.Frustrum
		case tracer.SettingsData:
			settings, ok := data.(profile.Settings)
			if !ok {
				return true, fmt.Errorf("%w: SettingsData expects a profile.Settings payload", ErrInvalidUpdateData)
			}
			settings.Clamp()
			tr.settings = settings
		default:
			return true, fmt.Errorf("cpu tracer: unsupported update type %d", updateType)
		}
	}

	tr.updateBuffer = make(map[tracer.UpdateType]interface{})
	return true, nil
}

// Render a block.
func (tr *Tracer) traceBlock(blockReq *tracer.BlockRequest) error {
	if tr.sceneData == nil {
		return ErrNoSceneData
	}
	if tr.output == nil {
		return ErrNoOutputBuffers
	}
	if blockReq.FrameW != tr.frameW || blockReq.FrameH != tr.frameH {
		return fmt.Errorf("cpu tracer: block request frame %dx%d does not match committed frame %dx%d",
			blockReq.FrameW, blockReq.FrameH, tr.frameW, tr.frameH)
	}

	start := time.Now()

	if blockReq.AccumulatedSamples == 0 && tr.pipeline.Reset != nil {
		if _, err := tr.pipeline.Reset(tr, blockReq); err != nil {
			return err
		}
	}

	samples := blockReq.SamplesPerPixel
	if samples == 0 {
		samples = 1
	}
	for pass := uint32(0); pass < samples; pass++ {
		tr.samplePass = pass
		if tr.pipeline.PrimaryRayGenerator != nil {
			if _, err := tr.pipeline.PrimaryRayGenerator(tr, blockReq); err != nil {
				return err
			}
		}
		if tr.pipeline.Integrator != nil {
			if _, err := tr.pipeline.Integrator(tr, blockReq); err != nil {
				return err
			}
		}
	}

	tr.stats.BlockW = blockReq.BlockW
	tr.stats.BlockH = blockReq.BlockH
	tr.stats.RenderTime = time.Since(start)
	return nil
}

// Run the post-process stages for a block.
func (tr *Tracer) syncBlock(blockReq *tracer.BlockRequest) error {
	if tr.output == nil {
		return ErrNoOutputBuffers
	}

	for _, stage := range tr.pipeline.PostProcess {
		if _, err := stage(tr, blockReq); err != nil {
			return err
		}
	}
	return nil
}

// Run a per-row kernel over the block rows, fanning the rows out to
// the kernel goroutine pool. Rows are claimed dynamically so rows that
// integrate close to a hole do not stall the rest of the pool.
func (tr *Tracer) forEachRow(blockReq *tracer.BlockRequest, kernel func(y uint32)) {
	workers := tr.numWorkers
	if workers > int(blockReq.BlockH) {
		workers = int(blockReq.BlockH)
	}
	if workers <= 1 {
		for y := uint32(0); y < blockReq.BlockH; y++ {
			kernel(blockReq.BlockY + y)
		}
		return
	}

	var next uint32
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				row := atomic.AddUint32(&next, 1) - 1
				if row >= blockReq.BlockH {
					return
				}
				kernel(blockReq.BlockY + row)
			}
		}()
	}
	wg.Wait()
}
