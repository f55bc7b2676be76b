package renderer

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/achilleasa/gargantua/profile"
	"github.com/achilleasa/gargantua/scene"
	"github.com/achilleasa/gargantua/tracer"
	"github.com/achilleasa/gargantua/types"
)

// uniformScene returns a hole-free scene under a flat sky so every
// escaped ray shades to exactly the same value.
func uniformScene(value float32) *scene.Scene {
	sc := scene.NewScene()
	sc.Background = scene.Background{
		Top:    types.XYZ(value, value, value),
		Bottom: types.XYZ(value, value, value),
	}

	camera := scene.NewCamera(45)
	camera.Position = types.XYZ(0, 0, 5)
	camera.LookAt = types.XYZ(0, 0, 0)
	sc.SetCamera(camera)
	return sc
}

// geometryScene adds a plane outside the camera frustrum so geometry
// exists without changing the rendered sky.
func geometryScene(value float32) (*scene.Scene, scene.Entity) {
	sc := uniformScene(value)

	mesh, err := sc.AddMesh(scene.NewPlaneMesh("plate", 2))
	if err != nil {
		panic(err)
	}
	ent := sc.CreateEntity()
	if err = sc.SetTransform(ent, scene.NewTransform(types.XYZ(0, -50, 20))); err != nil {
		panic(err)
	}
	err = sc.SetMeshInstance(ent, scene.MeshInstance{
		Mesh:      mesh,
		Material:  scene.MatNone,
		Raytraced: true,
		Albedo:    types.XYZ(0.5, 0.5, 0.5),
	})
	if err != nil {
		panic(err)
	}
	return sc, ent
}

func testSettings(raysPerPixel uint32) profile.Settings {
	settings := profile.DefaultSettings()
	settings.ApplyQuality(profile.Low)
	settings.RaysPerPixel = raysPerPixel
	settings.Denoise = false
	settings.Tonemap = true
	settings.Exposure = 1
	return settings
}

func TestNewDefaultValidation(t *testing.T) {
	type spec struct {
		sc      *scene.Scene
		opts    Options
		wantErr error
	}

	specs := []spec{
		{nil, Options{FrameW: 8, FrameH: 8}, ErrSceneNotDefined},
		{scene.NewScene(), Options{FrameW: 8, FrameH: 8}, ErrCameraNotDefined},
		{uniformScene(0.5), Options{FrameW: 0, FrameH: 8}, ErrInvalidFrameDims},
		{uniformScene(0.5), Options{FrameW: 8, FrameH: 0}, ErrInvalidFrameDims},
	}

	for idx, spec := range specs {
		_, err := NewDefault(spec.sc, tracer.NaiveScheduler(), nil, spec.opts)
		if err != spec.wantErr {
			t.Fatalf("[spec %d] expected error %v; got %v", idx, spec.wantErr, err)
		}
	}
}

func TestRenderAccumulatesUniformSky(t *testing.T) {
	r, err := NewDefault(uniformScene(0.25), tracer.NaiveScheduler(), nil, Options{
		FrameW:   8,
		FrameH:   8,
		Settings: testSettings(2),
	})
	if err != nil {
		t.Fatalf("expected renderer to attach; got %v", err)
	}
	defer r.Close()

	for pass := 0; pass < 3; pass++ {
		if err = r.Render(); err != nil {
			t.Fatalf("[pass %d] expected render to succeed; got %v", pass, err)
		}
	}

	dr := r.(*defaultRenderer)
	if dr.accumulatedSamples != 6 {
		t.Fatalf("expected 6 accumulated samples after 3 passes of 2 rays; got %d", dr.accumulatedSamples)
	}

	acc := dr.output.Accumulator
	for i := 0; i < len(acc); i += 4 {
		for c := 0; c < 3; c++ {
			if math32.Abs(acc[i+c]-0.25) > 1e-5 {
				t.Fatalf("expected accumulator value 0.25 at offset %d; got %f", i+c, acc[i+c])
			}
		}
		if acc[i+3] != 1 {
			t.Fatalf("expected accumulator alpha 1 at offset %d; got %f", i+3, acc[i+3])
		}
	}

	// 0.25 through Reinhard at exposure 1 and gamma resolves to byte 114.
	frame := r.Frame()
	for i := 0; i < len(frame.Pix); i += 4 {
		if frame.Pix[i] != 114 || frame.Pix[i+1] != 114 || frame.Pix[i+2] != 114 {
			t.Fatalf("expected frame byte 114 at offset %d; got %d/%d/%d",
				i, frame.Pix[i], frame.Pix[i+1], frame.Pix[i+2])
		}
		if frame.Pix[i+3] != 255 {
			t.Fatalf("expected opaque alpha at offset %d; got %d", i+3, frame.Pix[i+3])
		}
	}

	stats := r.Stats()
	if stats.AccumulatedSamples != 6 {
		t.Fatalf("expected stats to report 6 accumulated samples; got %d", stats.AccumulatedSamples)
	}
	if len(stats.Tracers) != 1 {
		t.Fatalf("expected stats for 1 tracer; got %d", len(stats.Tracers))
	}
	if stats.Tracers[0].BlockH != 8 {
		t.Fatalf("expected the single tracer to own all 8 rows; got %d", stats.Tracers[0].BlockH)
	}
}

func TestGeometryChangeResetsAccumulation(t *testing.T) {
	sc, ent := geometryScene(0.25)
	r, err := NewDefault(sc, tracer.NaiveScheduler(), nil, Options{
		FrameW:   8,
		FrameH:   8,
		Settings: testSettings(1),
	})
	if err != nil {
		t.Fatalf("expected renderer to attach; got %v", err)
	}
	defer r.Close()

	for pass := 0; pass < 2; pass++ {
		if err = r.Render(); err != nil {
			t.Fatalf("[pass %d] expected render to succeed; got %v", pass, err)
		}
	}

	dr := r.(*defaultRenderer)
	if dr.accumulatedSamples != 2 {
		t.Fatalf("expected 2 accumulated samples; got %d", dr.accumulatedSamples)
	}
	staleHash := dr.packedHash

	if err = sc.SetTransform(ent, scene.NewTransform(types.XYZ(0, -50, 25))); err != nil {
		t.Fatalf("expected transform update to succeed; got %v", err)
	}
	if err = r.Render(); err != nil {
		t.Fatalf("expected render after geometry change to succeed; got %v", err)
	}

	if dr.packedHash == staleHash {
		t.Fatal("expected the content hash to move after a transform change")
	}
	if got := r.Stats().AccumulatedSamples; got != 1 {
		t.Fatalf("expected accumulation to restart at 1 sample; got %d", got)
	}
}

func TestLensingChangeResetsAccumulation(t *testing.T) {
	sc := uniformScene(0.25)
	ent := sc.CreateEntity()
	hole := scene.NewBlackHole(types.XYZ(0, 0, -60), 1.0)
	if err := sc.SetBlackHole(ent, hole); err != nil {
		t.Fatalf("expected black hole attach to succeed; got %v", err)
	}

	r, err := NewDefault(sc, tracer.NaiveScheduler(), nil, Options{
		FrameW:   8,
		FrameH:   8,
		Settings: testSettings(1),
	})
	if err != nil {
		t.Fatalf("expected renderer to attach; got %v", err)
	}
	defer r.Close()

	for pass := 0; pass < 2; pass++ {
		if err = r.Render(); err != nil {
			t.Fatalf("[pass %d] expected render to succeed; got %v", pass, err)
		}
	}
	if got := r.Stats().AccumulatedSamples; got != 2 {
		t.Fatalf("expected 2 accumulated samples; got %d", got)
	}

	hole.Mass = 1.2
	if err = sc.SetBlackHole(ent, hole); err != nil {
		t.Fatalf("expected black hole update to succeed; got %v", err)
	}
	if err = r.Render(); err != nil {
		t.Fatalf("expected render after lensing change to succeed; got %v", err)
	}
	if got := r.Stats().AccumulatedSamples; got != 1 {
		t.Fatalf("expected accumulation to restart at 1 sample; got %d", got)
	}
}

func TestSampleCapStopsRendering(t *testing.T) {
	settings := testSettings(1)
	settings.SampleCap = 2

	r, err := NewDefault(uniformScene(0.5), tracer.NaiveScheduler(), nil, Options{
		FrameW:   8,
		FrameH:   8,
		Settings: settings,
	})
	if err != nil {
		t.Fatalf("expected renderer to attach; got %v", err)
	}
	defer r.Close()

	for pass := 0; pass < 4; pass++ {
		if err = r.Render(); err != nil {
			t.Fatalf("[pass %d] expected render to succeed; got %v", pass, err)
		}
	}

	dr := r.(*defaultRenderer)
	if dr.accumulatedSamples != 2 {
		t.Fatalf("expected accumulation to stop at the 2 sample cap; got %d", dr.accumulatedSamples)
	}
	if dr.frameCount != 2 {
		t.Fatalf("expected only 2 traced passes; got %d", dr.frameCount)
	}
}

func TestRenderAfterCloseFails(t *testing.T) {
	r, err := NewDefault(uniformScene(0.5), tracer.NaiveScheduler(), nil, Options{
		FrameW:   8,
		FrameH:   8,
		Settings: testSettings(1),
	})
	if err != nil {
		t.Fatalf("expected renderer to attach; got %v", err)
	}

	r.Close()
	if err = r.Render(); err != ErrNoTracers {
		t.Fatalf("expected %v after close; got %v", ErrNoTracers, err)
	}
}

func TestUpscaledFrameKeepsDisplayResolution(t *testing.T) {
	settings := testSettings(1)
	settings.Upscale = profile.UpscaleNearest
	settings.UpscaleFactor = 2

	r, err := NewDefault(uniformScene(0.25), tracer.NaiveScheduler(), nil, Options{
		FrameW:   8,
		FrameH:   8,
		Settings: settings,
	})
	if err != nil {
		t.Fatalf("expected renderer to attach; got %v", err)
	}
	defer r.Close()

	dr := r.(*defaultRenderer)
	if dr.renderW != 4 || dr.renderH != 4 {
		t.Fatalf("expected a 4x4 traced frame for factor 2; got %dx%d", dr.renderW, dr.renderH)
	}

	if err = r.Render(); err != nil {
		t.Fatalf("expected render to succeed; got %v", err)
	}

	frame := r.Frame()
	if frame.Rect.Dx() != 8 || frame.Rect.Dy() != 8 {
		t.Fatalf("expected an 8x8 display frame; got %dx%d", frame.Rect.Dx(), frame.Rect.Dy())
	}
	for i := 0; i < len(frame.Pix); i += 4 {
		if frame.Pix[i] != 114 || frame.Pix[i+3] != 255 {
			t.Fatalf("expected upscaled byte 114 with opaque alpha at offset %d; got %d/%d",
				i, frame.Pix[i], frame.Pix[i+3])
		}
	}
}

func TestMultiTracerBlockCoverage(t *testing.T) {
	r, err := NewDefault(uniformScene(0.25), tracer.NaiveScheduler(), nil, Options{
		FrameW:     8,
		FrameH:     8,
		Settings:   testSettings(1),
		NumTracers: 2,
	})
	if err != nil {
		t.Fatalf("expected renderer to attach; got %v", err)
	}
	defer r.Close()

	if err = r.Render(); err != nil {
		t.Fatalf("expected render to succeed; got %v", err)
	}

	dr := r.(*defaultRenderer)
	if len(dr.tracers) != 2 {
		t.Fatalf("expected 2 attached tracers; got %d", len(dr.tracers))
	}

	var scheduledRows uint32
	for idx, blockH := range dr.blockAssignments {
		if blockH == 0 {
			t.Fatalf("expected tracer %d to receive at least one row", idx)
		}
		scheduledRows += blockH
	}
	if scheduledRows != 8 {
		t.Fatalf("expected block assignments to cover all 8 rows; got %d", scheduledRows)
	}

	// Both blocks traced and resolved: the whole accumulator holds the sky.
	acc := dr.output.Accumulator
	for i := 0; i < len(acc); i += 4 {
		if math32.Abs(acc[i]-0.25) > 1e-5 {
			t.Fatalf("expected accumulator value 0.25 at offset %d; got %f", i, acc[i])
		}
	}

	stats := r.Stats()
	if len(stats.Tracers) != 2 {
		t.Fatalf("expected stats for 2 tracers; got %d", len(stats.Tracers))
	}
	var framePercent float32
	for _, trStat := range stats.Tracers {
		framePercent += trStat.FramePercent
	}
	if math32.Abs(framePercent-100) > 0.01 {
		t.Fatalf("expected frame percentages to sum to 100; got %f", framePercent)
	}
}
