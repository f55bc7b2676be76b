package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli"

	"github.com/achilleasa/gargantua/renderer"
	"github.com/achilleasa/gargantua/tracer"
	"github.com/achilleasa/gargantua/tracer/cpu"
	"github.com/achilleasa/gargantua/web"
)

// Serve a progressive render preview over http. A background goroutine
// keeps accumulating passes while the server exposes the latest resolved
// frame and per-tracer statistics.
func ServePreview(ctx *cli.Context) error {
	setupLogging(ctx)

	settings, err := settingsFromFlags(ctx)
	if err != nil {
		return err
	}
	settings.SampleCap = uint32(ctx.Int("sample-cap"))
	settings.Clamp()

	sc, err := sceneFromFlags(ctx)
	if err != nil {
		return err
	}

	r, err := renderer.NewDefault(sc, tracer.PerfectScheduler(), cpu.DefaultPipeline(), optionsFromFlags(ctx, settings))
	if err != nil {
		return err
	}
	defer r.Close()

	srv := web.NewServer(r, ctx.String("listen"))

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}

			if settings.SampleCap != 0 && r.Stats().AccumulatedSamples >= settings.SampleCap {
				// Capped; idle instead of spinning on no-op passes.
				time.Sleep(250 * time.Millisecond)
				continue
			}

			if err := r.Render(); err != nil {
				if !errors.Is(err, renderer.ErrNoTracers) {
					logger.Errorf("render pass failed: %s", err)
				}
				return
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		logger.Notice("shutting down")
		close(done)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown failed: %s", err)
		}
	}()

	return srv.Start()
}
