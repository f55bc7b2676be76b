package cmd

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/achilleasa/gargantua/renderer"
	"github.com/achilleasa/gargantua/tracer"
	"github.com/achilleasa/gargantua/tracer/cpu"
)

// Render a still frame by accumulating a fixed number of progressive passes.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	settings, err := settingsFromFlags(ctx)
	if err != nil {
		return err
	}

	sc, err := sceneFromFlags(ctx)
	if err != nil {
		return err
	}

	// Setup tracing pipeline
	pipeline := cpu.DefaultPipeline()
	if debugFile := ctx.String("debug-out"); debugFile != "" {
		pipeline.PostProcess = append(pipeline.PostProcess, cpu.DebugFrameBuffer(debugFile))
	}

	// Create renderer
	r, err := renderer.NewDefault(sc, tracer.NaiveScheduler(), pipeline, optionsFromFlags(ctx, settings))
	if err != nil {
		return err
	}
	defer r.Close()

	numPasses := uint32(ctx.Int("frames"))
	if numPasses == 0 {
		numPasses = 1
	}

	// An interrupt stops accumulating at the next pass boundary; the
	// samples blended so far still resolve into the output file.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	logger.Noticef("rendering %d passes at %d rays per pixel", numPasses, settings.RaysPerPixel)
	start := time.Now()

	var renderErr error
renderLoop:
	for pass := uint32(0); pass < numPasses; pass++ {
		select {
		case <-sigChan:
			logger.Warning("interrupted; resolving partially accumulated frame")
			renderErr = renderer.ErrInterrupted
			break renderLoop
		default:
		}

		if err = r.Render(); err != nil {
			return err
		}
	}
	logger.Noticef("accumulated %d samples per pixel in %s", r.Stats().AccumulatedSamples, time.Since(start))

	// Export PNG
	imgFile := ctx.String("out")
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if err = png.Encode(f, r.Frame()); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", imgFile)

	// Display stats
	displayFrameStats(r.Stats())

	return renderErr
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Block height", "% of frame", "Render time", "Update time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%s", stat.RenderTime),
			fmt.Sprintf("%s", stat.UpdateTime),
		})
	}
	table.SetFooter([]string{"", "", "", "TOTAL", fmt.Sprintf("%s", stats.RenderTime)})

	table.Render()
	logger.Noticef("last pass statistics\n%s", buf.String())
}
