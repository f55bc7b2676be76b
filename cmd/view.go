package cmd

import (
	"github.com/urfave/cli"

	"github.com/achilleasa/gargantua/renderer"
	"github.com/achilleasa/gargantua/tracer"
	"github.com/achilleasa/gargantua/tracer/cpu"
)

// Open an interactive opengl view of the scene. The view keeps refining
// the frame until the camera moves and exits when the window closes.
func RenderInteractive(ctx *cli.Context) error {
	setupLogging(ctx)

	settings, err := settingsFromFlags(ctx)
	if err != nil {
		return err
	}

	sc, err := sceneFromFlags(ctx)
	if err != nil {
		return err
	}

	r, err := renderer.NewInteractive(sc, tracer.PerfectScheduler(), cpu.DefaultPipeline(), optionsFromFlags(ctx, settings))
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Render()
}
