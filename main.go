package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/achilleasa/gargantua/cmd"
)

// Flags shared by every command that drives a renderer.
func renderFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 1024,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 576,
			Usage: "frame height",
		},
		cli.StringFlag{
			Name:  "scene",
			Value: "gargantua",
			Usage: "demo scene to render (see the scenes command)",
		},
		cli.StringFlag{
			Name:  "mesh",
			Usage: "wavefront obj file or url with extra geometry to merge into the scene",
		},
		cli.StringFlag{
			Name:  "profile",
			Usage: "apply a device profile: auto, handheld, laptop, desktop or workstation",
		},
		cli.StringFlag{
			Name:  "quality",
			Usage: "lensing quality preset: low, medium, high or ultra",
		},
		cli.IntFlag{
			Name:  "spp",
			Value: 1,
			Usage: "rays per pixel per pass",
		},
		cli.IntFlag{
			Name:  "bounces",
			Value: 1,
			Usage: "bounce budget for reflected rays",
		},
		cli.Float64Flag{
			Name:  "exposure",
			Value: 1.2,
			Usage: "camera exposure for tone-mapping",
		},
		cli.BoolFlag{
			Name:  "denoise",
			Usage: "run the edge-preserving denoise filter",
		},
		cli.StringFlag{
			Name:  "upscale",
			Value: "none",
			Usage: "upscale method: none, nearest, bilinear or catmull-rom",
		},
		cli.IntFlag{
			Name:  "upscale-factor",
			Value: 2,
			Usage: "render at 1/N resolution when upscaling",
		},
		cli.IntFlag{
			Name:  "tracers",
			Usage: "number of tracers to attach; 0 attaches a single tracer owning every core",
		},
	}
	return append(flags, extra...)
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "gargantua"
	app.Usage = "render gravitationally lensed views of black holes"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a still frame",
			Description: `
Render a still frame by accumulating a number of progressive passes and
resolve it to a png file. Rays are marched through the curved spacetime
around every black hole in the scene; more passes reduce sampling noise.

An interrupt stops the accumulation at the next pass boundary and the
partially refined frame is still written out.`,
			Flags: renderFlags(
				cli.IntFlag{
					Name:  "frames",
					Value: 64,
					Usage: "number of passes to accumulate",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
				cli.StringFlag{
					Name:  "debug-out",
					Usage: "dump the framebuffer to this file after every block sync",
				},
			),
			Action: cmd.RenderFrame,
		},
		{
			Name:  "view",
			Usage: "open an interactive opengl view of the scene",
			Description: `
Open a window that continuously refines the rendered frame. Dragging with
the mouse aims the camera, wasd and the arrow keys move it (shift doubles
the speed) and the frame re-accumulates after every move.

Additional bindings: r restarts the accumulation, p cycles the quality
preset, o toggles the analytic overlay shells, tab toggles the tracer
load chart and f12 saves a screenshot.`,
			Flags:  renderFlags(),
			Action: cmd.RenderInteractive,
		},
		{
			Name:  "serve",
			Usage: "serve a progressive render preview over http",
			Description: `
Render passes in the background and expose the refining frame over http:
/ serves an auto-refreshing preview page, /frame.png the latest resolved
frame and /stats per-tracer statistics as json.`,
			Flags: renderFlags(
				cli.StringFlag{
					Name:  "listen",
					Value: "127.0.0.1:8080",
					Usage: "address to serve the preview on",
				},
				cli.IntFlag{
					Name:  "sample-cap",
					Value: 512,
					Usage: "stop refining after this many samples per pixel; 0 refines forever",
				},
			),
			Action: cmd.ServePreview,
		},
		{
			Name:   "scenes",
			Usage:  "list the built-in demo scenes",
			Action: cmd.ListScenes,
		},
		{
			Name:   "profiles",
			Usage:  "list the canned device profiles",
			Action: cmd.ListProfiles,
		},
		{
			Name:   "probe",
			Usage:  "probe the host hardware and report the matching profile",
			Action: cmd.ProbeHost,
		},
	}

	app.Run(os.Args)
}
