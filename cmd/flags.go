package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"github.com/achilleasa/gargantua/profile"
	"github.com/achilleasa/gargantua/renderer"
	"github.com/achilleasa/gargantua/scene"
	"github.com/achilleasa/gargantua/scene/reader"
	"github.com/achilleasa/gargantua/types"
)

// Build the render settings from the command flags. Settings start at the
// defaults, then the device profile and quality preset apply in that order
// and explicitly passed scalar flags override both.
func settingsFromFlags(ctx *cli.Context) (profile.Settings, error) {
	settings := profile.DefaultSettings()

	if name := ctx.String("profile"); name != "" {
		class, err := deviceClassFromFlag(name)
		if err != nil {
			return settings, err
		}
		profile.ForClass(class).ApplyTo(&settings)
	}

	if name := ctx.String("quality"); name != "" {
		quality, err := profile.ParseQuality(name)
		if err != nil {
			return settings, err
		}
		settings.ApplyQuality(quality)
	}

	if ctx.IsSet("spp") {
		settings.RaysPerPixel = uint32(ctx.Int("spp"))
	}
	if ctx.IsSet("bounces") {
		settings.MaxBounces = uint32(ctx.Int("bounces"))
	}
	if ctx.IsSet("exposure") {
		settings.Exposure = float32(ctx.Float64("exposure"))
	}
	if ctx.IsSet("denoise") {
		settings.Denoise = ctx.Bool("denoise")
	}
	if ctx.IsSet("upscale") || ctx.IsSet("upscale-factor") {
		method, err := profile.ParseUpscaleMethod(ctx.String("upscale"))
		if err != nil {
			return settings, err
		}
		settings.Upscale = method
		settings.UpscaleFactor = uint32(ctx.Int("upscale-factor"))
	}

	settings.Clamp()
	return settings, nil
}

// Resolve the profile flag to a device class. The special value "auto"
// probes the host hardware.
func deviceClassFromFlag(name string) (profile.DeviceClass, error) {
	if strings.ToLower(name) == "auto" {
		info := profile.Detect()
		logger.Noticef("detected host class: %s", info.Class)
		return info.Class, nil
	}
	return profile.ParseDeviceClass(name)
}

// Build the scene selected by the command flags, optionally merging in
// extra geometry from a wavefront obj file.
func sceneFromFlags(ctx *cli.Context) (*scene.Scene, error) {
	sc, err := scene.DemoScene(ctx.String("scene"))
	if err != nil {
		return nil, err
	}

	if pathToMesh := ctx.String("mesh"); pathToMesh != "" {
		if err = importMesh(sc, pathToMesh); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// Load extra geometry from a wavefront obj file or URL and park it between
// the camera and the scene origin so the lensing distorts it.
func importMesh(sc *scene.Scene, pathToMesh string) error {
	mesh, err := reader.ReadMesh(pathToMesh)
	if err != nil {
		return err
	}

	meshIdx, err := sc.AddMesh(mesh)
	if err != nil {
		return err
	}
	matIdx, err := sc.AddMaterial(scene.Material{
		Name:         fmt.Sprintf("import-%s", mesh.Name),
		Albedo:       types.XYZ(0.75, 0.75, 0.78),
		Reflectivity: 0.2,
	})
	if err != nil {
		return err
	}

	ent := sc.CreateEntity()
	if err = sc.SetTransform(ent, scene.NewTransform(types.XYZ(0, 0, 18))); err != nil {
		return err
	}
	return sc.SetMeshInstance(ent, scene.MeshInstance{
		Mesh:      meshIdx,
		Material:  matIdx,
		Raytraced: true,
	})
}

func optionsFromFlags(ctx *cli.Context, settings profile.Settings) renderer.Options {
	return renderer.Options{
		FrameW:     uint32(ctx.Int("width")),
		FrameH:     uint32(ctx.Int("height")),
		Settings:   settings,
		NumTracers: ctx.Int("tracers"),
	}
}
