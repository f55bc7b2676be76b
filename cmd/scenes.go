package cmd

import (
	"bytes"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/achilleasa/gargantua/scene"
)

// List the built-in demo scenes.
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Scene", "Description"})
	for _, name := range scene.DemoSceneNames() {
		table.Append([]string{name, scene.DemoSceneDescription(name)})
	}

	table.Render()
	logger.Noticef("built-in scenes\n%s", buf.String())
	return nil
}
