package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/achilleasa/gargantua/profile"
)

// List the canned device profiles from weakest to strongest class.
func ListProfiles(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Class", "Quality", "Rays/pixel", "Max bounces", "Denoise", "Upscale"})
	for _, class := range profile.Classes() {
		p := profile.ForClass(class)
		table.Append([]string{
			p.Class.String(),
			p.Quality.String(),
			fmt.Sprintf("%d", p.RaysPerPixel),
			fmt.Sprintf("%d", p.MaxBounces),
			fmt.Sprintf("%t", p.Denoise),
			upscaleColumn(p),
		})
	}

	table.Render()
	logger.Noticef("device profiles\n%s", buf.String())
	return nil
}

func upscaleColumn(p profile.Profile) string {
	if p.Upscale == profile.UpscaleNone {
		return "off"
	}
	return fmt.Sprintf("%s 1/%d", p.Upscale, p.UpscaleFactor)
}
