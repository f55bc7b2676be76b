package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/achilleasa/gargantua/profile"
)

// Probe the host hardware and report the device profile it maps to.
func ProbeHost(ctx *cli.Context) error {
	setupLogging(ctx)

	info := profile.Detect()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"CPU", "Clock", "Cores", "Memory", "Class"})
	table.Append([]string{
		info.CPUModel,
		fmt.Sprintf("%.0f MHz", info.CPUMhz),
		fmt.Sprintf("%d", info.Cores),
		fmt.Sprintf("%d GB", info.MemTotal>>30),
		info.Class.String(),
	})

	table.Render()
	logger.Noticef("host information\n%s", buf.String())

	p := profile.ForClass(info.Class)
	logger.Noticef("selected profile: quality=%s rays/pixel=%d max-bounces=%d denoise=%t upscale=%s",
		p.Quality, p.RaysPerPixel, p.MaxBounces, p.Denoise, upscaleColumn(p))
	return nil
}
