package web

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/achilleasa/gargantua/log"
	"github.com/achilleasa/gargantua/renderer"
)

// Server exposes a progressive preview of a running renderer over HTTP:
// an auto-refreshing index page, the latest resolved frame as PNG and a
// JSON statistics endpoint. The server only reads renderer snapshots;
// the render loop is driven by the caller.
type Server struct {
	logger   log.Logger
	renderer renderer.Renderer
	echo     *echo.Echo
	addr     string
}

// NewServer creates a preview server for the given renderer.
func NewServer(r renderer.Renderer, addr string) *Server {
	s := &Server{
		logger:   log.New("web"),
		renderer: r,
		addr:     addr,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/", s.handleIndex)
	e.GET("/frame.png", s.handleFrame)
	e.GET("/stats", s.handleStats)

	s.echo = e
	return s
}

// Start serves preview requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Noticef("serving render preview on http://%s", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the preview server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.HTML(http.StatusOK, indexPage)
}

func (s *Server) handleFrame(c echo.Context) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.renderer.Frame()); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, newFrameReport(s.renderer.Stats()))
}

// FrameReport is the JSON shape served by the stats endpoint.
type FrameReport struct {
	AccumulatedSamples uint32         `json:"accumulatedSamples"`
	RenderTimeMs       float64        `json:"renderTimeMs"`
	Tracers            []TracerReport `json:"tracers"`
}

type TracerReport struct {
	Id           string  `json:"id"`
	BlockH       uint32  `json:"blockH"`
	FramePercent float32 `json:"framePercent"`
	RenderTimeMs float64 `json:"renderTimeMs"`
	UpdateTimeMs float64 `json:"updateTimeMs"`
}

func newFrameReport(stats renderer.FrameStats) FrameReport {
	report := FrameReport{
		AccumulatedSamples: stats.AccumulatedSamples,
		RenderTimeMs:       durationMs(stats.RenderTime),
		Tracers:            make([]TracerReport, 0, len(stats.Tracers)),
	}
	for _, trStat := range stats.Tracers {
		report.Tracers = append(report.Tracers, TracerReport{
			Id:           trStat.Id,
			BlockH:       trStat.BlockH,
			FramePercent: trStat.FramePercent,
			RenderTimeMs: durationMs(trStat.RenderTime),
			UpdateTimeMs: durationMs(trStat.UpdateTime),
		})
	}
	return report
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

const indexPage = `<!doctype html>
<html>
<head>
<title>gargantua</title>
<style>
body { margin: 0; background: #000; color: #8fa7ff; font: 12px monospace; }
img { display: block; margin: 0 auto; image-rendering: pixelated; }
#stats { position: fixed; top: 8px; left: 8px; white-space: pre; }
</style>
</head>
<body>
<img id="frame" src="/frame.png">
<div id="stats"></div>
<script>
var frame = document.getElementById('frame');
var stats = document.getElementById('stats');
setInterval(function () {
	frame.src = '/frame.png?' + Date.now();
	fetch('/stats').then(function (res) { return res.json(); }).then(function (report) {
		stats.textContent = 'samples: ' + report.accumulatedSamples +
			'\nframe:   ' + report.renderTimeMs.toFixed(1) + ' ms';
	});
}, 500);
</script>
</body>
</html>
`
