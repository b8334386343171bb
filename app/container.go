package app

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/becco1sar/blank-slots/capture"
	"github.com/becco1sar/blank-slots/config"
	"github.com/becco1sar/blank-slots/domain/blank"
	"github.com/becco1sar/blank-slots/sink"
)

// Container assembles the sampler, sinks and scheduler for the daemon.
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Sampler  *capture.ScreenSampler
	Recorder sink.Recorder
	Frames   *sink.FrameStore
	App      *App

	closers []io.Closer
}

// BuildContainer constructs all components from config. The durable log file
// is required; syslog and frame persistence are best-effort extras.
func BuildContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	logSink, err := sink.OpenLog(cfg.LogFile)
	if err != nil {
		// /var/log is commonly unwritable for non-root runs; fall back to
		// the user state directory before giving up.
		fallback, ferr := xdg.StateFile(filepath.Join("blankwatch", "blankwatch.log"))
		if ferr != nil {
			return nil, err
		}
		logger.Warn("log file unavailable, using state dir",
			slog.String("path", cfg.LogFile),
			slog.String("fallback", fallback),
			slog.Any("error", err))
		if logSink, err = sink.OpenLog(fallback); err != nil {
			return nil, err
		}
	}
	c.closers = append(c.closers, logSink)

	recorders := []sink.Recorder{logSink}
	if cfg.Syslog {
		if sysSink, err := sink.NewSyslog("blankwatch"); err != nil {
			logger.Warn("syslog unavailable", slog.Any("error", err))
		} else {
			recorders = append(recorders, sysSink)
			c.closers = append(c.closers, sysSink)
		}
	}
	c.Recorder = sink.NewMulti(recorders...)

	if cfg.FramesDir != "" {
		frames, err := sink.NewFrameStore(cfg.FramesDir, cfg.FrameCooldown(), logger)
		if err != nil {
			logger.Warn("frame store unavailable", slog.Any("error", err))
		} else {
			c.Frames = frames
		}
	}

	c.Sampler = capture.NewScreenSampler(cfg.Downscale, cfg.CaptureTimeout(), logger)
	enumerate := func() ([]blank.Region, error) { return capture.Regions(logger) }
	c.App = New(cfg, logger, enumerate, c.Sampler, c.Recorder, c.Frames)
	return c, nil
}

// Close releases the container's sinks.
func (c *Container) Close() {
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && c.Logger != nil {
			c.Logger.Error("sink close failure", slog.Any("error", err))
		}
	}
}
