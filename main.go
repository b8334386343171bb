package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/becco1sar/blank-slots/app"
	"github.com/becco1sar/blank-slots/config"
	"github.com/becco1sar/blank-slots/debug"
)

func main() { os.Exit(run()) }

func run() int {
	cfgPath := flag.String("config", config.DefaultPath(), "path to JSON config file")
	debugMode := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Optional .env for the BLANKWATCH_* overrides; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if *debugMode {
		cfg.Debug = true
	}
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := NewLogger(logLevel)
	if err != nil {
		logger.Warn("config load failed, using defaults",
			slog.String("path", *cfgPath), slog.Any("error", err))
	}

	if cfg.Debug {
		debug.StartRuntimeLogger(0, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.BuildContainer(cfg, logger)
	if err != nil {
		logger.Error("startup failure", slog.Any("error", err))
		return 1
	}
	defer c.Close()

	if err := c.App.Run(ctx); err != nil {
		logger.Error("exiting", slog.Any("error", err))
		return 1
	}
	logger.Info("stopped")
	return 0
}
