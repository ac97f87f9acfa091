package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/soocke/herbscan/app"
	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/debug"
)

func main() {
	cfgPath := config.DefaultPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		NewLogger(slog.LevelInfo).Error("config load failed", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)
	if cfg.Debug {
		debug.StartGoroutineLogger(5*time.Second, logger)
		debug.StartMemLogger(5*time.Second, logger)
	}

	application := app.NewApp("Herbscan", 820, 760, cfg, cfgPath, logger)
	application.Start()
}
