package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a JSON slog.Logger on stdout at level.
func NewLogger(level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}))
}
