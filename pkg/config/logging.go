package config

import (
	"log/slog"
	"os"
)

// InitLogging installs the process-wide slog default logger. Production
// deployments get structured JSON; set LOG_FORMAT=text for readable local
// development output.
func InitLogging(service string) {
	level := slog.LevelInfo
	if getEnv("LOG_LEVEL", "") == "debug" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if getEnv("LOG_FORMAT", "json") == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler).With("service", service))
}
