// Package common holds shared service plumbing: logger setup and
// build version information.
package common

import (
	"log/slog"
	"os"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// LoggingOpts configures the service logger.
type LoggingOpts struct {
	// Debug enables debug level logging.
	Debug bool

	// JSON switches the output to JSON format.
	JSON bool

	// Service is added as a tag to all log lines.
	Service string

	// Version is added as a tag to all log lines.
	Version string
}

// SetupLogger creates an slog logger according to opts and writes to
// stdout.
func SetupLogger(opts *LoggingOpts) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	if opts.Version != "" {
		logger = logger.With("version", opts.Version)
	}
	return logger
}
