// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging constructs the process logger.
//
// Built on the standard library slog package. Output goes to stderr
// following Unix CLI conventions: human-readable text when stderr is a
// terminal, JSON otherwise so aggregators get structured records without
// any flag juggling.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Config configures the process logger. The zero value yields an
// info-level logger with format auto-detected from the terminal.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", or "error".
	// Unrecognized values fall back to info.
	Level string

	// Service is attached to every record as the "service" attribute.
	Service string

	// JSON forces JSON output even on a terminal.
	JSON bool
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger from the config.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.JSON || !isatty.IsTerminal(os.Stderr.Fd()) {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With(slog.String("service", cfg.Service))
	}
	return logger
}
