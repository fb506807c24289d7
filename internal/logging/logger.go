// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a level name to a pterm log level.
func ParseLevel(name string) (pterm.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return pterm.LogLevelTrace, nil
	case "debug":
		return pterm.LogLevelDebug, nil
	case "", "info":
		return pterm.LogLevelInfo, nil
	case "warn", "warning":
		return pterm.LogLevelWarn, nil
	case "error":
		return pterm.LogLevelError, nil
	case "off", "disabled", "none":
		return pterm.LogLevelDisabled, nil
	default:
		return pterm.LogLevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// New builds the CLI logger. Without a file it writes colorful lines to stderr;
// with a file it writes JSON lines to a size-rotated log. The returned closer must
// be called before exit and is never nil.
func New(level, file string) (*pterm.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nopCloser{}, err
	}

	if file == "" {
		return pterm.DefaultLogger.WithLevel(lvl).WithWriter(os.Stderr), nopCloser{}, nil
	}

	rotated := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	logger := pterm.DefaultLogger.
		WithLevel(lvl).
		WithWriter(rotated).
		WithFormatter(pterm.LogFormatterJSON)
	return logger, rotated, nil
}

// Discard returns a logger that drops everything, for tests and library callers.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled).WithWriter(io.Discard)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
