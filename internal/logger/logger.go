// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatColor = "color"
)

// Logger is a thin wrapper around slog.Logger so that packages can share a single logger type.
type Logger struct {
	*slog.Logger
}

// New returns a text logger writing to stderr with the given level.
func New(level slog.Level) *Logger {
	return NewLogger(level, os.Stderr)
}

// NewLogger returns a text logger writing to the given io.Writer.
func NewLogger(level slog.Level, output io.Writer) *Logger {
	return &Logger{slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))}
}

// NewWithFormat returns a logger for the given output format. Unknown formats fall back to text.
func NewWithFormat(level slog.Level, format string, output io.Writer) *Logger {
	switch strings.ToLower(format) {
	case FormatJSON:
		return &Logger{slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level}))}
	case FormatColor:
		return &Logger{slog.New(tint.NewHandler(output, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))}
	default:
		return NewLogger(level, output)
	}
}

// With returns a Logger that includes the given attributes in each output.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// Err returns a slog attribute for the given error.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
