// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging builds the slog logger shared by the jsdoc-closure
// commands.
//
// Output always goes to stderr so rewritten sources and diffs can be
// piped from stdout. Stderr gets human-readable text when it is a
// terminal and JSON otherwise. With LogDir set, every record is also
// appended as JSON to "{service}_{date}.log" in that directory.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{Level: logging.LevelInfo, Service: "cli"})
//	defer logger.Close()
//	slog.SetDefault(logger.Slog())
//
// # Thread Safety
//
// Logger is safe for concurrent use.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for recoverable problems.
	LevelWarn

	// LevelError is for failed operations.
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts "debug", "info", "warn"/"warning" or "error".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Config configures a Logger. The zero value logs Info and above to
// stderr.
type Config struct {
	// Level is the minimum level written.
	Level Level

	// LogDir enables the JSON file log. "~" expands to the home directory.
	LogDir string

	// Service is attached to every record as "service".
	Service string

	// JSON forces JSON on stderr even on a terminal.
	JSON bool

	// Quiet disables stderr output.
	Quiet bool

	// Writer replaces stderr. Format detection treats it as a
	// non-terminal.
	Writer io.Writer
}

// Logger is a slog.Logger with an optional file destination.
type Logger struct {
	slog *slog.Logger
	file *os.File
	mu   sync.Mutex
}

// New creates a Logger. A log directory that cannot be created or opened
// is reported on stderr and file logging is skipped.
func New(cfg Config) *Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}
	logger := &Logger{}

	var handlers []slog.Handler
	if !cfg.Quiet {
		w, terminal := cfg.Writer, false
		if w == nil {
			w = os.Stderr
			fd := os.Stderr.Fd()
			terminal = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		}
		if cfg.JSON || !terminal {
			handlers = append(handlers, slog.NewJSONHandler(w, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, opts))
		}
	}

	if cfg.LogDir != "" {
		file, err := openLogFile(cfg.LogDir, cfg.Service)
		if err != nil {
			fmt.Fprintf(os.Stderr, "file logging disabled: %v\n", err)
		} else {
			logger.file = file
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}
	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	logger.slog = slog.New(handler)
	return logger
}

func openLogFile(dir, service string) (*os.File, error) {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if service == "" {
		service = "jsdoc-closure"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
}

// With returns a child logger sharing the file.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), file: l.file}
}

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Debug logs at Debug level.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at Info level.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at Warn level.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at Error level.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Close syncs and closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log file: %w", err)
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// multiHandler fans records out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// expandPath expands a leading "~" to the home directory.
func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
