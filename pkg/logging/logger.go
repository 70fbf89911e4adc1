// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for the smartchat CLI.
//
// Built on the standard library slog package with two destinations:
// stderr (always, following Unix conventions so command output on
// stdout stays pipeable) and an optional JSON log file per service per
// day. A zero-value Config logs to stderr at Info level.
//
// This package does NOT automatically redact sensitive data; callers
// must keep tokens and PII out of log attributes.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
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

func (l Level) toSlogLevel() slog.Level {
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

// ParseLevel reads a level name, case-sensitively matching the String
// forms; unknown names default to Info.
func ParseLevel(name string) Level {
	switch name {
	case "DEBUG", "debug":
		return LevelDebug
	case "WARN", "warn":
		return LevelWarn
	case "ERROR", "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config configures a Logger. The zero value logs to stderr at Info.
type Config struct {
	Level Level

	// LogDir enables file logging when non-empty. Supports a leading ~
	// for the home directory; created with 0700 if missing. Files are
	// named {service}_{date}.log and written as JSON lines.
	LogDir string

	// Service names the component writing the log, used in file names
	// and attached as a "service" attribute.
	Service string

	// Stderr overrides the terminal destination. Nil means os.Stderr;
	// tests pass a buffer.
	Stderr io.Writer
}

// Logger is a thin wrapper over slog with an optional file secondary
// destination. Safe for concurrent use; Close flushes and closes the
// file, after which the logger keeps working stderr-only.
type Logger struct {
	slogger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// Default returns a stderr-only Info-level logger.
func Default() *Logger {
	return New(Config{})
}

// New builds a logger from the config. A file that cannot be opened is
// reported on stderr and skipped rather than failing the command.
func New(cfg Config) *Logger {
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	if cfg.Service == "" {
		cfg.Service = "smartchat"
	}

	var file *os.File
	writer := stderr
	if cfg.LogDir != "" {
		f, err := openLogFile(cfg.LogDir, cfg.Service)
		if err != nil {
			fmt.Fprintf(stderr, "logging: file output disabled: %v\n", err)
		} else {
			file = f
			writer = io.MultiWriter(stderr, f)
		}
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: cfg.Level.toSlogLevel(),
	})
	return &Logger{
		slogger: slog.New(handler).With("service", cfg.Service),
		file:    file,
	}
}

// openLogFile opens (appending) today's log file under dir, expanding
// a leading ~ and creating the directory if needed.
func openLogFile(dir, service string) (*os.File, error) {
	if len(dir) > 0 && dir[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot expand ~ in log dir: %w", err)
		}
		dir = filepath.Join(home, dir[1:])
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create log dir %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file: %w", err)
	}
	return f, nil
}

func (l *Logger) Debug(msg string, args ...any) { l.slogger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slogger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slogger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slogger.Error(msg, args...) }

// With returns a logger carrying the given attributes on every record.
// The derived logger shares the parent's file handle.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slogger: l.slogger.With(args...), file: l.file}
}

// Close syncs and closes the log file, if any. Safe to call multiple
// times and on stderr-only loggers.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
