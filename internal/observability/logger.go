// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability builds the structured logger shared by all pipeline
// stages. Human-readable progress lines still go to each stage's io.Writer;
// the zerolog stream carries the per-record, per-attempt audit trail.
package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig contains logger options.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string

	// Console enables a pretty console writer on stderr in addition to the
	// JSON file stream.
	Console bool

	// LogDir is the directory for per-run JSON log files. Empty disables
	// the file stream.
	LogDir string

	// RunID tags every entry with the pipeline run identifier.
	RunID string
}

// NewLogger creates the pipeline logger. When LogDir is set, a JSON log file
// named run-<timestamp>.log is created there; the returned closer releases
// it. The closer is never nil.
func NewLogger(cfg LoggingConfig) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	closer := io.Closer(nopCloser{})

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("creating log directory: %w", err)
		}
		name := fmt.Sprintf("run-%s.log", time.Now().UTC().Format("20060102-150405"))
		f, err := os.OpenFile(filepath.Join(cfg.LogDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger().
		Level(parseLevel(cfg.Level))

	if cfg.RunID != "" {
		logger = logger.With().Str("run_id", cfg.RunID).Logger()
	}

	return logger, closer, nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
