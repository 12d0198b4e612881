// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// File additionally writes JSON logs to a rotating file when set.
	File string

	// FileMaxSizeMB is the size at which File is rotated (default: 10).
	FileMaxSizeMB int

	// FileMaxBackups is the number of rotated files kept (default: 3).
	FileMaxBackups int
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:          LevelInfo,
		Pretty:         false,
		Output:         os.Stderr,
		FileMaxSizeMB:  10,
		FileMaxBackups: 3,
	}
}

var (
	fileMu  sync.Mutex
	logFile *lumberjack.Logger
)

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	fileMu.Lock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	if cfg.File != "" {
		logFile = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.FileMaxSizeMB, 10),
			MaxBackups: orDefault(cfg.FileMaxBackups, 3),
		}
		output = zerolog.MultiLevelWriter(output, logFile)
	}
	fileMu.Unlock()

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// Close flushes and closes the log file opened by Setup, if any.
func Close() error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Individual API requests (endpoint, status, request id)
//   - Query bounds sent to the recovery endpoint
//   - Chart render timing, artifact writes
//
// Info: Normal operation events
//   - Successful login
//   - Fetch completion (pages, records, duration)
//   - Table size, output location
//
// Warn: Warning conditions that don't prevent operation
//   - Page fetch failed (records discarded)
//   - Projection failures before they are returned
//   - Metrics textfile could not be written
//
// Error: Error conditions requiring attention
//   - Authentication rejected
//   - Run aborted (process exits 1)
//
// Context Fields:
//   - component: emitting package (client, recovery, cmd)
//   - endpoint: API path suffix
//   - status_code: HTTP status code
//   - duration: Request or fetch duration
//   - error_class: Error classification (client, auth, server, network)
//   - request_id: X-Request-ID sent with the request
//   - page, pages, records: pagination progress
