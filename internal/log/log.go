// Package log provides structured logging for autoframe.
// It wraps slog with defaults suitable for a long-running capture daemon.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *slog.Logger
	mu     sync.Mutex
)

// Options controls logger initialization.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Unknown values mean info.
	Level string

	// File, when set, sends output to a rotating log file instead of stdout.
	File string

	// JSON selects the JSON handler. GO_ENV=production also selects it.
	JSON bool
}

// Init (re)initializes the global logger.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	if opts.JSON || os.Getenv("GO_ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(out, handlerOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(out, handlerOpts))
	}

	slog.SetDefault(logger)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the global logger instance.
func L() *slog.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		Init(Options{Level: "info"})
		return L()
	}
	return l
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
