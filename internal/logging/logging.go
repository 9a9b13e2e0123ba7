// Package logging provides the engine's structured logger. It keeps
// the same call shape the rest of the code expects (printf-style
// level functions) on top of zerolog, writing to a rotated file under
// the user config directory so a wrapping UI never sees log noise on
// its terminal.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

const maxLogSize = 5 * 1024 * 1024 // 5MB

var (
	mu      sync.Mutex
	logger  = zerolog.New(io.Discard)
	logFile *os.File
)

// Init opens the log file at ~/.config/voyager/voyager.log, rotating
// it once it grows past maxLogSize. Until Init (or InitConsole) is
// called all logging is discarded, which is what tests want.
func Init() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot get home directory: %w", err)
	}

	logDir := filepath.Join(homeDir, ".config", "voyager")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("cannot create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "voyager.log")

	// Rotate by renaming to .old once the file is too large
	if info, err := os.Stat(logPath); err == nil && info.Size() > maxLogSize {
		oldPath := logPath + ".old"
		os.Remove(oldPath)
		os.Rename(logPath, oldPath)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	logFile = file
	logger = zerolog.New(file).With().Timestamp().Logger()
	return nil
}

// InitConsole routes logs to stderr with human-readable formatting,
// used by the CLI driver.
func InitConsole(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Close closes the log file if one is open.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logger = zerolog.New(io.Discard)
}

// Error logs an error message.
func Error(format string, args ...any) {
	current().Error().Msgf(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	current().Warn().Msgf(format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	current().Info().Msgf(format, args...)
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	current().Debug().Msgf(format, args...)
}

func current() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	l := logger
	return &l
}
