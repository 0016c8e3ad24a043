// Package logging wires zap to the .rolegate/logs directory so users can
// inspect failed runs after the terminal session is gone.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rolegate/internal/config"
)

// Options tune logger construction.
type Options struct {
	// Verbose lowers the console level to debug.
	Verbose bool
	// ConsoleOnly skips the file sink (used by tests and the TUI, which
	// renders its own log view).
	ConsoleOnly bool
}

// New creates a logger for the current project directory. The file sink
// always records debug and above; the console stays at info unless verbose.
func New(projectDir string, opts Options) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleLevel := zapcore.InfoLevel
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		consoleLevel,
	)

	if opts.ConsoleOnly {
		return zap.New(consoleCore), nil
	}

	logDir := filepath.Join(projectDir, config.WorkspaceDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "rolegate.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(f),
		zapcore.DebugLevel,
	)

	return zap.New(zapcore.NewTee(consoleCore, fileCore)), nil
}

// Nop returns a logger that discards everything. Handy default for library
// entry points that accept an optional logger.
func Nop() *zap.Logger {
	return zap.NewNop()
}
