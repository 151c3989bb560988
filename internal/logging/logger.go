// Package logging configures the zap logger shared by all pipeline stages.
// Logs go to stderr so stage output (chart blocks, report markdown) printed
// to stdout stays machine-readable.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process-wide logger. When verbose is true the level drops
// to Debug and output switches to the human-oriented console encoder.
func New(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Nop returns a logger that discards everything. Components take *zap.Logger
// in their constructors; tests and library callers pass this.
func Nop() *zap.Logger {
	return zap.NewNop()
}
