// Package logging wires zap into the pipeline driver and stages, replacing
// the elapsed-time-prefixed stderr reporter the engine was seeded with.
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for CLI use: human-readable console output, Info
// level by default, Debug when verbose is requested.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = "" // the StageTimer records elapsed time itself
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

// StageTimer reports one summary line per stage, carrying the stage's
// elapsed duration as a structured "elapsed" field where the engine's
// original progress reporter prefixed a formatted message.
type StageTimer struct {
	logger *zap.Logger
	start  time.Time
}

// NewStageTimer starts timing a stage under a logger already scoped with
// zap.String("stage", name).
func NewStageTimer(logger *zap.Logger) *StageTimer {
	return &StageTimer{logger: logger, start: time.Now()}
}

// Done logs the stage summary with its elapsed duration and arbitrary
// caller-supplied fields (counts, resolution-level breakdowns).
func (t *StageTimer) Done(msg string, fields ...zap.Field) {
	fields = append(fields, zap.Duration("elapsed", time.Since(t.start)))
	t.logger.Info(msg, fields...)
}

// Recoverable logs a recovered error (ParseError, SymbolResolutionError,
// RangeMismatchError, TypeGraphCycleError) at debug level with file/line
// context, per the propagation policy: continue the stage, don't abort.
func Recoverable(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	logger.Debug(msg, fields...)
}
