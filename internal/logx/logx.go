// Package logx provides the contextual logger every operation takes as an
// explicit argument, replacing runtime monkey-patched/decorator-injected
// logging (spec §9) with a zerolog.Logger threaded through call sites the
// way the teacher's utils/logger package does.
package logx

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

var loggerKey = ctxKey{}

// New builds the process-wide base logger at the given level.
func New(level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).With().Timestamp().Caller().Logger().Level(level)
}

// WithContext attaches logger to ctx for later retrieval by FromContext.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a disabled logger if
// none was attached — callers never need a nil check.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
			return logger
		}
	}
	return zerolog.Nop()
}

// WithJob returns a child context/logger pair scoped to a scheduler job
// run, so every log line inside that job carries job name and run id.
func WithJob(ctx context.Context, job, runID string) (context.Context, zerolog.Logger) {
	logger := FromContext(ctx).With().Str("job", job).Str("run_id", runID).Logger()
	return WithContext(ctx, logger), logger
}
