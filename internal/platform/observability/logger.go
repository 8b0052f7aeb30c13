package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trailaccess/trailguide/internal/platform/requestctx"
)

const defaultLogLevel = "info"

// NewLogger constructs a zap logger emitting structured JSON. The level is read from
// LOG_LEVEL and defaults to info.
func NewLogger() (*zap.Logger, error) {
	return NewLoggerWithLevel(os.Getenv("LOG_LEVEL"))
}

// NewLoggerWithLevel constructs the JSON logger using an explicit level name.
func NewLoggerWithLevel(levelName string) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(levelName)))); err != nil || strings.TrimSpace(levelName) == "" {
		_ = level.UnmarshalText([]byte(defaultLogLevel))
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		TimeKey:    "timestamp",
		LevelKey:   "severity",
		NameKey:    "logger",
		EncodeTime: zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(level.String()))
		},
		EncodeDuration: zapcore.StringDurationEncoder,
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cfg := zap.Config{
		Level:             level,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     false,
		DisableStacktrace: true,
	}

	return cfg.Build()
}

// WithLogger injects the logger into the provided context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return requestctx.WithLogger(ctx, logger)
}

// FromContext retrieves the logger from context, defaulting to a no-op logger. The session
// identifier is attached when the context carries one.
func FromContext(ctx context.Context) *zap.Logger {
	logger := requestctx.Logger(ctx)
	if id := requestctx.SessionID(ctx); id != "" {
		logger = logger.With(zap.String("session_id", id))
	}
	return logger
}
