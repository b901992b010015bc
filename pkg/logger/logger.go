package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how the logger is built.
type Options struct {
	Service string
	Level   string
	// Format is "json" (default) or "console".
	Format string
}

// NewLogger creates a new structured logger with the given service name and log level
func NewLogger(serviceName, logLevel string) *zap.Logger {
	return New(Options{Service: serviceName, Level: logLevel})
}

// New builds a zap logger from opts. It panics if zap cannot build the sink,
// which only happens on a broken stderr.
func New(opts Options) *zap.Logger {
	config := zap.NewProductionConfig()
	if strings.EqualFold(opts.Format, "console") {
		config.Encoding = "console"
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level))

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.CallerKey = "caller"

	if opts.Service != "" {
		config.InitialFields = map[string]interface{}{
			"service": opts.Service,
		}
	}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		panic(err)
	}

	return logger
}

// ForRun scopes a logger to a single invocation of one run mode.
func ForRun(log *zap.Logger, mode, runID string) *zap.Logger {
	return log.With(zap.String("mode", mode), zap.String("run_id", runID))
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
