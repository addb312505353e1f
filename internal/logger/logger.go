package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the encoder and verbosity of the process logger.
type Options struct {
	JSON  bool
	Debug bool
	// Component is attached to every entry when set, e.g. "api" or "worker".
	Component string
}

func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if opts.JSON {
		encoding = "json"
	}

	if opts.Debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	if opts.Component != "" {
		logger = logger.With(zap.String(FieldComponent, opts.Component))
	}

	return logger, nil
}
