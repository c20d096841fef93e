// Package log builds the zap loggers the blog writes through.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var envLevels = map[string]zapcore.Level{
	"dev":  zapcore.DebugLevel,
	"test": zapcore.WarnLevel,
	"prod": zapcore.InfoLevel,
}

// Level resolves the level for env. A non-empty override wins over the
// environment default.
func Level(env, override string) (zapcore.Level, error) {
	if override != "" {
		lvl, err := zapcore.ParseLevel(override)
		if err != nil {
			return lvl, fmt.Errorf("log level %q: %w", override, err)
		}
		return lvl, nil
	}
	lvl, ok := envLevels[env]
	if !ok {
		return zapcore.InfoLevel, fmt.Errorf("unknown environment %q", env)
	}
	return lvl, nil
}

func config(env string) zap.Config {
	if env == "prod" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	if env == "dev" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		// test: plain levels, no stack traces.
		cfg.DisableStacktrace = true
	}
	return cfg
}

// New returns a logger for env at the level Level picks. Suspension periods
// and timeouts are logged as duration strings.
func New(env, level string) (*zap.Logger, error) {
	lvl, err := Level(env, level)
	if err != nil {
		return nil, err
	}

	cfg := config(env)
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cfg.InitialFields = map[string]any{"service": "blog", "env": env}
	return cfg.Build()
}

func NewSugar(env, level string) (*zap.SugaredLogger, error) {
	logger, err := New(env, level)
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Component names a child logger after the part of the service using it.
func Component(logger *zap.SugaredLogger, name string) *zap.SugaredLogger {
	return logger.Named(name)
}
