// Package logging builds the zap loggers used across agentops-go.
//
// Two output modes mirror how the toolkit is run: structured logs for
// supervised deployments, and a plain console mirror for direct CLI use
// (errors routed to stderr, everything else to stdout).
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string

	// JSON selects the production JSON encoder instead of the console encoder.
	JSON bool

	// MirrorStdout additionally writes human-readable lines to stdout,
	// with warn and above going to stderr.
	MirrorStdout bool
}

// New creates a logger from the given configuration.
func New(cfg Config) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.JSON {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(devCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	if cfg.MirrorStdout {
		mirrorCfg := zap.NewDevelopmentEncoderConfig()
		mirrorCfg.TimeKey = ""
		mirrorCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		mirror := zapcore.NewConsoleEncoder(mirrorCfg)

		belowWarn := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= level.Level() && l < zapcore.WarnLevel
		})
		warnAndUp := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= level.Level() && l >= zapcore.WarnLevel
		})

		cores = append(cores,
			zapcore.NewCore(mirror, zapcore.Lock(os.Stdout), belowWarn),
			zapcore.NewCore(mirror, zapcore.Lock(os.Stderr), warnAndUp),
		)
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// Nop returns a no-op logger for tests and optional dependencies.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// KV builds zap fields from alternating key/value pairs. Keys must be
// strings; a trailing key without a value is dropped.
func KV(pairs ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, pairs[i+1]))
	}
	return fields
}

func parseLevel(s string) zap.AtomicLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn", "warning":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}
