package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface used across the service.
// The *Obj variants attach an event name and a flat payload map.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)

	DebugObj(msg, event string, data map[string]any)
	InfoObj(msg, event string, data map[string]any)
	WarnObj(msg, event string, data map[string]any)
	ErrorObj(msg, event string, data map[string]any)

	With(fields ...zap.Field) Logger
	Sync() error
}

type zapLogger struct {
	z *zap.Logger
}

// New builds a zap backed Logger. format is "json" (default) or "console".
func New(level, format string) (Logger, error) {
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text", "dev":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &zapLogger{z: z}, nil
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) Logger {
	if z == nil {
		return NopLogger{}
	}
	return &zapLogger{z: z}
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

func (l *zapLogger) DebugObj(msg, event string, data map[string]any) {
	l.z.Debug(msg, objFields(event, data)...)
}

func (l *zapLogger) InfoObj(msg, event string, data map[string]any) {
	l.z.Info(msg, objFields(event, data)...)
}

func (l *zapLogger) WarnObj(msg, event string, data map[string]any) {
	l.z.Warn(msg, objFields(event, data)...)
}

func (l *zapLogger) ErrorObj(msg, event string, data map[string]any) {
	l.z.Error(msg, objFields(event, data)...)
}

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{z: l.z.With(fields...)}
}

func (l *zapLogger) Sync() error { return l.z.Sync() }

// objFields flattens an event payload into zap fields.
func objFields(event string, data map[string]any) []zap.Field {
	fields := make([]zap.Field, 0, len(data)+1)
	if event != "" {
		fields = append(fields, zap.String("event", event))
	}
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...zap.Field)              {}
func (NopLogger) Info(string, ...zap.Field)               {}
func (NopLogger) Warn(string, ...zap.Field)               {}
func (NopLogger) Error(string, ...zap.Field)              {}
func (NopLogger) DebugObj(string, string, map[string]any) {}
func (NopLogger) InfoObj(string, string, map[string]any)  {}
func (NopLogger) WarnObj(string, string, map[string]any)  {}
func (NopLogger) ErrorObj(string, string, map[string]any) {}
func (n NopLogger) With(...zap.Field) Logger              { return n }
func (NopLogger) Sync() error                             { return nil }

// Ensure returns log, or a NopLogger when log is nil.
func Ensure(log Logger) Logger {
	if log == nil {
		return NopLogger{}
	}
	return log
}
