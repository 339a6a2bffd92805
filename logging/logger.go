// Package logging builds the zap-backed logger the host binary hands to
// the protocol engine and audio adapter.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the narrow structured-logging surface the rest of the client
// depends on, adapted from the corpus's LoggerAdapter shape but trimmed to
// what a headless listener actually emits.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, err error, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
}

type zapLogger struct {
	logger *zap.Logger
}

var _ Logger = (*zapLogger)(nil)

func (l *zapLogger) Info(msg string, fields ...zap.Field) {
	l.logger.Info(msg, fields...)
}

func (l *zapLogger) Error(msg string, err error, fields ...zap.Field) {
	l.logger.Error(msg, append(fields, zap.Error(err))...)
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) {
	l.logger.Debug(msg, fields...)
}

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}

// NewStderr builds a Logger writing human-readable, leveled output to
// stderr, suitable for running the listener interactively.
func NewStderr() (Logger, error) {
	logger, err := zap.NewDevelopment(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &zapLogger{logger: logger}, nil
}

// NewFile builds a Logger writing JSON-encoded records to filename,
// rotated by lumberjack once it passes maxSizeMB.
func NewFile(filename string, maxSizeMB, maxBackups, maxAgeDays int) Logger {
	hook := lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&hook),
		zapcore.DebugLevel,
	)

	return &zapLogger{logger: zap.New(core, zap.AddCallerSkip(1))}
}
