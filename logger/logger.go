// Package logger builds the zap loggers used across randvec.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin wrapper that holds both the raw zap.Logger and its
// "Sugared" counterpart for convenience.
type Logger struct {
	*zap.Logger
	*zap.SugaredLogger

	closeFile func()
}

// New creates a logger at the given level writing JSON to stderr, and to
// file as well when file is not empty. Stdout is left to command output.
// Accepted levels (case-insensitive): "debug", "info", "warn", "error".
func New(level, file string) (*Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	// JSON, ISO-8601 timestamps, capital level
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), zapLevel),
	}
	closeFile := func() {}
	if file != "" {
		sink, closeSink, err := zap.Open(file)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder, sink, zapLevel))
		closeFile = closeSink
	}

	zapLogger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return &Logger{
		Logger:        zapLogger,
		SugaredLogger: zapLogger.Sugar(),
		closeFile:     closeFile,
	}, nil
}

// Close flushes buffered entries and releases the log file, if any.
// Call this from main just before the program exits.
func (l *Logger) Close() {
	// Sync on a console fd can fail with "invalid argument"; nothing to do.
	_ = l.Logger.Sync()
	l.closeFile()
}
