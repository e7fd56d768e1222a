// Package logging builds the process logger.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"ntpgps/internal/config"
)

// Logger bundles the sugared logger with the level that the control
// socket's trace commands flip between debug and info.
type Logger struct {
	*zap.SugaredLogger
	Level zap.AtomicLevel

	closer func() error
}

// New builds a logger writing to stderr, and to a rotated file when
// cfg.File is set.
func New(cfg config.LogConfig, trace bool) (*Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if trace {
		level.SetLevel(zapcore.DebugLevel)
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("can't initialize zap logger: unknown format %q", cfg.Format)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	closer := func() error { return nil }
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		sinks = append(sinks, zapcore.AddSync(lj))
		closer = lj.Close
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)
	zl := zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	return &Logger{SugaredLogger: zl.Sugar(), Level: level, closer: closer}, nil
}

// Nop returns a logger that discards everything. Its level still toggles.
func Nop() *Logger {
	return &Logger{
		SugaredLogger: zap.NewNop().Sugar(),
		Level:         zap.NewAtomicLevelAt(zapcore.InfoLevel),
		closer:        func() error { return nil },
	}
}

// Trace reports whether debug output is enabled.
func (l *Logger) Trace() bool { return l.Level.Enabled(zapcore.DebugLevel) }

// SetTrace switches debug output and reports whether the setting changed.
func (l *Logger) SetTrace(on bool) bool {
	if l.Trace() == on {
		return false
	}
	if on {
		l.Level.SetLevel(zapcore.DebugLevel)
	} else {
		l.Level.SetLevel(zapcore.InfoLevel)
	}
	return true
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.closer == nil {
		return nil
	}
	return l.closer()
}
