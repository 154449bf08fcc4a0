// Package logger wraps zap with the process-wide logging setup.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger holds the configured zap logger. Log is a no-op logger until Init
// succeeds.
type Logger struct {
	Log *zap.Logger

	out  io.Writer
	file *lumberjack.Logger
}

// Option customises Init.
type Option func(*Logger)

// WithFile additionally writes log entries to path, rotated by size.
func WithFile(path string) Option {
	return func(l *Logger) {
		if path == "" {
			return
		}
		l.file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
	}
}

// WithOutput replaces stdout as the primary sink.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.out = w }
}

// New returns a Logger backed by a no-op zap logger.
func New() *Logger {
	return &Logger{Log: zap.NewNop(), out: os.Stdout}
}

// Init builds the JSON logger at the given level ("debug", "info", "warn",
// "error", case-insensitive).
func (l *Logger) Init(level string, opts ...Option) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	for _, opt := range opts {
		opt(l)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(l.out)}
	if l.file != nil {
		sinks = append(sinks, zapcore.AddSync(l.file))
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.NewMultiWriteSyncer(sinks...),
		lvl,
	)
	l.Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return nil
}

// Close flushes buffered entries and releases the rotating file, if any.
func (l *Logger) Close() error {
	_ = l.Log.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ParseLevel maps a level name onto a zap level. An empty name is info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
