// Package logger provides structured logging using zap.
//
// Every subsystem takes its logger from Named at construction. The global
// level applies unless Options.Subsystems names the subsystem, so a single
// noisy area such as the renderer can be traced at debug while the rest of
// the viewer stays at info.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance. It discards everything until Init runs,
// so packages may log from tests without setup.
var Log = zap.NewNop()

// Sugar is the sugared logger for printf-style call sites.
var Sugar = Log.Sugar()

var (
	// core is shared by every logger and enabled down to the lowest
	// configured level; each logger filters above it.
	core       = zapcore.NewNopCore()
	subsystems map[string]zapcore.Level
)

// FileConfig holds rotating log file settings.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns rotation settings suited for a desktop viewer.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  20,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// Options selects levels and outputs for Init.
type Options struct {
	Level string
	// Subsystems maps a Named logger to its own level.
	Subsystems map[string]string
	// File is skipped when Path is empty.
	File FileConfig
	// Quiet drops console output.
	Quiet bool
}

// Init replaces the global logger. Unknown level names are an error.
func Init(opts Options) error {
	base, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}

	overrides := make(map[string]zapcore.Level, len(opts.Subsystems))
	floor := base
	for name, s := range opts.Subsystems {
		lvl, err := parseLevel(s)
		if err != nil {
			return fmt.Errorf("subsystem %q: %w", name, err)
		}
		overrides[name] = lvl
		floor = min(floor, lvl)
	}

	var cores []zapcore.Core
	if !opts.Quiet {
		enc := encoderConfig(zapcore.TimeEncoderOfLayout("15:04:05.000"), zapcore.CapitalColorLevelEncoder)
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(os.Stdout), floor))
	}
	if opts.File.Path != "" {
		w := &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
			LocalTime:  true,
		}
		enc := encoderConfig(zapcore.ISO8601TimeEncoder, zapcore.CapitalLevelEncoder)
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), floor))
	}

	core = zapcore.NewTee(cores...)
	subsystems = overrides
	Log = leveled(base)
	Sugar = Log.Sugar()
	return nil
}

func encoderConfig(timeEnc zapcore.TimeEncoder, levelEnc zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		CallerKey:        "caller",
		EncodeTime:       timeEnc,
		EncodeLevel:      levelEnc,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
}

// leveled returns a logger over the shared core filtered at lvl.
func leveled(lvl zapcore.Level) *zap.Logger {
	c, err := zapcore.NewIncreaseLevelCore(core, lvl)
	if err != nil {
		// no outputs configured
		c = core
	}
	return zap.New(c, zap.AddCaller())
}

// parseLevel accepts zap level names; empty means info.
func parseLevel(level string) (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// Named returns a child logger tagged with a subsystem name ("renderer",
// "loader"), at the subsystem's own level when one is configured.
func Named(name string) *zap.Logger {
	if lvl, ok := subsystems[name]; ok {
		return leveled(lvl).Named(name)
	}
	return Log.Named(name)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}

// Debug logs a debug message.
func Debug(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}

// Info logs an info message.
func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

// Warn logs a warning message.
func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

// Error logs an error message.
func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}
