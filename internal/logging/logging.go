package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/amirbrooks/boardmode/internal/config"
)

// Options describe where a logger writes. FilePath empty disables the file
// core; Console false disables the stderr core.
type Options struct {
	Level      string
	FilePath   string
	Console    bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// ConsoleWriter overrides stderr, mostly for tests.
	ConsoleWriter io.Writer
}

// FromConfig builds Options from vault settings rooted at root.
func FromConfig(root string, s config.Settings) Options {
	return Options{
		Level:      s.Log.Level,
		FilePath:   s.LogPath(root),
		Console:    s.Log.Console,
		MaxSizeMB:  s.Log.MaxSizeMB,
		MaxBackups: s.Log.MaxBackups,
		MaxAgeDays: s.Log.MaxAgeDays,
	}
}

// New builds a logger teeing a JSON file core, rotated by lumberjack, with a
// console core. With neither configured it returns a no-op logger.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		if opts.Level != "" {
			return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = zapcore.InfoLevel
	}

	var cores []zapcore.Core
	if opts.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.MessageKey = "message"
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}
	if opts.Console {
		var w io.Writer = os.Stderr
		if opts.ConsoleWriter != nil {
			w = opts.ConsoleWriter
		}
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(zapcore.AddSync(w)), level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
