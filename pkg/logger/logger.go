// Package logger builds the zap logger used by the onecall binary: coloured
// console output plus an optional JSON file rotated by lumberjack.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/lumberjack.v3"
)

type Config struct {
	Level      string // debug, info, warn, error; defaults to info
	Filename   string // empty disables the file sink
	MaxSize    int    // megabytes
	MaxBackups int
	MaxAge     int // days; rotated files are gzipped
	Console    bool
}

// DefaultConfig logs to the console and to logs/onecall.log.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Filename:   "logs/onecall.log",
		MaxSize:    5,
		MaxBackups: 10,
		MaxAge:     14,
		Console:    true,
	}
}

// New builds a logger from cfg. An unparsable level falls back to info.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}
	logLevel := zap.NewAtomicLevelAt(level)

	var cores []zapcore.Core
	if cfg.Console {
		developmentCfg := zap.NewDevelopmentEncoderConfig()
		developmentCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(developmentCfg), zapcore.Lock(os.Stderr), logLevel))
	}

	if cfg.Filename != "" {
		fileHandler, err := lumberjack.New(
			lumberjack.WithFileName(cfg.Filename),
			lumberjack.WithMaxBytes(int64(cfg.MaxSize)*1024*1024),
			lumberjack.WithMaxBackups(cfg.MaxBackups),
			lumberjack.WithMaxDays(cfg.MaxAge),
			lumberjack.WithCompress(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create file handler: %w", err)
		}

		productionCfg := zap.NewProductionEncoderConfig()
		productionCfg.TimeKey = "timestamp"
		productionCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(productionCfg), zapcore.AddSync(fileHandler), logLevel))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
