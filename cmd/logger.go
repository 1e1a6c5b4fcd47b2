package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logConfig selects the log sinks.
type logConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	File   string // optional rotated file, always JSON
}

// newLogger builds a zap logger writing to w and, when File is set, to a
// size-rotated file as well.
func newLogger(cfg logConfig, w io.Writer) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
			return nil, fmt.Errorf("%w: unknown log level %q", errUsage, cfg.Level)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console":
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(consoleCfg)
	default:
		return nil, fmt.Errorf("%w: unknown log format %q (want json or console)", errUsage, cfg.Format)
	}

	if w == nil {
		w = os.Stderr
	}
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(w), level)}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			Compress:   false,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
