// Package logging provides configurable zap logger creation for
// squallcache hosts.
package logging

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Style selects the logger's output encoding.
type Style string

const (
	StyleTerminal Style = "terminal"
	StyleJSON     Style = "json"
	StyleLogfmt   Style = "logfmt"
	StyleNoop     Style = "noop"
)

// Config configures New. A zero Config produces a development-style
// terminal logger at info level.
type Config struct {
	Style Style
	Level string
}

// New builds a zap logger per cfg. The example command uses it to
// build the logger it injects into Fetcher (via WithFetcherLogger), so
// the output format is consistent across a host's lifetime.
func New(cfg Config) *zap.Logger {
	style := cfg.Style
	if style == "" {
		style = StyleTerminal
	}
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if lvl, err := zapcore.ParseLevel(cfg.Level); err == nil {
			level = lvl
		}
	}

	var logger *zap.Logger
	var err error

	switch style {
	case StyleNoop:
		return zap.NewNop()
	case StyleJSON:
		c := zap.NewProductionConfig()
		c.Level = zap.NewAtomicLevelAt(level)
		logger, err = c.Build(zap.AddCaller())
	case StyleLogfmt:
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:    "ts",
			LevelKey:   "lvl",
			CallerKey:  "caller",
			MessageKey: "msg",
			LineEnding: zapcore.DefaultLineEnding,
		}
		core := zapcore.NewCore(newLogfmtEncoder(encoderConfig), zapcore.AddSync(os.Stderr), level)
		logger = zap.New(core, zap.AddCaller())
	case StyleTerminal:
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(level)
		logger, err = c.Build(zap.AddCaller())
	default:
		log.Fatalf("invalid logging style %q: must be one of terminal, json, logfmt, noop", style)
	}

	if err != nil {
		log.Fatalf("building zap logger: %v", err)
	}
	return logger
}
