// Package logging builds the zap logger used for diagnostics.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects level and sink. Writer wins over Path; Path "" or
// "stderr" logs to stderr.
type Options struct {
	Level   string
	Path    string
	Writer  io.Writer
	Verbose bool
}

// New returns a production (JSON) logger. Verbose forces debug level.
func New(opt Options) (*zap.Logger, error) {
	level, err := parseLevel(opt.Level)
	if err != nil {
		return nil, err
	}
	if opt.Verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil

	if opt.Writer != nil {
		core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), zapcore.AddSync(opt.Writer), cfg.Level)
		return zap.New(core), nil
	}

	out := "stderr"
	if opt.Path != "" && opt.Path != "stderr" {
		if err := os.MkdirAll(filepath.Dir(opt.Path), 0o700); err != nil {
			return nil, fmt.Errorf("log dir: %w", err)
		}
		out = opt.Path
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func parseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return l, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
