// Package logging builds the zap loggers used by the installer.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LevelInfo logs warnings and progress.
	LevelInfo = "info"

	// LevelDebug adds per-entry detail.
	LevelDebug = "debug"

	// LevelNone disables logging.
	LevelNone = "none"
)

// New returns a console logger writing to w at the given level.
// Lines carry the level and message but no timestamp or caller.
func New(w io.Writer, level string) (*zap.Logger, error) {
	if level == LevelNone {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.NameKey = ""
	cfg.StacktraceKey = ""
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// Level maps the verbose switch to a level name.
func Level(verbose bool) string {
	if verbose {
		return LevelDebug
	}
	return LevelInfo
}
