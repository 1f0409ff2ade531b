// Package logutil wraps go.uber.org/zap behind a package-global logger, the
// same shape matrixone's own pkg/logutil uses: a settable *zap.Logger
// accessed through L(), with structured fields at every call site instead of
// formatted strings.
package logutil

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var global atomic.Pointer[zap.Logger]

func init() {
	SetLogger(zap.NewNop())
}

// SetLogger installs the process-wide logger.
func SetLogger(l *zap.Logger) {
	global.Store(l)
}

// L returns the process-wide logger.
func L() *zap.Logger {
	return global.Load()
}

// RotatingConfig configures a production logger that writes structured JSON
// logs to a rotated file via lumberjack, mirroring matrixone's
// logutil.Config file-sink setup.
type RotatingConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Level      zapcore.Level
}

// NewRotating builds a *zap.Logger that writes JSON-encoded entries to a
// lumberjack-rotated file, falling back to stderr when Filename is empty.
func NewRotating(cfg RotatingConfig) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var writer zapcore.WriteSyncer
	if cfg.Filename == "" {
		writer = zapcore.AddSync(os.Stderr)
	} else {
		writer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    orDefault(cfg.MaxSizeMB, 128),
			MaxBackups: orDefault(cfg.MaxBackups, 8),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
		})
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), writer, cfg.Level)
	return zap.New(core, zap.AddCaller())
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
