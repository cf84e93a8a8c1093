// Package logger holds the process-wide structured logger.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger. It is a no-op until Initialize is called,
// so library code and tests can log unconditionally.
var Logger = zap.NewNop().Sugar()

// Options selects the logger's output.
type Options struct {
	Verbose bool      // debug level instead of warn
	JSON    bool      // JSON lines instead of console text
	Output  io.Writer // defaults to stderr; stdout carries command output
}

// Initialize replaces the global logger.
func Initialize(opts Options) *zap.SugaredLogger {
	Logger = New(opts)
	return Logger
}

// New builds a logger without touching the global one.
func New(opts Options) *zap.SugaredLogger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := zap.WarnLevel
	if opts.Verbose {
		level = zap.DebugLevel
	}

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(out), level)).Sugar()
}

// Named returns a child of the global logger.
func Named(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Cleanup flushes buffered entries.
func Cleanup() {
	_ = Logger.Sync()
}
