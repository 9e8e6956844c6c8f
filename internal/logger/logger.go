// Package logger is the process-wide levelled logger. The level can be
// changed at runtime; the service flips it when the LogLevel flag changes.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu       sync.RWMutex
	level    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	encoding = "console"
	sugar    = build(os.Stderr)
)

func build(w io.Writer) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if encoding == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Init sets the starting level ("debug", "info", "warn", "error").
// Unknown values fall back to info.
func Init(lvl string) {
	SetLevel(lvl)
}

// SetEncoding switches between "console" and "json" output.
func SetEncoding(enc string) {
	mu.Lock()
	defer mu.Unlock()
	encoding = strings.ToLower(enc)
	sugar = build(os.Stderr)
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sugar = build(w)
}

// SetLevel changes the level of every logger built by this package.
func SetLevel(lvl string) {
	parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(lvl)))
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	level.SetLevel(parsed)
}

// GetLevel returns the current level name.
func GetLevel() string {
	return level.Level().String()
}

// Sync flushes buffered entries.
func Sync() {
	_ = current().Sync()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, args ...any) { current().Debugf(format, args...) }
func Infof(format string, args ...any)  { current().Infof(format, args...) }
func Warnf(format string, args ...any)  { current().Warnf(format, args...) }
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// With returns a structured logger carrying the given key/value pairs.
func With(args ...any) *zap.SugaredLogger {
	return current().With(args...)
}
