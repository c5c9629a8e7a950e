// Package logger is the structured logger of the deployer, backed by zap.
package logger

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger writes key/value structured entries. Components take a Logger from their caller and
// scope it with Named, e.g. lggr.Named("bootstrap").
//
// Info is used for one line per deployment step, Warn for an RPC node that was skipped and Debug
// for nonce, gas and receipt detail.
type Logger interface {
	Named(name string) Logger
	With(keysAndValues ...any) Logger

	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	Sync() error
}

// Options selects the level and output format of a CLI logger.
type Options struct {
	// Level is a zap level name. Empty means info.
	Level string
	// JSON switches from the console encoder to JSON lines.
	JSON bool
}

// Build returns a Logger writing to stderr.
func Build(opts Options) (Logger, error) {
	lvl := zapcore.InfoLevel
	if opts.Level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(strings.ToLower(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	if !opts.JSON {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return sugared{z.Sugar()}, nil
}

// Test logs through tb at debug level.
func Test(tb testing.TB) Logger {
	tb.Helper()

	return sugared{zaptest.NewLogger(tb).Sugar()}
}

// TestObserved logs through tb and records every entry at lvl or above.
func TestObserved(tb testing.TB, lvl zapcore.Level) (Logger, *observer.ObservedLogs) {
	tb.Helper()

	core, logs := observer.New(lvl)
	z := zaptest.NewLogger(tb, zaptest.WrapOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, core)
	})))

	return sugared{z.Sugar()}, logs
}

// Nop discards everything.
func Nop() Logger {
	return sugared{zap.NewNop().Sugar()}
}

type sugared struct {
	*zap.SugaredLogger
}

func (s sugared) Named(name string) Logger {
	return sugared{s.SugaredLogger.Named(name)}
}

func (s sugared) With(keysAndValues ...any) Logger {
	return sugared{s.SugaredLogger.With(keysAndValues...)}
}
