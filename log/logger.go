// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// log levels, extending slog with Trace.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger leveled key-value logger.
type Logger interface {
	With(ctx ...any) Logger
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
}

type logger struct {
	inner *slog.Logger
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{l.inner.With(ctx...)}
}

func (l *logger) write(level slog.Level, msg string, ctx ...any) {
	l.inner.Log(context.Background(), level, msg, ctx...)
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(LevelDebug, msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(LevelInfo, msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(LevelWarn, msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.write(LevelError, msg, ctx...) }

var root atomic.Pointer[logger]

func init() {
	root.Store(&logger{slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &verbosity}))})
}

var verbosity slog.LevelVar

// Verbosity returns the level var consulted by the default handlers, so that
// the level can be changed at runtime.
func Verbosity() *slog.LevelVar {
	return &verbosity
}

// SetDefault replaces the process-wide root logger.
func SetDefault(handler slog.Handler) {
	root.Store(&logger{slog.New(handler)})
}

// Root returns the process-wide root logger.
func Root() Logger {
	return root.Load()
}

// WithContext returns a logger derived from the root logger carrying the
// given key-value context. Typical use: per-package loggers.
func WithContext(ctx ...any) Logger {
	return &rootDerived{ctx: ctx}
}

// rootDerived defers root resolution to call time, so package-level loggers
// pick up handlers installed after package init.
type rootDerived struct {
	ctx []any
}

func (r *rootDerived) resolve() Logger              { return root.Load().With(r.ctx...) }
func (r *rootDerived) With(ctx ...any) Logger       { return r.resolve().With(ctx...) }
func (r *rootDerived) Trace(msg string, ctx ...any) { r.resolve().Trace(msg, ctx...) }
func (r *rootDerived) Debug(msg string, ctx ...any) { r.resolve().Debug(msg, ctx...) }
func (r *rootDerived) Info(msg string, ctx ...any)  { r.resolve().Info(msg, ctx...) }
func (r *rootDerived) Warn(msg string, ctx ...any)  { r.resolve().Warn(msg, ctx...) }
func (r *rootDerived) Error(msg string, ctx ...any) { r.resolve().Error(msg, ctx...) }
