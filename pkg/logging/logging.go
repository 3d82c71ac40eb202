// Package logging provides the leveled stderr logger used by the engines.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Verbosity levels accepted by --verbosity
const (
	Quiet = 0
	Info  = 1
	Debug = 2
)

// levelFor maps a verbosity to the lowest slog level it lets through
func levelFor(verbosity int) slog.Level {
	switch {
	case verbosity >= Debug:
		return slog.LevelDebug
	case verbosity >= Info:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// Logger writes warnings unconditionally and info/debug lines depending
// on the configured verbosity
type Logger struct {
	log *slog.Logger
}

// New creates a logger writing to w
func New(w io.Writer, verbosity int) *Logger {
	return &Logger{log: slog.New(newLineHandler(w, levelFor(verbosity)))}
}

// Stderr creates a logger writing to standard error
func Stderr(verbosity int) *Logger {
	return New(os.Stderr, verbosity)
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return New(io.Discard, Quiet)
}

// Enabled reports whether lines at the given verbosity level are emitted
func (l *Logger) Enabled(level int) bool {
	return l.log.Enabled(context.Background(), levelFor(level))
}

// Warnf logs a non-fatal problem
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(slog.LevelWarn, format, args...)
}

// Infof logs progress and summary lines (verbosity >= 1)
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(slog.LevelInfo, format, args...)
}

// Debugf logs diagnostic detail (verbosity >= 2)
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(slog.LevelDebug, format, args...)
}

func (l *Logger) logf(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !l.log.Enabled(ctx, level) {
		return
	}
	l.log.Log(ctx, level, fmt.Sprintf(format, args...))
}

// lineHandler is a slog.Handler that prints one plain line per record:
// the message, prefixed with the level for warnings and errors, followed
// by any attributes as key=value pairs. Groups are flattened.
type lineHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	attrs []slog.Attr
}

func newLineHandler(w io.Writer, level slog.Leveler) *lineHandler {
	return &lineHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, len(r.Message)+16)
	if r.Level >= slog.LevelWarn {
		buf = append(buf, r.Level.String()...)
		buf = append(buf, ": "...)
	}
	buf = append(buf, r.Message...)
	appendAttr := func(a slog.Attr) bool {
		if a.Equal(slog.Attr{}) {
			return true
		}
		buf = fmt.Appendf(buf, " %s=%v", a.Key, a.Value.Resolve())
		return true
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(appendAttr)
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *lineHandler) WithGroup(string) slog.Handler {
	return h
}
