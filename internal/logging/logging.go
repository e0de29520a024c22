// Package logging builds the process slog handler around a shared level.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

// Logger owns the level var shared by every handler built from it.
type Logger struct {
	level *slog.LevelVar
	base  slog.Level
}

// New creates a Logger at the named level.
func New(level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := &Logger{level: new(slog.LevelVar), base: lvl}
	l.level.Set(lvl)
	return l, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return 0, errors.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// Handler returns a text or json handler writing to w.
func (l *Logger) Handler(w io.Writer, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: l.level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SetVerbose switches debug tracing on, or back to the configured level.
func (l *Logger) SetVerbose(on bool) {
	if on {
		l.level.Set(slog.LevelDebug)
		slog.Info("verbose mode on")
		return
	}
	slog.Info("verbose mode off")
	l.level.Set(l.base)
}

// Verbose reports whether debug records are enabled.
func (l *Logger) Verbose() bool {
	return l.level.Level() <= slog.LevelDebug
}

// Level exposes the shared level.
func (l *Logger) Level() *slog.LevelVar { return l.level }
