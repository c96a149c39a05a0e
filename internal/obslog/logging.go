// Package obslog wires zerolog into the rest of sirchmunk: a console writer
// for interactive/verbose runs, compact JSON otherwise, plus WithCallback,
// which attaches an optional Callback hook to a logger alongside its normal
// structured output. Neither agentic.Engine nor react.Engine takes such a
// callback.
package obslog

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a root logger. verbose selects a human-readable console writer
// (colorized, timestamped); non-verbose emits compact JSON to stderr, the
// shape a log aggregator expects in a long-running process.
func New(levelStr string, verbose bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out zerolog.Logger
	if verbose {
		cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		out = zerolog.New(cw).With().Timestamp().Logger()
	} else {
		out = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	lvl := zerolog.InfoLevel
	levelStr = strings.ToLower(strings.TrimSpace(levelStr))
	if levelStr == "warning" {
		levelStr = "warn"
	}
	if levelStr != "" {
		if parsed, err := zerolog.ParseLevel(levelStr); err == nil {
			lvl = parsed
		}
	}
	return out.Level(lvl)
}

// Callback receives the level and message of each event emitted through a
// logger built by WithCallback — a loguru-style streaming sink for a caller
// that wants progress without parsing JSON logs. Events below the logger's
// level are never emitted, so they do not reach the callback either.
type Callback func(level zerolog.Level, msg string)

// hookWriter adapts a Callback into a zerolog.Hook.
type hookWriter struct{ fn Callback }

func (h hookWriter) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if h.fn != nil {
		h.fn(level, msg)
	}
}

// WithCallback returns a logger that also invokes cb for every event, in
// addition to its normal output.
func WithCallback(l zerolog.Logger, cb Callback) zerolog.Logger {
	if cb == nil {
		return l
	}
	return l.Hook(hookWriter{fn: cb})
}
