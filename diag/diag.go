// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package diag provides structured per-phase logging and graph
// dumping for render-graph compilation. It is deliberately separate
// from package graph: the compiler itself never logs or formats
// output, so a caller that never imports diag pays nothing for it.
package diag

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gviegas/rendergraph/graph"
)

// Logger wraps a zerolog.Logger tagged with a per-Update frame trace
// id, so every phase-boundary event for one compilation can be
// correlated in a log stream shared across many frames.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a Logger that writes to w (os.Stderr if nil) in
// zerolog's console-friendly format.
func NewLogger(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	zl := zerolog.New(out).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Frame returns a child logger tagged with a fresh trace id, meant to
// be used for the duration of a single RenderGraph.Update call.
func (l *Logger) Frame() *FrameLogger {
	return &FrameLogger{zl: l.zl.With().Str("frame", uuid.NewString()).Logger()}
}

// FrameLogger logs the phase boundaries of one compilation.
type FrameLogger struct {
	zl zerolog.Logger
}

// Phase logs the entry/exit counts of one compiler phase. Callers
// time the phase themselves and pass the elapsed duration; diag does
// not wrap phases in its own timing to avoid skewing short ones.
func (f *FrameLogger) Phase(name string, elapsed time.Duration, nodes, resources int) {
	f.zl.Debug().
		Str("phase", name).
		Dur("elapsed", elapsed).
		Int("nodes", nodes).
		Int("resources", resources).
		Msg("phase complete")
}

// Error logs a failed Update, unwrapping *graph.Error for its code
// and originating op when present.
func (f *FrameLogger) Error(err error) {
	ev := f.zl.Error()
	var gerr *graph.Error
	if e, ok := err.(*graph.Error); ok {
		gerr = e
		ev = ev.Str("code", gerr.Code.String()).Str("op", gerr.Op)
	}
	ev.Err(err).Msg("update failed")
}

// Arena logs the frame/scratch arena high-water marks recorded during
// commit, so callers can watch for the 1.5x growth heuristic settling.
func (f *FrameLogger) Arena(tag string, marks map[string]int) {
	ev := f.zl.Debug().Str("arena", tag)
	for name, n := range marks {
		ev = ev.Int(name, n)
	}
	ev.Msg("arena watermark")
}
