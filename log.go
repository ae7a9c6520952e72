// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package frace

import (
	"log/slog"

	"github.com/gogama/frace/failure"
	"github.com/gogama/frace/race"
)

// A LogHandler writes the progress of races to a structured logger:
// invocations at Debug level, failed attempts at Warn level, and the
// end of each race at Info level, or Warn level if the race failed.
type LogHandler struct {
	Logger *slog.Logger
}

// NewLogHandler returns a LogHandler writing to logger. If logger is
// nil, slog.Default is used.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{Logger: logger}
}

// Install pushes h onto the back of every attempt-level and race-end
// handler chain in g.
func (h *LogHandler) Install(g *HandlerGroup) {
	g.PushBack(BeforeAttempt, h)
	g.PushBack(AfterAttemptSkip, h)
	g.PushBack(AfterAttempt, h)
	g.PushBack(AfterRaceEnd, h)
}

// Handle logs evt.
func (h *LogHandler) Handle(evt Event, e *race.Execution, a *race.Attempt) {
	ctx := e.Request.Context()
	switch evt {
	case BeforeAttempt:
		h.Logger.LogAttrs(ctx, slog.LevelDebug, "invoking producer",
			slog.String("race", e.ID),
			slog.String("producer", a.ProducerID),
			slog.Int("bucket", a.Bucket),
			slog.Duration("timeout", a.Timeout))
	case AfterAttemptSkip, AfterAttempt:
		if a.Err == nil || a.Kind == failure.Cancelled {
			return
		}
		h.Logger.LogAttrs(ctx, slog.LevelWarn, "producer attempt failed",
			slog.String("race", e.ID),
			slog.String("producer", a.ProducerID),
			slog.Int("bucket", a.Bucket),
			slog.String("kind", a.Kind.String()),
			slog.Any("error", a.Err))
	case AfterRaceEnd:
		if e.Err != nil {
			h.Logger.LogAttrs(ctx, slog.LevelWarn, "race failed",
				slog.String("race", e.ID),
				slog.Duration("duration", e.Duration()),
				slog.Int("invocations", e.Invocations()),
				slog.Any("error", e.Err))
			return
		}
		h.Logger.LogAttrs(ctx, slog.LevelInfo, "race won",
			slog.String("race", e.ID),
			slog.String("producer", e.Winner.ProducerID),
			slog.Int("bucket", e.Winner.Bucket),
			slog.Duration("duration", e.Duration()))
	}
}

