// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trace

import (
	"strings"

	"github.com/gogama/frace"
	"github.com/gogama/frace/race"
	nettrace "golang.org/x/net/trace"
)

type traceKey struct{}

// A Handler opens a trace when a race starts, logs every attempt to
// it, and finishes it when the race ends. It implements frace.Handler.
type Handler struct {
	// Family is the trace family, which groups traces on the
	// /debug/requests page.
	Family string

	newTrace func(family, title string) nettrace.Trace
}

// NewHandler returns a Handler creating traces in family.
func NewHandler(family string) *Handler {
	if family == "" {
		panic("frace/trace: empty family")
	}
	return &Handler{Family: family, newTrace: nettrace.New}
}

// Install pushes h onto the back of every handler chain in g.
func (h *Handler) Install(g *frace.HandlerGroup) {
	for _, evt := range frace.Events() {
		g.PushBack(evt, h)
	}
}

// Handle records evt in the race's trace.
func (h *Handler) Handle(evt frace.Event, e *race.Execution, a *race.Attempt) {
	if evt == frace.BeforeRaceStart {
		e.SetValue(traceKey{}, h.newTrace(h.Family, title(e.Request)))
		return
	}

	tr, ok := FromExecution(e)
	if !ok {
		return
	}

	switch evt {
	case frace.BeforeAttempt:
		tr.LazyPrintf("bucket %d: invoking %s, timeout %s", a.Bucket, a.ProducerID, a.Timeout)
	case frace.AfterAttemptSkip:
		tr.LazyPrintf("bucket %d: %s not invoked: %v", a.Bucket, a.ProducerID, a.Err)
	case frace.AfterAttempt:
		if a.Err != nil {
			tr.LazyPrintf("bucket %d: %s %s after %s: %v", a.Bucket, a.ProducerID, a.Kind, a.Duration(), a.Err)
		} else {
			tr.LazyPrintf("bucket %d: %s succeeded after %s", a.Bucket, a.ProducerID, a.Duration())
		}
	case frace.AfterRaceCancel:
		tr.LazyPrintf("race cancelled")
	case frace.AfterRaceEnd:
		if e.Err != nil {
			tr.LazyPrintf("%v", e.Err)
			tr.SetError()
		} else {
			tr.LazyPrintf("won by %s in bucket %d", e.Winner.ProducerID, e.Winner.Bucket)
		}
		tr.Finish()
	}
}

// FromExecution returns the trace a Handler opened for e, if any.
func FromExecution(e *race.Execution) (nettrace.Trace, bool) {
	tr, ok := e.Value(traceKey{}).(nettrace.Trace)
	return tr, ok
}

func title(r *race.Request) string {
	var b strings.Builder
	for i, bucket := range r.Buckets {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(strings.Join(bucket, ","))
	}
	return b.String()
}
