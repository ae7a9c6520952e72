// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package frace

import (
	"github.com/gogama/frace/race"
)

// A HandlerGroup is a group of event handler chains which can be
// installed in a Scheduler.
//
// Handlers should be pushed before the group is installed; a
// HandlerGroup is not safe for PushBack concurrently with a race.
type HandlerGroup struct {
	handlers [][]Handler
}

// PushBack adds an event handler to the back of the event handler chain
// for a specific event type.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("frace: nil handler")
	}
	if evt < 0 || int(evt) >= numEvents {
		panic("frace: invalid event")
	}

	if g.handlers == nil {
		g.handlers = make([][]Handler, numEvents)
	}

	g.handlers[evt] = append(g.handlers[evt], h)
}

func (g *HandlerGroup) run(evt Event, e *race.Execution, a *race.Attempt) {
	i := int(evt)
	if i < len(g.handlers) {
		run(g.handlers[i], evt, e, a)
	}
}

func run(chain []Handler, evt Event, e *race.Execution, a *race.Attempt) {
	for _, h := range chain {
		h.Handle(evt, e, a)
	}
}

// A Handler handles the occurrence of an event during a race.
//
// Although buckets run on their own goroutines, the Scheduler runs the
// handlers of one race one at a time, so a handler never races with
// another handler, or with the Scheduler's own changes to the same
// execution. Handlers of different races may run concurrently.
//
// Parameter a is nil for race-level events (BeforeRaceStart,
// AfterRaceCancel and AfterRaceEnd). Otherwise it points at the attempt
// the event concerns, and is only valid for the duration of the call.
type Handler interface {
	Handle(Event, *race.Execution, *race.Attempt)
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as event handlers. If f is a function with appropriate
// signature, then HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(Event, *race.Execution, *race.Attempt)

// Handle calls f(evt, e, a).
func (f HandlerFunc) Handle(evt Event, e *race.Execution, a *race.Attempt) {
	f(evt, e, a)
}
