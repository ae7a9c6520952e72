// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package frace

import (
	"fmt"
	"testing"

	"github.com/gogama/frace/race"
	"github.com/stretchr/testify/assert"
)

func TestHandlerGroup(t *testing.T) {
	var evts []string
	var execs []*race.Execution
	h1 := &testHandler{seq: 1, evts: &evts, execs: &execs}
	h2 := &testHandler{seq: 2, evts: &evts, execs: &execs}
	g := &HandlerGroup{}
	t.Run("PushBack", func(t *testing.T) {
		assert.PanicsWithValue(t, "frace: nil handler", func() { g.PushBack(BeforeRaceStart, nil) })
		assert.PanicsWithValue(t, "frace: invalid event", func() { g.PushBack(Event(123), h1) })
		assert.PanicsWithValue(t, "frace: invalid event", func() { g.PushBack(Event(-1), h1) })
		g.PushBack(BeforeRaceStart, h1)
		g.PushBack(BeforeRaceStart, h2)
		g.PushBack(AfterAttempt, h1)
	})
	t.Run("run", func(t *testing.T) {
		e1 := &race.Execution{ID: "1"}
		e2 := &race.Execution{ID: "2"}
		a := &race.Attempt{ProducerID: "foo"}
		assert.Empty(t, evts)
		assert.Empty(t, execs)
		g.run(AfterRaceCancel, e1, nil)
		assert.Empty(t, evts)
		assert.Empty(t, execs)
		g.run(BeforeRaceStart, e1, nil)
		assert.Equal(t, []string{"1.BeforeRaceStart", "2.BeforeRaceStart"}, evts)
		assert.Equal(t, []*race.Execution{e1, e1}, execs)
		evts = evts[:0]
		execs = execs[:0]
		g.run(AfterAttempt, e2, a)
		assert.Equal(t, []string{"1.AfterAttempt.foo"}, evts)
		assert.Equal(t, []*race.Execution{e2}, execs)
	})
	t.Run("empty", func(t *testing.T) {
		assert.NotPanics(t, func() {
			emptyHandlers.run(AfterRaceEnd, &race.Execution{}, nil)
		})
	})
}

type testHandler struct {
	seq   int
	evts  *[]string
	execs *[]*race.Execution
}

func (h *testHandler) Handle(evt Event, e *race.Execution, a *race.Attempt) {
	s := fmt.Sprintf("%d.%s", h.seq, evt)
	if a != nil {
		s += "." + a.ProducerID
	}
	*h.evts = append(*h.evts, s)
	*h.execs = append(*h.execs, e)
}

func TestHandlerFunc(t *testing.T) {
	var _evt Event
	var _e *race.Execution
	var _a *race.Attempt
	var f = func(evt Event, e *race.Execution, a *race.Attempt) {
		_evt = evt
		_e = e
		_a = a
	}
	h := HandlerFunc(f)
	e := &race.Execution{}
	a := &race.Attempt{}
	h.Handle(AfterAttemptSkip, e, a)

	assert.Equal(t, AfterAttemptSkip, _evt)
	assert.Same(t, e, _e)
	assert.Same(t, a, _a)
}
