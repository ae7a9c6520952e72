// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gogama/frace"
	"github.com/gogama/frace/producer"
	"github.com/gogama/frace/race"
	nettrace "golang.org/x/net/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrace struct {
	nettrace.Trace
	lock     sync.Mutex
	family   string
	title    string
	events   []string
	err      bool
	finished bool
}

func (tr *fakeTrace) LazyPrintf(format string, a ...interface{}) {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.events = append(tr.events, fmt.Sprintf(format, a...))
}

func (tr *fakeTrace) SetError() {
	tr.err = true
}

func (tr *fakeTrace) Finish() {
	tr.finished = true
}

func newFakeHandler() (*Handler, *[]*fakeTrace) {
	var traces []*fakeTrace
	h := NewHandler("test")
	h.newTrace = func(family, title string) nettrace.Trace {
		tr := &fakeTrace{family: family, title: title}
		traces = append(traces, tr)
		return tr
	}
	return h, &traces
}

func TestNewHandler(t *testing.T) {
	assert.PanicsWithValue(t, "frace/trace: empty family", func() { NewHandler("") })
	h := NewHandler("foo")
	assert.Equal(t, "foo", h.Family)
	assert.NotNil(t, h.newTrace)
}

func TestHandler(t *testing.T) {
	t.Run("won", func(t *testing.T) {
		h, traces := newFakeHandler()
		s := &frace.Scheduler{Handlers: &frace.HandlerGroup{}}
		h.Install(s.Handlers)
		s.Register("a", producer.InvokerFunc(func(context.Context) (interface{}, error) {
			return nil, errors.New("down")
		}), 0)
		s.Register("b", producer.InvokerFunc(func(context.Context) (interface{}, error) {
			return "ok", nil
		}), 0)

		e, err := s.Race(context.Background(), race.Bucket{"a", "b"}, race.Bucket{"c"})

		require.NoError(t, err)
		require.Len(t, *traces, 1)
		tr := (*traces)[0]
		got, ok := FromExecution(e)
		require.True(t, ok)
		assert.Same(t, tr, got)
		assert.Equal(t, "test", tr.family)
		assert.Equal(t, "a,b | c", tr.title)
		assert.True(t, tr.finished)
		assert.False(t, tr.err)
		assert.Contains(t, tr.events, "bucket 0: invoking a, timeout 5s")
		assert.Contains(t, tr.events, "bucket 1: c not invoked: frace/producer: unknown producer \"c\"")
		assert.Equal(t, "won by b in bucket 0", tr.events[len(tr.events)-1])
	})
	t.Run("failed", func(t *testing.T) {
		h, traces := newFakeHandler()
		s := &frace.Scheduler{Handlers: &frace.HandlerGroup{}}
		h.Install(s.Handlers)

		_, err := s.Race(context.Background())

		require.Error(t, err)
		require.Len(t, *traces, 1)
		tr := (*traces)[0]
		assert.True(t, tr.err)
		assert.True(t, tr.finished)
		assert.Equal(t, []string{"frace: race exhausted"}, tr.events)
	})
	t.Run("no trace", func(t *testing.T) {
		h, _ := newFakeHandler()
		e := race.NewExecution(race.NewRequest())
		assert.NotPanics(t, func() {
			h.Handle(frace.AfterRaceEnd, e, nil)
		})
		_, ok := FromExecution(e)
		assert.False(t, ok)
	})
}
