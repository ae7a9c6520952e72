// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package race

import (
	"errors"
	"testing"
	"time"

	"github.com/gogama/frace/failure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecution(t *testing.T) {
	r := NewRequest(Bucket{"a"}, Bucket{}, Bucket{"b", "c"})
	e1 := NewExecution(r)
	e2 := NewExecution(r)
	assert.NotEmpty(t, e1.ID)
	assert.NotEqual(t, e1.ID, e2.ID)
	assert.Same(t, r, e1.Request)
	assert.Len(t, e1.Attempts, 3)
	assert.False(t, e1.Started())
	assert.False(t, e1.Succeeded())
}

func TestExecution_TimeMethods(t *testing.T) {
	t.Run("not started", func(t *testing.T) {
		e := &Execution{}
		assert.False(t, e.Started())
		assert.False(t, e.Ended())
		assert.Equal(t, time.Duration(0), e.Duration())
	})
	t.Run("started but not ended", func(t *testing.T) {
		e := &Execution{}
		e.Start = time.Now()
		assert.True(t, e.Started())
		assert.False(t, e.Ended())
		time.Sleep(2*time.Millisecond + 50*time.Microsecond)
		d := e.Duration()
		assert.LessOrEqual(t, d, time.Since(e.Start))
		assert.GreaterOrEqual(t, d, 2*time.Millisecond)
	})
	t.Run("ended", func(t *testing.T) {
		e := &Execution{}
		e.Start = time.Now()
		e.End = e.Start.Add(5 * time.Millisecond)
		assert.True(t, e.Ended())
		assert.Equal(t, 5*time.Millisecond, e.Duration())
	})
}

func TestExecution_Succeeded(t *testing.T) {
	e := &Execution{Winner: &Attempt{ProducerID: "a"}}
	assert.True(t, e.Succeeded())
	e.Err = errors.New("cancelled")
	assert.False(t, e.Succeeded())
}

func TestExecution_Invocations(t *testing.T) {
	now := time.Now()
	e := &Execution{
		Attempts: [][]Attempt{
			{{ProducerID: "a", Kind: failure.Skipped}, {ProducerID: "b", Start: now, End: now}},
			{},
			{{ProducerID: "c", Start: now}},
		},
	}
	assert.Equal(t, 2, e.Invocations())
}

func TestExecution_Value(t *testing.T) {
	type key1 struct{}
	type key2 struct{}
	e := &Execution{}
	require.Nil(t, e.Value(key1{}))
	e.SetValue(key1{}, "foo")
	assert.Equal(t, "foo", e.Value(key1{}))
	assert.Nil(t, e.Value(key2{}))
	e.SetValue(key2{}, 2)
	e.SetValue(key1{}, "bar")
	assert.Equal(t, "bar", e.Value(key1{}))
	assert.Equal(t, 2, e.Value(key2{}))
}

func TestAttempt(t *testing.T) {
	t.Run("not invoked", func(t *testing.T) {
		a := &Attempt{Kind: failure.Skipped, Err: failure.ErrSkipped}
		assert.False(t, a.Invoked())
		assert.Equal(t, time.Duration(0), a.Duration())
		assert.False(t, a.TimedOut())
	})
	t.Run("in flight", func(t *testing.T) {
		a := &Attempt{Start: time.Now().Add(-time.Millisecond)}
		assert.True(t, a.Invoked())
		assert.GreaterOrEqual(t, a.Duration(), time.Millisecond)
	})
	t.Run("ended", func(t *testing.T) {
		start := time.Now()
		a := &Attempt{Start: start, End: start.Add(time.Second), Kind: failure.Timeout}
		assert.Equal(t, time.Second, a.Duration())
		assert.True(t, a.TimedOut())
	})
}
