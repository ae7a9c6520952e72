// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package race

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// An Execution represents the state of a single Request execution.
//
// When a race is run, an Execution is created for it. The Execution is
// updated as the race progresses and is ultimately returned as the
// return value of the race.
//
// Event handlers may set values on an Execution using its SetValue
// method and read them back using the Value method. However, they
// should treat the exported fields as read-only. While the race is in
// flight, the scheduler only changes the Execution while holding the
// same lock under which it runs event handlers, so handlers always see
// a consistent state.
type Execution struct {
	// ID uniquely identifies the execution, for correlating logs,
	// traces and metrics.
	ID string

	// Request is the race being executed. It is never nil.
	Request *Request

	// Start is the start time of the race.
	Start time.Time

	// End is the end time of the race. It is zero until the race ends.
	End time.Time

	// Attempts holds, for each bucket in request order, the attempts
	// made in that bucket so far, in the order they were made.
	Attempts [][]Attempt

	// Racing is the count of buckets still running.
	Racing int

	// Winner is a copy of the winning attempt. It is nil unless the
	// race succeeded.
	Winner *Attempt

	// Result is the value produced by the winner.
	Result interface{}

	// Err is the error that ended the race. Once the race has ended,
	// it has the same value as the error returned by the scheduler.
	Err error

	data context.Context
}

// NewExecution returns a new, unstarted Execution of r with a fresh ID.
func NewExecution(r *Request) *Execution {
	return &Execution{
		ID:       uuid.NewString(),
		Request:  r,
		Attempts: make([][]Attempt, len(r.Buckets)),
	}
}

// Succeeded indicates whether the race ended with a winner.
func (e *Execution) Succeeded() bool {
	return e.Winner != nil && e.Err == nil
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the execution has ended.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Invocations returns the number of attempts, across all buckets, that
// actually invoked their producer.
func (e *Execution) Invocations() int {
	n := 0
	for _, b := range e.Attempts {
		for i := range b {
			if b[i].Invoked() {
				n++
			}
		}
	}
	return n
}

// SetValue allows event handlers to store arbitrary data in the
// execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue: it may not be nil, it must be comparable, and it
// should not be of a built-in type, to avoid collisions between
// different event handlers putting data into the same execution.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
