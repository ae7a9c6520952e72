// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package frace

import (
	"context"

	"github.com/gogama/frace/race"
)

// Doer is the interface that wraps the basic Do method.
//
// Do runs a race request and returns the final execution state (and
// error, if any). Scheduler implements the Doer interface, and any
// other Doer implementation must behave substantially the same as
// Scheduler.Do.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Doer interface {
	Do(r *race.Request) (*race.Execution, error)
}

// Racer is the interface that wraps the basic Race method.
//
// Race creates a race request for the given buckets, governed by ctx,
// runs it, and returns the final execution state (and error, if any).
// Scheduler implements the Racer interface.
//
// Any Doer can be used to emulate a Racer via the Race function.
type Racer interface {
	Race(ctx context.Context, buckets ...race.Bucket) (*race.Execution, error)
}

// Resetter is the interface that wraps the basic Reset method.
//
// Reset returns a producer to the healthy state. If the underlying
// implementation keeps no producer health, Reset does nothing.
type Resetter interface {
	Reset(id string)
}

// Executor is the interface that groups the basic Do, Race and Reset
// methods.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Executor interface {
	Doer
	Racer
	Resetter
}

// Race uses the specified Doer to run a race over buckets, governed by
// ctx, using the same policies as d.Do.
//
// To set per-producer timeouts or arguments, use race.NewRequest and
// d.Do.
func Race(d Doer, ctx context.Context, buckets ...race.Bucket) (*race.Execution, error) {
	r, err := race.NewRequestWithContext(ctx, buckets...)
	if err != nil {
		return nil, err
	}
	return d.Do(r)
}

// Inflate converts any non-nil Doer into an Executor. This may be
// helpful for interop across library boundaries, i.e. if code that only
// has access to a Doer needs to call a function that requires an
// Executor.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("frace: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(r *race.Request) (*race.Execution, error) {
	return i.doer.Do(r)
}

func (i inflated) Race(ctx context.Context, buckets ...race.Bucket) (*race.Execution, error) {
	return Race(i.doer, ctx, buckets...)
}

func (i inflated) Reset(id string) {
	if r, ok := i.doer.(Resetter); ok {
		r.Reset(id)
	}
}
