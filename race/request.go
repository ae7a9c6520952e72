// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package race

import (
	"context"
	"errors"
	"time"
)

const nilCtxMsg = "frace/race: nil context"

// A Bucket is an ordered fallback chain of producer IDs. The first
// entry is tried first.
type Bucket []string

// A Request describes one race: the buckets to run concurrently, and
// optional per-producer overrides that apply to this race only.
//
// A Request is read-only to the scheduler; it may be executed more
// than once, and concurrently.
type Request struct {
	// Buckets lists the fallback chains to race. Bucket order has no
	// effect on scheduling, but it breaks ties when two buckets succeed
	// at the same moment (the lower position wins), and it orders the
	// per-bucket attempt lists in the Execution.
	Buckets []Bucket

	// Timeouts optionally overrides the invocation timeout of individual
	// producers, keyed by producer ID. An override takes precedence over
	// both the producer's own timeout and the scheduler's policy.
	Timeouts map[string]time.Duration

	// Args optionally supplies an argument to individual producers,
	// keyed by producer ID. The producer reads it from its invocation
	// context using Arg.
	Args map[string]interface{}

	// ctx allows the whole race to be cancelled. It should only be
	// modified by copying the whole Request using WithContext.
	ctx context.Context
}

// NewRequest wraps NewRequestWithContext using the background context.
func NewRequest(buckets ...Bucket) *Request {
	r, _ := NewRequestWithContext(context.Background(), buckets...)
	return r
}

// NewRequestWithContext returns a new Request racing the given buckets
// under ctx.
func NewRequestWithContext(ctx context.Context, buckets ...Bucket) (*Request, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	return &Request{
		Buckets: buckets,
		ctx:     ctx,
	}, nil
}

// Context returns the request's context. The context controls
// cancellation of the overall race. To change the context, use
// WithContext.
//
// The returned context is always non-nil; it defaults to the
// background context.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of r with its context changed to
// ctx, which must be non-nil.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	return r2
}

// Timeout returns the request-level timeout override for the producer,
// if any.
func (r *Request) Timeout(id string) (time.Duration, bool) {
	d, ok := r.Timeouts[id]
	return d, ok
}

// Size returns the total number of producer IDs across all buckets,
// counting repeats.
func (r *Request) Size() int {
	n := 0
	for _, b := range r.Buckets {
		n += len(b)
	}
	return n
}

type argKey struct{}

// WithArg returns a copy of ctx carrying the producer argument v.
func WithArg(ctx context.Context, v interface{}) context.Context {
	return context.WithValue(ctx, argKey{}, v)
}

// Arg returns the producer argument carried by ctx, or nil if there is
// none. The scheduler places Request.Args[id] on the context it passes
// to producer id.
func Arg(ctx context.Context) interface{} {
	return ctx.Value(argKey{})
}
