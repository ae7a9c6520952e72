// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package producer

import (
	"context"
	"time"
)

// An Invoker produces a value, or fails.
//
// Implementations of Invoker must be safe for concurrent use by
// multiple goroutines, since the same producer may be attempted by
// several overlapping races.
type Invoker interface {
	Invoke(ctx context.Context) (interface{}, error)
}

// The InvokerFunc type is an adapter to allow the use of ordinary
// functions as invokers. If f is a function with the appropriate
// signature, then InvokerFunc(f) is an Invoker that calls f.
type InvokerFunc func(ctx context.Context) (interface{}, error)

// Invoke calls f(ctx).
func (f InvokerFunc) Invoke(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

// A Producer is a registered unit of work.
//
// A Producer is immutable once registered. Registering another Producer
// with the same ID replaces it.
type Producer struct {
	// ID uniquely identifies the producer. Buckets refer to producers
	// by ID.
	ID string

	// Invoker produces the producer's value. It is never nil on a
	// registered producer.
	Invoker Invoker

	// Timeout bounds a single invocation. If zero, the scheduler's
	// timeout policy decides the bound.
	Timeout time.Duration
}
