// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package frace

import (
	"context"
	"sync"
	"time"

	"github.com/gogama/frace/failure"
	"github.com/gogama/frace/producer"
	"github.com/gogama/frace/race"
)

// execution serializes changes to a race.Execution, and the event
// handlers observing them, across the bucket goroutines of one race.
type execution struct {
	*race.Execution
	handlers *HandlerGroup
	lock     sync.Mutex
}

// fire must be called with x.lock held.
func (x *execution) fire(evt Event, a *race.Attempt) {
	x.handlers.run(evt, x.Execution, a)
}

// record appends a, which was never invoked, to its bucket and fires
// AfterAttemptSkip.
func (x *execution) record(a race.Attempt) {
	x.lock.Lock()
	defer x.lock.Unlock()
	x.Attempts[a.Bucket] = append(x.Attempts[a.Bucket], a)
	x.fire(AfterAttemptSkip, x.last(a.Bucket))
}

// begin appends the in-flight attempt a to its bucket and fires
// BeforeAttempt.
func (x *execution) begin(a *race.Attempt) {
	x.lock.Lock()
	defer x.lock.Unlock()
	a.Start = time.Now()
	x.Attempts[a.Bucket] = append(x.Attempts[a.Bucket], *a)
	x.fire(BeforeAttempt, x.last(a.Bucket))
}

// end replaces the in-flight copy of a with its final state and fires
// the post-attempt events.
func (x *execution) end(a *race.Attempt) {
	x.lock.Lock()
	defer x.lock.Unlock()
	p := x.last(a.Bucket)
	*p = *a
	if _, ok := a.Err.(*TimeoutError); ok {
		x.fire(AfterAttemptTimeout, p)
	}
	x.fire(AfterAttempt, p)
}

func (x *execution) done() {
	x.lock.Lock()
	defer x.lock.Unlock()
	x.Racing--
}

func (x *execution) last(bucket int) *race.Attempt {
	attempts := x.Attempts[bucket]
	return &attempts[len(attempts)-1]
}

type outcome struct {
	bucket    int
	succeeded bool
	value     interface{}
	attempt   race.Attempt
}

// runBucket tries the producers of one bucket in order until one
// succeeds, the bucket is exhausted, or ctx ends.
func (s *Scheduler) runBucket(ctx context.Context, x *execution, b int) outcome {
	defer x.done()

	timeouts := 0
	for i, id := range x.Request.Buckets[b] {
		if ctx.Err() != nil {
			break
		}

		a := race.Attempt{
			Bucket:         b,
			Index:          i,
			ProducerID:     id,
			BucketTimeouts: timeouts,
		}

		p, err := s.Registry.Resolve(id)
		if err != nil {
			a.Err, a.Kind = err, failure.Unknown
			x.record(a)
			continue
		}

		if !s.Tracker.Admit(id, time.Now()) {
			a.Err, a.Kind = failure.ErrSkipped, failure.Skipped
			x.record(a)
			continue
		}

		if !s.starter().Start(id) {
			s.Tracker.Release(id)
			a.Err, a.Kind = failure.ErrThrottled, failure.Throttled
			x.record(a)
			continue
		}

		a.Timeout = s.timeoutFor(x.Request, p, &a)
		v := s.attempt(ctx, x, p, &a)
		switch a.Kind {
		case failure.None:
			return outcome{bucket: b, succeeded: true, value: v, attempt: a}
		case failure.Cancelled:
			return outcome{bucket: b}
		case failure.Timeout:
			timeouts++
		}
	}

	return outcome{bucket: b}
}

// attempt invokes p once, bounded by a.Timeout, and updates the
// producer's health unless the race no longer needs the result.
func (s *Scheduler) attempt(ctx context.Context, x *execution, p *producer.Producer, a *race.Attempt) interface{} {
	actx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	if arg, ok := x.Request.Args[p.ID]; ok {
		actx = race.WithArg(actx, arg)
	}

	x.begin(a)
	v, err := invoke(actx, p.Invoker)
	a.End = time.Now()

	switch {
	case ctx.Err() != nil:
		s.Tracker.Release(p.ID)
		a.Err, a.Kind = failure.Redundant, failure.Cancelled
		v = nil
	case err == nil:
		s.Tracker.OnSuccess(p.ID)
		a.Err, a.Kind = nil, failure.None
	default:
		if actx.Err() == context.DeadlineExceeded {
			err = &TimeoutError{ProducerID: p.ID, Limit: a.Timeout}
		}
		s.Tracker.OnFailure(p.ID, a.End)
		a.Err, a.Kind = err, failure.CategorizeInvocation(err)
	}

	x.end(a)
	return v
}

func (s *Scheduler) timeoutFor(r *race.Request, p *producer.Producer, a *race.Attempt) time.Duration {
	if d, ok := r.Timeout(p.ID); ok && d > 0 {
		return d
	}
	if p.Timeout > 0 {
		return p.Timeout
	}
	return s.timeoutPolicy().Timeout(a)
}

type result struct {
	value interface{}
	err   error
}

// invoke runs inv on its own goroutine so that it can be abandoned
// when ctx ends. A panic in inv is returned as a *failure.PanicError.
func invoke(ctx context.Context, inv producer.Invoker) (interface{}, error) {
	ch := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if v := recover(); v != nil {
				r = result{err: &failure.PanicError{Value: v}}
			}
			ch <- r
		}()
		r.value, r.err = inv.Invoke(ctx)
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
