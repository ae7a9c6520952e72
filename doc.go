// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package frace races interchangeable producers of the same value against
each other, with failover and per-producer circuit breaking.

Register producers with a Scheduler, then race buckets of producer IDs.
Buckets run concurrently; within a bucket, producers are tried one at a
time, in order, until one returns a value.

	s := &frace.Scheduler{}
	s.Register("primary", producer.InvokerFunc(fetchPrimary), 0)
	s.Register("mirror", producer.InvokerFunc(fetchMirror), 0)
	s.Register("cache", producer.InvokerFunc(fetchCache), 100*time.Millisecond)
	ex, err := s.Race(ctx,
		race.Bucket{"primary", "mirror"},
		race.Bucket{"cache"})
	...
	v := ex.Result

A producer that keeps failing is put into exponential backoff and
skipped by every race until its backoff window passes. Control how
quickly that happens with a Config:

	c := frace.DefaultConfig()
	c.FailureThreshold = 3
	c.MaxBackoffDelay = time.Minute
	s := frace.NewScheduler(c)

For control over individual attempt timeouts, set a custom timeout
policy using package timeout, or override the timeout for one producer
in one race using race.Request:

	r := race.NewRequest(race.Bucket{"primary", "mirror"})
	r.Timeouts = map[string]time.Duration{"primary": 50 * time.Millisecond}
	ex, err := s.Do(r)

To hook into the fine-grained details of a race, install a handler into
the appropriate handler chain:

	handlers := &frace.HandlerGroup{}
	handlers.PushBack(frace.AfterAttempt, frace.HandlerFunc(
		func(_ frace.Event, e *race.Execution, a *race.Attempt) {
			log.Printf("race %s: %s ended with %v", e.ID, a.ProducerID, a.Err)
		}),
	)
	s := &frace.Scheduler{
		Handlers: handlers,
	}

Ready-made handlers are provided by LogHandler, and by packages metrics
and trace.

Package frace provides basic interfaces for each method of the
scheduler (Doer, Racer and Resetter); a combined interface that
composes all the basic methods (Executor); and utility functions for
working with a Doer (Inflate and Race).
*/
package frace
