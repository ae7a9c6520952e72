// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package frace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gogama/frace/health"
	"github.com/gogama/frace/producer"
	"github.com/gogama/frace/race"
	"github.com/gogama/frace/throttle"
	"github.com/gogama/frace/timeout"
)

var emptyHandlers = HandlerGroup{}

// A Scheduler races buckets of producers against each other and returns
// the first value produced. Its zero value is a valid configuration.
//
// The zero value scheduler uses an empty producer registry, a health
// tracker configured with health.DefaultConfig, timeout.DefaultPolicy
// as the timeout policy, throttle.AlwaysStart as the starter, an empty
// handler group and slog.Default as the logger.
//
// A Scheduler is safe for concurrent use by multiple goroutines. Races
// run concurrently share the registry and the health tracker, so a
// producer that fails in one race may be skipped in another.
//
// Within a race, each bucket runs on its own goroutine and tries its
// producers one at a time, in order, until one returns a value:
//
// • a producer whose circuit is open is skipped without being invoked,
// and so is a producer whose backoff is over while another attempt is
// already probing it;
//
// • a producer the starter refuses is skipped without being invoked;
//
// • a producer that returns an error, panics, or exceeds its timeout
// is recorded as failed, and the bucket moves on to the next producer.
//
// The first bucket to produce a value wins. The remaining buckets are
// cancelled, and their in-flight producers are abandoned without
// waiting for them to return.
type Scheduler struct {
	// Registry holds the producers known to the scheduler.
	//
	// If Registry is nil, the scheduler allocates an empty one on first
	// use.
	Registry *producer.Registry
	// Tracker records producer health and decides which producers are
	// eligible to run.
	//
	// If Tracker is nil, the scheduler allocates one configured with
	// health.DefaultConfig on first use. Health changes are logged only
	// on trackers the scheduler allocates itself, so a Tracker shared by
	// several schedulers is not logged once per scheduler. Use
	// Tracker.OnTransition to observe a tracker supplied here.
	Tracker *health.Tracker
	// TimeoutPolicy sets the timeout on attempts whose producer and
	// request do not specify one.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Starter decides whether an eligible producer may start now.
	//
	// If Starter is nil, throttle.AlwaysStart is used.
	Starter throttle.Starter
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during a race.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Logger receives producer health transitions.
	//
	// If Logger is nil, slog.Default is used.
	Logger *slog.Logger

	once sync.Once
}

// NewScheduler returns a scheduler with an empty registry whose health
// tracker and default timeout follow c. It panics if c is invalid.
func NewScheduler(c Config) *Scheduler {
	if err := c.Validate(); err != nil {
		panic(err.Error())
	}
	s := &Scheduler{
		Registry:      &producer.Registry{},
		TimeoutPolicy: c.timeoutPolicy(),
	}
	s.Tracker = s.newTracker(c.health())
	return s
}

func (s *Scheduler) init() {
	s.once.Do(func() {
		if s.Registry == nil {
			s.Registry = &producer.Registry{}
		}
		if s.Tracker == nil {
			s.Tracker = s.newTracker(health.DefaultConfig)
		}
	})
}

func (s *Scheduler) newTracker(c health.Config) *health.Tracker {
	t := health.NewTracker(c)
	t.OnTransition(func(id string, from, to health.State) {
		s.logger().Info("producer health changed",
			"producer", id, "from", from.String(), "to", to.String())
	})
	return t
}

// Register adds a producer under id, replacing any producer already
// registered under the same id. A positive timeout overrides the
// scheduler's timeout policy for this producer.
//
// Replacing a producer keeps its health: a producer that is backing
// off stays backing off until it succeeds or is reset.
func (s *Scheduler) Register(id string, invoker producer.Invoker, timeout time.Duration) {
	s.RegisterProducer(&producer.Producer{
		ID:      id,
		Invoker: invoker,
		Timeout: timeout,
	})
}

// RegisterProducer adds p, replacing any producer already registered
// under the same ID. Only a copy of p is retained.
func (s *Scheduler) RegisterProducer(p *producer.Producer) {
	s.init()
	replaced := s.Registry.Register(p)
	s.Tracker.Ensure(p.ID)
	if replaced {
		s.logger().Debug("producer replaced", "producer", p.ID)
	}
}

// Race runs a race over buckets, governed by ctx, using the same
// policies followed by Do.
func (s *Scheduler) Race(ctx context.Context, buckets ...race.Bucket) (*race.Execution, error) {
	return Race(s, ctx, buckets...)
}

// Do runs the race described by r and returns the results.
//
// If some bucket produces a value, the returned error is nil and the
// execution's Winner and Result describe the winning attempt. When two
// buckets succeed at the same instant, the bucket that comes first in
// the request wins.
//
// If the request context ends before a winner is returned, the error
// matches ErrRaceCancelled and the context's error, even if some bucket
// had already produced a value.
//
// If every bucket runs out of producers, the error is an
// *ExhaustedError listing every attempt of every bucket.
//
// The returned Execution is never nil. If an error was returned, the
// Err field of the Execution always references the same error. Do
// returns only after every bucket has stopped.
func (s *Scheduler) Do(r *race.Request) (*race.Execution, error) {
	s.init()

	handlers := s.Handlers
	if handlers == nil {
		handlers = &emptyHandlers
	}

	x := &execution{
		Execution: race.NewExecution(r),
		handlers:  handlers,
	}

	x.lock.Lock()
	x.fire(BeforeRaceStart, nil)
	x.Start = time.Now()
	x.Racing = len(r.Buckets)
	x.lock.Unlock()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	results := make(chan outcome, len(r.Buckets))
	var wg sync.WaitGroup
	for i := range r.Buckets {
		wg.Add(1)
		go func(b int) {
			defer wg.Done()
			results <- s.runBucket(ctx, x, b)
		}(i)
	}

	winner := await(results, len(r.Buckets), r.Context().Done())

	cancel()
	wg.Wait()

	x.lock.Lock()
	defer x.lock.Unlock()
	x.Racing = 0
	if err := r.Context().Err(); err != nil {
		x.Err = cancelledError(err)
		x.fire(AfterRaceCancel, nil)
	} else if winner != nil {
		a := winner.attempt
		x.Winner = &a
		x.Result = winner.value
	} else {
		x.Err = &ExhaustedError{Buckets: copyAttempts(x.Attempts)}
	}
	x.End = time.Now()
	x.fire(AfterRaceEnd, nil)
	return x.Execution, x.Err
}

// Reset returns the producer to the healthy state, clearing its
// failure count and backoff level.
func (s *Scheduler) Reset(id string) {
	s.init()
	s.Tracker.Reset(id)
}

// Status returns a snapshot of the producer's health. The second
// return value is false if the producer has never been registered or
// seen by the tracker.
func (s *Scheduler) Status(id string) (health.Status, bool) {
	s.init()
	return s.Tracker.Status(id)
}

// Unavailable returns the IDs of producers that are currently not
// eligible to run, sorted.
func (s *Scheduler) Unavailable() []string {
	s.init()
	return s.Tracker.Unavailable(time.Now())
}

// Remaining returns how long until a backing-off producer becomes
// eligible again. It returns zero for an eligible producer and for a
// disabled one; use Status to tell those apart.
func (s *Scheduler) Remaining(id string) time.Duration {
	s.init()
	return s.Tracker.Remaining(id, time.Now())
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Scheduler) timeoutPolicy() timeout.Policy {
	if s.TimeoutPolicy == nil {
		return timeout.DefaultPolicy
	}
	return s.TimeoutPolicy
}

func (s *Scheduler) starter() throttle.Starter {
	if s.Starter == nil {
		return throttle.AlwaysStart
	}
	return s.Starter
}

// await reads bucket outcomes until one succeeds, every one of pending
// buckets has reported, or done is closed. Once a success is read, any
// other successes already delivered are considered too, and the one
// from the lowest bucket wins.
func await(results <-chan outcome, pending int, done <-chan struct{}) *outcome {
	var winner *outcome
RaceLoop:
	for pending > 0 {
		select {
		case o := <-results:
			pending--
			if o.succeeded {
				winner = &o
				break RaceLoop
			}
		case <-done:
			return nil
		}
	}

	if winner == nil {
		return nil
	}

TieLoop:
	for pending > 0 {
		select {
		case o := <-results:
			pending--
			if o.succeeded && o.bucket < winner.bucket {
				winner = &o
			}
		default:
			break TieLoop
		}
	}

	return winner
}

func copyAttempts(src [][]race.Attempt) [][]race.Attempt {
	dst := make([][]race.Attempt, len(src))
	for i := range src {
		dst[i] = append([]race.Attempt(nil), src[i]...)
	}
	return dst
}
