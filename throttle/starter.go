// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package throttle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// A Starter decides whether an attempt to invoke a producer may start
// now.
//
// Implementations of Starter must be safe for concurrent use by
// multiple goroutines.
type Starter interface {
	// Start returns true if the producer may be invoked now, and false
	// if the attempt should be recorded as throttled.
	Start(producerID string) bool
}

// AlwaysStart is a starter that starts every attempt.
var AlwaysStart Starter = alwaysStarter(0)

type alwaysStarter int

func (st alwaysStarter) Start(_ string) bool {
	return true
}

// A Limit specifies the maximum number of attempts allowed per unit
// time.
type Limit struct {
	MaxAttempts int
	Period      time.Duration
}

// NewThrottleStarter constructs a starter which throttles attempts on
// each producer based on one or more limits. Limits apply to each
// producer separately.
//
// For example, the following starter refuses to invoke a producer that
// has already been invoked 10 times in the last half second, or 15
// times in the last second:
//
//	s := throttle.NewThrottleStarter(
//		throttle.Limit{MaxAttempts: 10, Period: 500*time.Millisecond},
//		throttle.Limit{MaxAttempts: 15, Period: 1*time.Second})
//
// A refused attempt is not counted against any limit.
func NewThrottleStarter(limits ...Limit) Starter {
	for _, l := range limits {
		if l.MaxAttempts < 0 || l.Period < 0 {
			panic("frace/throttle: invalid limit")
		}
	}
	ls := make([]Limit, len(limits))
	copy(ls, limits)
	return &throttleStarter{
		limits: ls,
		queues: make(map[string][]limitQueue),
		now:    time.Now,
	}
}

type throttleStarter struct {
	limits []Limit
	queues map[string][]limitQueue
	now    func() time.Time
	lock   sync.Mutex
}

func (st *throttleStarter) Start(producerID string) bool {
	st.lock.Lock()
	defer st.lock.Unlock()
	qs, ok := st.queues[producerID]
	if !ok {
		qs = make([]limitQueue, len(st.limits))
		for i, l := range st.limits {
			qs[i] = newLimitQueue(l.Period, l.MaxAttempts)
		}
		st.queues[producerID] = qs
	}
	now := st.now()
	for i := range qs {
		if !qs[i].room(now) {
			return false
		}
	}
	for i := range qs {
		qs[i].push(now)
	}
	return true
}

// limitQueue is a ring buffer of the start times of recent attempts.
type limitQueue struct {
	period     time.Duration
	a          []time.Time
	start, len int
}

func newLimitQueue(period time.Duration, cap int) limitQueue {
	return limitQueue{
		period: period,
		a:      make([]time.Time, cap),
	}
}

// room expires samples older than one period before t, and reports
// whether another sample fits.
func (q *limitQueue) room(t time.Time) bool {
	cutoff := t.Add(-q.period)
	for q.len > 0 && !cutoff.Before(q.a[q.start]) {
		q.start = (q.start + 1) % len(q.a)
		q.len--
	}
	return q.len < len(q.a)
}

func (q *limitQueue) push(t time.Time) {
	i := (q.start + q.len) % len(q.a)
	q.a[i] = t
	q.len++
}

// NewRateStarter constructs a starter that gives each producer its own
// token bucket, refilled at r tokens per second up to burst tokens.
// Each started attempt consumes one token.
func NewRateStarter(r rate.Limit, burst int) Starter {
	if burst < 0 {
		panic("frace/throttle: negative burst")
	}
	return &rateStarter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        burst,
	}
}

type rateStarter struct {
	limiters map[string]*rate.Limiter
	lock     sync.Mutex
	r        rate.Limit
	b        int
}

func (st *rateStarter) Start(producerID string) bool {
	return st.limiter(producerID).Allow()
}

func (st *rateStarter) limiter(producerID string) *rate.Limiter {
	st.lock.Lock()
	defer st.lock.Unlock()
	l, ok := st.limiters[producerID]
	if !ok {
		l = rate.NewLimiter(st.r, st.b)
		st.limiters[producerID] = l
	}
	return l
}
