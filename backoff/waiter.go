// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package backoff

import (
	"math/rand"
	"sync"
	"time"
)

// A Waiter specifies how long a producer stays in backoff after its
// level-th consecutive escalation. Level is always at least one when
// called by the health tracker.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
type Waiter interface {
	Wait(level int) time.Duration
}

// DefaultWaiter is the default backoff schedule. It is an unjittered
// exponential schedule with a base of 1 second and a cap of 5 minutes.
var DefaultWaiter = NewExpWaiter(1*time.Second, 5*time.Minute, nil)

// NewFixedWaiter constructs a Waiter that always returns the given
// duration.
func NewFixedWaiter(d time.Duration) Waiter {
	if d < 0 {
		panic("frace/backoff: negative fixed wait")
	}
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(_ int) time.Duration {
	return time.Duration(w)
}

// NewExpWaiter constructs a Waiter implementing a capped exponential
// backoff formula with optional jitter.
//
// Parameters base and max control the exponential calculation of the
// ceiling:
//
//	ceil := min(base * 2**level, max)
//
// Base and max must be positive values, and max must be at least equal
// to base. Without jitter the returned delays never decrease as the
// level grows, and never exceed max.
//
// Parameter jitter is used to generate a random number between 0 and
// ceil, following the "Full Jitter" approach described in:
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
// To make a waiter that does not jitter and simply returns ceil, pass
// nil. Otherwise you may specify either a random number generator seed
// value (as a time.Time, int, or int64) or a random number generator
// (as a rand.Source or *rand.Rand).
func NewExpWaiter(base, max time.Duration, jitter interface{}) Waiter {
	if base < 1 {
		panic("frace/backoff: base must be positive")
	}
	if max < base {
		panic("frace/backoff: max must be at least base")
	}
	r := jitterToRand(jitter)
	return &expWaiter{
		base: base,
		max:  max,
		rand: r,
	}
}

type expWaiter struct {
	base time.Duration
	max  time.Duration
	rand *rand.Rand
	lock sync.Mutex
}

func (w *expWaiter) Wait(level int) time.Duration {
	ceil := int64(w.max)
	if level < 0 {
		level = 0
	}
	if level < 63 {
		exp := int64(1) << uint(level)
		c := int64(w.base) * exp
		if c/exp == int64(w.base) && c < ceil {
			ceil = c
		}
	}

	duration := ceil
	if ceil > 0 && w.rand != nil {
		w.lock.Lock()
		defer w.lock.Unlock()
		duration = w.rand.Int63n(ceil)
	}

	return time.Duration(duration)
}

func jitterToRand(jitter interface{}) *rand.Rand {
	var s rand.Source
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("frace/backoff: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("frace/backoff: invalid jitter type")
	}
	return rand.New(s)
}
