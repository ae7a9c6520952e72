// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/frace/race"
)

// A Policy defines a timeout policy which may be plugged into the race
// scheduler (frace.Scheduler) to direct how to bound a producer
// invocation that has no timeout of its own.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout to set on the attempt about to be
	// made.
	//
	// Parameter a describes the attempt. Its bucket position, producer
	// and BucketTimeouts fields are set; its invocation fields are not.
	Timeout(a *race.Attempt) time.Duration
}

// DefaultPolicy is the default timeout policy. It sets a fixed timeout
// of 5 seconds on each attempt.
var DefaultPolicy Policy = Fixed(5 * time.Second)

// Infinite is a built-in timeout policy which never times out.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed constructs a timeout policy that uses the same value to bound
// every attempt.
func Fixed(d time.Duration) Policy {
	if d <= 0 {
		panic("frace/timeout: timeout must be positive")
	}
	return policy([]time.Duration{d})
}

// Adaptive constructs a timeout policy that grants more time to the
// fallback producers of a bucket in which earlier attempts timed out.
//
// Use Adaptive when the providers behind a bucket tend to slow down
// together: if the first choice timed out, the next choice is likely
// slow for the same reason, and a slightly longer bound gives it a
// chance to finish instead of failing the whole bucket.
//
// Parameter usual is the timeout returned when no earlier attempt in
// the bucket timed out. Parameter after contains the timeouts returned
// after one, two, ... earlier timeouts in the bucket. If more attempts
// have timed out than after has elements, the last element is used.
//
// Consider the following timeout policy:
//
// 	p := Adaptive(200*time.Millisecond, time.Second, 3*time.Second)
//
// The policy p bounds an attempt to 200 milliseconds, unless an earlier
// attempt in the same bucket timed out, in which case it allows 1
// second, or 3 seconds after two or more timeouts.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	p := make([]time.Duration, 1, 1+len(after))
	p[0] = usual
	p = append(p, after...)
	for _, d := range p {
		if d <= 0 {
			panic("frace/timeout: timeout must be positive")
		}
	}
	return policy(p)
}

type policy []time.Duration

func (p policy) Timeout(a *race.Attempt) time.Duration {
	i := a.BucketTimeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return p[i]
}
