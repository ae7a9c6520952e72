// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package race

import (
	"time"

	"github.com/gogama/frace/failure"
)

// An Attempt records what happened to one producer ID in one bucket.
//
// Not every attempt invokes its producer: a producer may be skipped
// because its circuit is open, refused by the scheduler's starter, or
// unknown. Such attempts have a zero Start and End.
type Attempt struct {
	// Bucket is the zero-based position of the bucket in the request.
	Bucket int

	// Index is the zero-based position of the producer ID within the
	// bucket.
	Index int

	// ProducerID is the producer the attempt is for.
	ProducerID string

	// Start and End bound the invocation. Both are zero if the producer
	// was not invoked; End is zero while the invocation is in flight.
	Start, End time.Time

	// Timeout is the bound placed on the invocation.
	Timeout time.Duration

	// BucketTimeouts counts the earlier attempts in the same bucket
	// that timed out.
	BucketTimeouts int

	// Err is the reason the attempt did not win. It is nil for the
	// winning attempt and while the invocation is in flight.
	Err error

	// Kind is the failure kind of Err.
	Kind failure.Kind
}

// Invoked indicates whether the producer was actually invoked.
func (a *Attempt) Invoked() bool {
	return a.Start != (time.Time{})
}

// Duration returns the duration of the invocation. It is zero if the
// producer was not invoked, and grows while the invocation is in flight.
func (a *Attempt) Duration() time.Duration {
	if !a.Invoked() {
		return 0
	} else if a.End == (time.Time{}) {
		return time.Since(a.Start)
	}
	return a.End.Sub(a.Start)
}

// TimedOut indicates whether the attempt ended in a timeout.
func (a *Attempt) TimedOut() bool {
	return a.Kind == failure.Timeout
}
