// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package frace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gogama/frace/race"
)

// ErrRaceCancelled is matched (via errors.Is) by the error returned
// when the request context ends before any bucket succeeded, or before
// the winner could be returned. The returned error also matches the
// context's own error.
var ErrRaceCancelled = errors.New("frace: race cancelled")

// ErrRaceExhausted is matched (via errors.Is) by the *ExhaustedError
// returned when every bucket ran out of producers without a success.
var ErrRaceExhausted = errors.New("frace: race exhausted")

// An ExhaustedError reports, for each bucket in request order, every
// attempt made in that bucket and why it failed.
type ExhaustedError struct {
	Buckets [][]race.Attempt
}

func (err *ExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString(ErrRaceExhausted.Error())
	for i, attempts := range err.Buckets {
		fmt.Fprintf(&b, "; bucket %d: [", i)
		for j := range attempts {
			if j > 0 {
				b.WriteString(", ")
			}
			a := &attempts[j]
			fmt.Fprintf(&b, "%s: %s", a.ProducerID, a.Kind)
		}
		b.WriteByte(']')
	}
	return b.String()
}

// Unwrap returns ErrRaceExhausted.
func (err *ExhaustedError) Unwrap() error {
	return ErrRaceExhausted
}

// A TimeoutError is recorded on an attempt whose producer did not
// finish within its timeout.
type TimeoutError struct {
	ProducerID string
	Limit      time.Duration
}

func (err *TimeoutError) Error() string {
	return fmt.Sprintf("frace: producer %q timed out after %s", err.ProducerID, err.Limit)
}

// Timeout returns true.
func (err *TimeoutError) Timeout() bool {
	return true
}

// Unwrap returns context.DeadlineExceeded.
func (err *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

func cancelledError(cause error) error {
	return fmt.Errorf("%w: %w", ErrRaceCancelled, cause)
}
