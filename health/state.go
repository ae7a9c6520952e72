// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package health

import (
	"fmt"
	"time"
)

// A State is the circuit state of one producer.
type State int

const (
	// Healthy means the circuit is closed.
	Healthy State = iota
	// Backoff means the circuit is open until Status.NextEligibleAt.
	Backoff
	// Disabled means the circuit is open until explicitly reset.
	Disabled
)

var stateNames = []string{
	"Healthy",
	"Backoff",
	"Disabled",
}

// String returns the name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Status is a point-in-time copy of one producer's health.
type Status struct {
	// ID is the producer identifier.
	ID string

	// State is the circuit state.
	State State

	// ConsecutiveFailures counts failures since the last success or
	// reset.
	ConsecutiveFailures int

	// BackoffLevel counts consecutive backoff escalations. It drives
	// the length of the backoff window.
	BackoffLevel int

	// NextEligibleAt is the time before which a producer in Backoff
	// must not be attempted. It is the zero time unless State is
	// Backoff.
	NextEligibleAt time.Time
}

// Eligible reports whether an attempt may be made at time now.
func (s Status) Eligible(now time.Time) bool {
	switch s.State {
	case Healthy:
		return true
	case Backoff:
		return !now.Before(s.NextEligibleAt)
	default:
		return false
	}
}

// Remaining returns how much longer a producer in Backoff must wait at
// time now before it becomes eligible. It is zero for Healthy and
// Disabled producers, and for Backoff producers whose window is over.
func (s Status) Remaining(now time.Time) time.Duration {
	if s.State != Backoff || !now.Before(s.NextEligibleAt) {
		return 0
	}
	return s.NextEligibleAt.Sub(now)
}
