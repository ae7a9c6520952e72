// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package frace

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Scheduler to extend it with
// custom functionality such as logging, metrics or tracing.
type Event int

const (
	// BeforeRaceStart identifies the event that occurs before the race
	// starts.
	//
	// When Scheduler fires BeforeRaceStart, the execution is non-nil
	// but only its ID, request and empty per-bucket attempt lists have
	// been set. The attempt is nil.
	BeforeRaceStart Event = iota
	// BeforeAttempt identifies the event that occurs just before a
	// producer is invoked.
	//
	// When Scheduler fires BeforeAttempt, the attempt's Start and
	// Timeout are set, and the attempt has been appended to its
	// bucket's list in the execution.
	BeforeAttempt
	// AfterAttemptSkip identifies the event that occurs when a producer
	// in a bucket is passed over without being invoked: because its
	// circuit is open, because the starter refused it, or because it
	// is not registered.
	//
	// When Scheduler fires AfterAttemptSkip, the attempt's Err and Kind
	// say why it was passed over.
	AfterAttemptSkip
	// AfterAttemptTimeout identifies the event that occurs after a
	// producer invocation exceeded its timeout.
	//
	// When Scheduler fires AfterAttemptTimeout, the attempt's Err is
	// a *TimeoutError and the producer's health has been updated.
	AfterAttemptTimeout
	// AfterAttempt identifies the event that occurs after a producer
	// invocation ends, regardless of how it ended.
	//
	// When Scheduler fires AfterAttempt, the attempt's End is set, and
	// Err is nil if and only if the producer returned a value. An
	// attempt abandoned because the race no longer needs it has Err
	// failure.Redundant.
	AfterAttempt
	// AfterRaceCancel identifies the event that occurs when the race
	// ends because the request context was cancelled or its deadline
	// exceeded.
	//
	// When Scheduler fires AfterRaceCancel, every bucket has stopped,
	// the execution has no winner, and its Err matches ErrRaceCancelled.
	// AfterRaceCancel always occurs immediately before AfterRaceEnd.
	AfterRaceCancel
	// AfterRaceEnd identifies the event that occurs after the race
	// ends.
	//
	// When Scheduler fires AfterRaceEnd, the execution is in its final
	// state: End is set, and either Winner and Result are set or Err
	// is. No further events occur for the execution.
	AfterRaceEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeRaceStart",
	"BeforeAttempt",
	"AfterAttemptSkip",
	"AfterAttemptTimeout",
	"AfterAttempt",
	"AfterRaceCancel",
	"AfterRaceEnd",
}

// Events returns a slice containing all events which can occur in a
// race run by Scheduler, in the order in which they would occur for a
// single bucket.
func Events() []Event {
	return []Event{
		BeforeRaceStart,
		BeforeAttempt,
		AfterAttemptSkip,
		AfterAttemptTimeout,
		AfterAttempt,
		AfterRaceCancel,
		AfterRaceEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
