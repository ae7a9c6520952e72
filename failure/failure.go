// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package failure

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogama/frace/producer"
)

// ErrSkipped is the error recorded when a producer is bypassed because
// its circuit is open (it is backing off, or it has been disabled).
var ErrSkipped = errors.New("frace/failure: skipped, circuit open")

// ErrThrottled is the error recorded when a producer is bypassed because
// the scheduler's starter refused to admit the attempt.
var ErrThrottled = errors.New("frace/failure: throttled")

// Redundant is the error recorded when an in-flight attempt is abandoned
// because the race was resolved by another bucket, or cancelled.
var Redundant = errors.New("frace/failure: redundant attempt")

// A Kind is the failure category of an attempt error, as reported by
// function Categorize.
type Kind int

const (
	// None indicates a nil error.
	None Kind = iota
	// Producer indicates the producer's invocation returned an error of
	// its own. The underlying error is preserved on the attempt.
	Producer
	// Timeout indicates the invocation exceeded its time bound.
	//
	// Function Categorize returns Timeout if the error or any of its
	// wrapped causes has a Timeout() function that reports true, or is
	// context.DeadlineExceeded.
	Timeout
	// Panic indicates the producer panicked during invocation.
	Panic
	// Skipped indicates the producer was not invoked because its
	// circuit was open.
	Skipped
	// Throttled indicates the producer was not invoked because the
	// starter refused the attempt.
	Throttled
	// Unknown indicates the bucket named a producer that was never
	// registered.
	Unknown
	// Cancelled indicates the attempt was abandoned as Redundant.
	Cancelled
)

var kindNames = []string{
	"None",
	"Producer",
	"Timeout",
	"Panic",
	"Skipped",
	"Throttled",
	"Unknown",
	"Cancelled",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Counts reports whether a failure of this kind is charged against the
// producer's health. Only real invocations that went wrong count; a
// bypass or an abandoned attempt says nothing about the producer.
func (k Kind) Counts() bool {
	return k == Producer || k == Timeout || k == Panic
}

// A PanicError wraps the value recovered from a panicking producer.
type PanicError struct {
	Value interface{}
}

func (err *PanicError) Error() string {
	return fmt.Sprintf("frace/failure: producer panicked: %v", err.Value)
}

// Categorize returns the failure kind of the given error. A nil error
// produces None.
//
// In assessing the kind, Categorize looks at wrapped cause errors
// contained within err, not just err itself. The bypass sentinels are
// checked first, so an error wrapping both ErrSkipped and a timeout is
// categorized as Skipped.
func Categorize(err error) Kind {
	if err == nil {
		return None
	}

	switch {
	case errors.Is(err, ErrSkipped):
		return Skipped
	case errors.Is(err, ErrThrottled):
		return Throttled
	case errors.Is(err, Redundant):
		return Cancelled
	case errors.Is(err, producer.ErrUnknownProducer):
		return Unknown
	}

	return CategorizeInvocation(err)
}

// CategorizeInvocation returns the failure kind of an error returned
// by invoking a producer: None, Producer, Timeout or Panic. The bypass
// sentinels are ignored, since a producer that returns one, for
// example by delegating to another scheduler, still failed.
func CategorizeInvocation(err error) Kind {
	if err == nil {
		return None
	}

	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return Panic
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	return Producer
}

type hasTimeout interface {
	Timeout() bool
}
