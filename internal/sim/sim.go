// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package sim provides simulated producers with configurable latency
// and failure rate, for exercising a scheduler without real backends.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// ErrSimulated is returned by a Producer when it draws a failure.
var ErrSimulated = errors.New("sim: simulated failure")

// A Spec describes a simulated producer.
type Spec struct {
	ID          string        `yaml:"id"`
	Latency     time.Duration `yaml:"latency"`
	Jitter      time.Duration `yaml:"jitter"`
	FailureRate float64       `yaml:"failure_rate"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Validate reports the first invalid field of s, if any.
func (s Spec) Validate() error {
	switch {
	case s.ID == "":
		return errors.New("sim: producer id is required")
	case s.Latency < 0 || s.Jitter < 0:
		return fmt.Errorf("sim: producer %q: latency and jitter must not be negative", s.ID)
	case s.FailureRate < 0 || s.FailureRate > 1:
		return fmt.Errorf("sim: producer %q: failure_rate must be between 0 and 1", s.ID)
	case s.Timeout < 0:
		return fmt.Errorf("sim: producer %q: timeout must not be negative", s.ID)
	}
	return nil
}

// A Producer sleeps for its latency, plus up to its jitter, then fails
// with probability FailureRate or returns a value naming itself and
// the call number. It honors context cancellation while sleeping.
type Producer struct {
	spec Spec

	lock  sync.Mutex
	rand  *rand.Rand
	calls int
}

// New returns a simulated producer following spec whose random draws
// are seeded by seed. It panics if spec is invalid.
func New(spec Spec, seed int64) *Producer {
	if err := spec.Validate(); err != nil {
		panic(err.Error())
	}
	return &Producer{
		spec: spec,
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Invoke simulates one call.
func (p *Producer) Invoke(ctx context.Context) (interface{}, error) {
	p.lock.Lock()
	p.calls++
	n := p.calls
	d := p.spec.Latency
	if p.spec.Jitter > 0 {
		d += time.Duration(p.rand.Int63n(int64(p.spec.Jitter) + 1))
	}
	fail := p.rand.Float64() < p.spec.FailureRate
	p.lock.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if fail {
		return nil, fmt.Errorf("%w: %s call %d", ErrSimulated, p.spec.ID, n)
	}
	return fmt.Sprintf("%s#%d", p.spec.ID, n), nil
}

// Calls returns the number of times Invoke has been called.
func (p *Producer) Calls() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.calls
}
