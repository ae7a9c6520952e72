// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package metrics exports race and producer health metrics to Prometheus.

Create a Collector, install it in the scheduler's handler group, and
subscribe it to the health tracker's transitions:

	c := metrics.NewCollector(prometheus.DefaultRegisterer)
	handlers := &frace.HandlerGroup{}
	c.Install(handlers)
	s := frace.NewScheduler(frace.DefaultConfig())
	s.Handlers = handlers
	s.Tracker.OnTransition(c.ObserveTransition)

The collector exports:

	frace_races_total{outcome}               races by outcome: won, exhausted, cancelled
	frace_race_duration_seconds              race latency
	frace_attempts_total{producer,kind}      attempts by producer and failure kind
	frace_attempt_duration_seconds{producer} invocation latency
	frace_producer_state{producer}           0 healthy, 1 backoff, 2 disabled
*/
package metrics
