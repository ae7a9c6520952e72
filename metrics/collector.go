// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"errors"
	"net/http"

	"github.com/gogama/frace"
	"github.com/gogama/frace/health"
	"github.com/gogama/frace/race"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "frace"

// Race outcome label values.
const (
	Won       = "won"
	Exhausted = "exhausted"
	Cancelled = "cancelled"
)

// A Collector records race and producer health metrics. It implements
// frace.Handler.
type Collector struct {
	races           *prometheus.CounterVec
	raceDuration    prometheus.Histogram
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	producerState   *prometheus.GaugeVec
}

// NewCollector creates a collector and registers its metrics with reg.
// If reg is nil, prometheus.DefaultRegisterer is used. NewCollector
// panics if the metrics are already registered with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		races: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_total",
			Help:      "Total number of races, by outcome.",
		}, []string{"outcome"}),
		raceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "race_duration_seconds",
			Help:      "Race latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of producer attempts, by producer and failure kind.",
		}, []string{"producer", "kind"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Producer invocation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"producer"}),
		producerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "producer_state",
			Help:      "Producer health state: 0 healthy, 1 backoff, 2 disabled.",
		}, []string{"producer"}),
	}

	reg.MustRegister(c.races, c.raceDuration, c.attempts, c.attemptDuration, c.producerState)
	return c
}

// Install pushes c onto the back of the handler chains it observes.
func (c *Collector) Install(g *frace.HandlerGroup) {
	g.PushBack(frace.AfterAttemptSkip, c)
	g.PushBack(frace.AfterAttempt, c)
	g.PushBack(frace.AfterRaceEnd, c)
}

// Handle records evt.
func (c *Collector) Handle(evt frace.Event, e *race.Execution, a *race.Attempt) {
	switch evt {
	case frace.AfterAttemptSkip:
		c.attempts.WithLabelValues(a.ProducerID, a.Kind.String()).Inc()
	case frace.AfterAttempt:
		c.attempts.WithLabelValues(a.ProducerID, a.Kind.String()).Inc()
		c.attemptDuration.WithLabelValues(a.ProducerID).Observe(a.Duration().Seconds())
	case frace.AfterRaceEnd:
		c.races.WithLabelValues(outcome(e)).Inc()
		c.raceDuration.Observe(e.Duration().Seconds())
	}
}

// ObserveTransition records a producer's new health state. Its
// signature matches health.TransitionFunc.
func (c *Collector) ObserveTransition(id string, _, to health.State) {
	c.producerState.WithLabelValues(id).Set(float64(to))
}

// ObserveSnapshot records the health state of every producer in
// statuses, typically the result of health.Tracker.Snapshot.
func (c *Collector) ObserveSnapshot(statuses []health.Status) {
	for _, s := range statuses {
		c.producerState.WithLabelValues(s.ID).Set(float64(s.State))
	}
}

func outcome(e *race.Execution) string {
	switch {
	case e.Err == nil:
		return Won
	case errors.Is(e.Err, frace.ErrRaceCancelled):
		return Cancelled
	default:
		return Exhausted
	}
}

// Handler returns an HTTP handler exposing the metrics gathered by g in
// the Prometheus text format. If g is nil, prometheus.DefaultGatherer
// is used.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
