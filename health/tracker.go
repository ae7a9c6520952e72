// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package health

import (
	"sort"
	"sync"
	"time"

	"github.com/gogama/frace/backoff"
)

// NeverDisable may be used as Config.DisableThreshold to keep producers
// cycling through ever longer (capped) backoff windows without ever
// being disabled.
const NeverDisable = -1

// Config holds the tuning knobs of a Tracker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that moves
	// a Healthy producer into Backoff. It must be at least one.
	FailureThreshold int

	// DisableThreshold is the number of backoff escalations a producer
	// may accumulate. The escalation that takes the backoff level above
	// DisableThreshold disables the producer instead, so zero disables
	// a producer at its first escalation. Use NeverDisable to turn
	// disabling off.
	DisableThreshold int

	// Waiter computes the backoff window from the backoff level. If nil,
	// backoff.DefaultWaiter is used.
	Waiter backoff.Waiter
}

// DefaultConfig is the configuration used by the zero-value scheduler.
var DefaultConfig = Config{
	FailureThreshold: 2,
	DisableThreshold: 8,
	Waiter:           backoff.DefaultWaiter,
}

// A TransitionFunc observes a producer's change of state. It is called
// after the change is committed, outside the tracker's locks, so it may
// query the tracker.
type TransitionFunc func(id string, from, to State)

// A Tracker owns the health state of every producer it has seen.
//
// Tracker is safe for concurrent use by multiple goroutines. Updates to
// one producer are serialized, and updates to different producers do
// not contend with one another beyond a brief shared lookup.
type Tracker struct {
	config Config

	lock    sync.RWMutex
	entries map[string]*entry
	hooks   []TransitionFunc
}

type entry struct {
	lock    sync.Mutex
	status  Status
	probing bool
}

// NewTracker constructs a Tracker. It panics if c.FailureThreshold is
// less than one or c.DisableThreshold is less than NeverDisable.
func NewTracker(c Config) *Tracker {
	if c.FailureThreshold < 1 {
		panic("frace/health: failure threshold must be positive")
	}
	if c.DisableThreshold < NeverDisable {
		panic("frace/health: invalid disable threshold")
	}
	if c.Waiter == nil {
		c.Waiter = backoff.DefaultWaiter
	}
	return &Tracker{
		config:  c,
		entries: make(map[string]*entry),
	}
}

// OnTransition adds f to the functions called whenever a producer
// changes state.
func (t *Tracker) OnTransition(f TransitionFunc) {
	if f == nil {
		panic("frace/health: nil transition func")
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.hooks = append(t.hooks, f)
}

// Ensure starts tracking id as Healthy if it was never seen before. It
// never touches existing state, and reports whether state was created.
func (t *Tracker) Ensure(id string) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	if _, ok := t.entries[id]; ok {
		return false
	}
	t.entries[id] = &entry{status: Status{ID: id}}
	return true
}

// Eligible reports whether the producer may be attempted at time now.
// It is a plain read: use Admit before actually invoking the producer.
//
// A producer never seen before is Healthy and therefore eligible. The
// answer may be stale by one concurrent update.
func (t *Tracker) Eligible(id string, now time.Time) bool {
	e := t.lookup(id)
	if e == nil {
		return true
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.status.Eligible(now)
}

// Admit reports whether the producer may be invoked at time now, and
// if so, claims the invocation.
//
// A Healthy producer is always admitted. A producer in Backoff whose
// window is over is admitted once: the admitted attempt is its probe,
// and further calls return false until the probe's outcome is recorded
// with OnSuccess or OnFailure, or the claim is given up with Release.
// A Disabled producer is never admitted.
func (t *Tracker) Admit(id string, now time.Time) bool {
	e := t.lookup(id)
	if e == nil {
		return true
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	if !e.status.Eligible(now) {
		return false
	}
	if e.status.State != Backoff {
		return true
	}
	if e.probing {
		return false
	}
	e.probing = true
	return true
}

// Release gives up a probe claimed by Admit without recording an
// outcome, for example because the attempt was throttled or abandoned.
// It does nothing if no probe is claimed.
func (t *Tracker) Release(id string) {
	e := t.lookup(id)
	if e == nil {
		return
	}
	e.lock.Lock()
	e.probing = false
	e.lock.Unlock()
}

// OnSuccess records a successful invocation: the producer returns to
// Healthy with no failures and no backoff.
func (t *Tracker) OnSuccess(id string) {
	e := t.get(id)
	e.lock.Lock()
	from := e.status.State
	e.probing = false
	e.status.ConsecutiveFailures = 0
	e.status.BackoffLevel = 0
	e.status.NextEligibleAt = time.Time{}
	e.status.State = Healthy
	e.lock.Unlock()
	t.notify(id, from, Healthy)
}

// OnFailure records a failed invocation at time now.
//
// A Healthy producer escalates once its consecutive failures reach the
// failure threshold. A Backoff producer escalates if the failure is
// from a probe, i.e. now is at or after its eligible time; a failure
// reported while the window is still open (from an attempt started
// before the producer was backed off) is only counted. Failures of a
// Disabled producer are only counted.
func (t *Tracker) OnFailure(id string, now time.Time) {
	e := t.get(id)
	e.lock.Lock()
	s := &e.status
	from := s.State
	e.probing = false
	s.ConsecutiveFailures++
	switch s.State {
	case Healthy:
		if s.ConsecutiveFailures >= t.config.FailureThreshold {
			t.escalate(s, now)
		}
	case Backoff:
		if !now.Before(s.NextEligibleAt) {
			t.escalate(s, now)
		}
	}
	to := s.State
	e.lock.Unlock()
	t.notify(id, from, to)
}

func (t *Tracker) escalate(s *Status, now time.Time) {
	s.BackoffLevel++
	if t.config.DisableThreshold != NeverDisable && s.BackoffLevel > t.config.DisableThreshold {
		s.State = Disabled
		s.NextEligibleAt = time.Time{}
		return
	}
	s.State = Backoff
	s.NextEligibleAt = now.Add(t.config.Waiter.Wait(s.BackoffLevel))
}

// Reset returns the producer to Healthy, clearing its failure history.
// It is the only way out of Disabled.
func (t *Tracker) Reset(id string) {
	t.OnSuccess(id)
}

// Status returns a copy of the producer's health. The second return
// value is false if the tracker has never seen id.
func (t *Tracker) Status(id string) (Status, bool) {
	e := t.lookup(id)
	if e == nil {
		return Status{ID: id}, false
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.status, true
}

// Remaining returns how long the producer must still wait at time now
// before it becomes eligible for a probe. It is zero for eligible and
// for Disabled producers; use Status to tell those apart.
func (t *Tracker) Remaining(id string, now time.Time) time.Duration {
	s, _ := t.Status(id)
	return s.Remaining(now)
}

// Unavailable returns the sorted identifiers of every producer that is
// not eligible at time now: those backing off, and those disabled.
func (t *Tracker) Unavailable(now time.Time) []string {
	var ids []string
	for _, s := range t.Snapshot() {
		if !s.Eligible(now) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Snapshot returns a copy of the health of every tracked producer,
// sorted by ID.
func (t *Tracker) Snapshot() []Status {
	t.lock.RLock()
	entries := make([]*entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.lock.RUnlock()

	statuses := make([]Status, len(entries))
	for i, e := range entries {
		e.lock.Lock()
		statuses[i] = e.status
		e.lock.Unlock()
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}

func (t *Tracker) lookup(id string) *entry {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.entries[id]
}

func (t *Tracker) get(id string) *entry {
	if e := t.lookup(id); e != nil {
		return e
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	e, ok := t.entries[id]
	if !ok {
		e = &entry{status: Status{ID: id}}
		t.entries[id] = e
	}
	return e
}

func (t *Tracker) notify(id string, from, to State) {
	if from == to {
		return
	}
	t.lock.RLock()
	hooks := t.hooks
	t.lock.RUnlock()
	for _, f := range hooks {
		f(id, from, to)
	}
}
