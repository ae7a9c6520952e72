// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package health tracks per-producer reliability and decides whether a
producer should be attempted right now. It is a circuit breaker with
exponential backoff and a terminal disabled state.

Each producer moves between three states:

• Healthy: the producer is attempted normally. Consecutive failures
  are counted; when the count reaches the failure threshold the producer
  escalates into Backoff.

• Backoff: the producer is skipped until its next eligible time. Once
  that time has passed it is eligible for a probe attempt, but its state
  does not change until the probe's outcome is known. A successful probe
  returns it to Healthy; a failed probe escalates the backoff level and
  starts a longer backoff window.

• Disabled: the backoff level exceeded the disable threshold. The
  producer is never attempted again until Tracker.Reset is called.

Backoff windows are computed by a backoff.Waiter from the backoff level.
No timers run in the background: eligibility is evaluated lazily, at the
time of the attempt, against the timestamp recorded at escalation.
*/
package health
