// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package health

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gogama/frace/backoff"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewTracker(t *testing.T) {
	t.Run("Bad Args", func(t *testing.T) {
		assert.PanicsWithValue(t, "frace/health: failure threshold must be positive", func() {
			NewTracker(Config{})
		})
		assert.PanicsWithValue(t, "frace/health: invalid disable threshold", func() {
			NewTracker(Config{FailureThreshold: 1, DisableThreshold: -2})
		})
	})
	t.Run("Default Waiter", func(t *testing.T) {
		tr := NewTracker(Config{FailureThreshold: 1})
		assert.Equal(t, backoff.DefaultWaiter, tr.config.Waiter)
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Healthy", Healthy.String())
	assert.Equal(t, "Backoff", Backoff.String())
	assert.Equal(t, "Disabled", Disabled.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestTracker_Unseen(t *testing.T) {
	tr := NewTracker(DefaultConfig)
	assert.True(t, tr.Eligible("nope", t0))
	s, ok := tr.Status("nope")
	assert.False(t, ok)
	assert.Equal(t, Status{ID: "nope"}, s)
	assert.Equal(t, time.Duration(0), tr.Remaining("nope", t0))
	assert.Empty(t, tr.Unavailable(t0))
}

func TestTracker_Ensure(t *testing.T) {
	tr := NewTracker(Config{FailureThreshold: 1, DisableThreshold: NeverDisable, Waiter: backoff.NewFixedWaiter(time.Minute)})
	assert.True(t, tr.Ensure("a"))
	tr.OnFailure("a", t0)
	assert.False(t, tr.Ensure("a"), "second Ensure must not create")
	s, ok := tr.Status("a")
	require.True(t, ok)
	assert.Equal(t, Backoff, s.State, "Ensure must not reset existing state")
	assert.Equal(t, 1, s.ConsecutiveFailures)
}

func TestTracker_OpensAfterThreshold(t *testing.T) {
	tr := NewTracker(Config{
		FailureThreshold: 2,
		DisableThreshold: NeverDisable,
		Waiter:           backoff.NewExpWaiter(time.Second, time.Hour, nil),
	})

	tr.OnFailure("a", t0)
	s, _ := tr.Status("a")
	assert.Equal(t, Healthy, s.State)
	assert.Equal(t, 1, s.ConsecutiveFailures)
	assert.True(t, tr.Eligible("a", t0))

	tr.OnFailure("a", t0)
	s, _ = tr.Status("a")
	assert.Equal(t, Backoff, s.State)
	assert.Equal(t, 2, s.ConsecutiveFailures)
	assert.Equal(t, 1, s.BackoffLevel)
	assert.Equal(t, t0.Add(2*time.Second), s.NextEligibleAt)
	assert.False(t, tr.Eligible("a", t0))
	assert.False(t, tr.Eligible("a", t0.Add(1999*time.Millisecond)))
	assert.True(t, tr.Eligible("a", t0.Add(2*time.Second)), "eligible for a probe")
	assert.Equal(t, 500*time.Millisecond, tr.Remaining("a", t0.Add(1500*time.Millisecond)))
	assert.Equal(t, []string{"a"}, tr.Unavailable(t0))
	assert.Empty(t, tr.Unavailable(t0.Add(2*time.Second)))

	s, _ = tr.Status("a")
	assert.Equal(t, Backoff, s.State, "probe eligibility does not change state")
}

func TestTracker_FailureInsideWindowOnlyCounts(t *testing.T) {
	tr := NewTracker(Config{FailureThreshold: 1, DisableThreshold: 3, Waiter: backoff.NewFixedWaiter(time.Minute)})
	tr.OnFailure("a", t0)
	tr.OnFailure("a", t0.Add(time.Second))
	s, _ := tr.Status("a")
	assert.Equal(t, Backoff, s.State)
	assert.Equal(t, 2, s.ConsecutiveFailures)
	assert.Equal(t, 1, s.BackoffLevel)
	assert.Equal(t, t0.Add(time.Minute), s.NextEligibleAt)
}

func TestTracker_ExponentialGrowthAndCap(t *testing.T) {
	max := 10 * time.Second
	tr := NewTracker(Config{
		FailureThreshold: 1,
		DisableThreshold: NeverDisable,
		Waiter:           backoff.NewExpWaiter(250*time.Millisecond, max, nil),
	})
	now := t0
	prev := time.Duration(0)
	for i := 1; i <= 30; i++ {
		tr.OnFailure("a", now)
		s, _ := tr.Status("a")
		require.Equal(t, Backoff, s.State)
		require.Equal(t, i, s.BackoffLevel)
		delay := s.NextEligibleAt.Sub(now)
		assert.GreaterOrEqual(t, delay, prev, fmt.Sprintf("escalation %d", i))
		assert.LessOrEqual(t, delay, max, fmt.Sprintf("escalation %d", i))
		prev = delay
		now = s.NextEligibleAt
	}
	assert.Equal(t, max, prev)
}

func TestTracker_PermanentDisable(t *testing.T) {
	tr := NewTracker(Config{FailureThreshold: 1, DisableThreshold: 2, Waiter: backoff.NewFixedWaiter(time.Second)})
	now := t0
	for i := 0; i < 2; i++ {
		tr.OnFailure("a", now)
		s, _ := tr.Status("a")
		require.Equal(t, Backoff, s.State)
		now = s.NextEligibleAt
	}
	tr.OnFailure("a", now)
	s, _ := tr.Status("a")
	assert.Equal(t, Disabled, s.State)
	assert.Equal(t, 3, s.BackoffLevel)
	assert.True(t, s.NextEligibleAt.IsZero())
	assert.False(t, tr.Eligible("a", now.Add(24*365*time.Hour)))
	assert.Equal(t, time.Duration(0), tr.Remaining("a", now))
	assert.Equal(t, []string{"a"}, tr.Unavailable(now.Add(time.Hour)))

	tr.OnFailure("a", now.Add(time.Hour))
	s, _ = tr.Status("a")
	assert.Equal(t, Disabled, s.State)

	tr.Reset("a")
	s, _ = tr.Status("a")
	assert.Equal(t, Status{ID: "a", State: Healthy}, s)
	assert.True(t, tr.Eligible("a", now))
}

func TestTracker_OnSuccessResets(t *testing.T) {
	tr := NewTracker(Config{FailureThreshold: 2, DisableThreshold: 1, Waiter: backoff.NewFixedWaiter(time.Second)})
	tr.OnFailure("a", t0)
	s, _ := tr.Status("a")
	require.Equal(t, 1, s.ConsecutiveFailures)
	tr.OnSuccess("a")
	s, _ = tr.Status("a")
	assert.Equal(t, 0, s.ConsecutiveFailures)
	assert.Equal(t, Healthy, s.State)

	tr.OnFailure("a", t0)
	tr.OnFailure("a", t0)
	s, _ = tr.Status("a")
	require.Equal(t, Backoff, s.State)
	tr.OnSuccess("a")
	s, _ = tr.Status("a")
	assert.Equal(t, Status{ID: "a", State: Healthy}, s)
}

func TestTracker_Admit(t *testing.T) {
	tr := NewTracker(Config{FailureThreshold: 1, DisableThreshold: 1, Waiter: backoff.NewFixedWaiter(time.Second)})
	t.Run("Healthy", func(t *testing.T) {
		assert.True(t, tr.Admit("h", t0))
		assert.True(t, tr.Admit("h", t0))
		tr.Ensure("h")
		assert.True(t, tr.Admit("h", t0))
		assert.True(t, tr.Admit("h", t0))
	})
	t.Run("Backoff", func(t *testing.T) {
		tr.OnFailure("b", t0)
		assert.False(t, tr.Admit("b", t0.Add(999*time.Millisecond)))
		after := t0.Add(time.Second)
		assert.True(t, tr.Admit("b", after), "first caller after the window is admitted")
		assert.False(t, tr.Admit("b", after), "claim held")
		assert.True(t, tr.Eligible("b", after), "Eligible does not see claims")

		tr.Release("b")
		assert.True(t, tr.Admit("b", after), "released claim may be taken again")

		tr.OnFailure("b", after)
		s, _ := tr.Status("b")
		require.Equal(t, Disabled, s.State)
		assert.False(t, tr.Admit("b", after.Add(time.Hour)))

		tr.Reset("b")
		assert.True(t, tr.Admit("b", after))
	})
	t.Run("Claim Success", func(t *testing.T) {
		tr.OnFailure("s", t0)
		after := t0.Add(time.Second)
		require.True(t, tr.Admit("s", after))
		tr.OnSuccess("s")
		assert.True(t, tr.Admit("s", after))
		assert.True(t, tr.Admit("s", after))
	})
	t.Run("Release Unseen", func(t *testing.T) {
		tr.Release("nope")
		_, ok := tr.Status("nope")
		assert.False(t, ok)
	})
	t.Run("Concurrent", func(t *testing.T) {
		tr.OnFailure("c", t0)
		after := t0.Add(time.Second)
		var admitted int32
		var lock sync.Mutex
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if tr.Admit("c", after) {
					lock.Lock()
					admitted++
					lock.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), admitted)
	})
}

func TestTracker_OnTransition(t *testing.T) {
	tr := NewTracker(Config{FailureThreshold: 1, DisableThreshold: 0, Waiter: backoff.NewFixedWaiter(time.Second)})
	assert.Panics(t, func() { tr.OnTransition(nil) })

	var got []string
	tr.OnTransition(func(id string, from, to State) {
		s, _ := tr.Status(id)
		got = append(got, fmt.Sprintf("%s:%s->%s(%s)", id, from, to, s.State))
	})
	tr.OnSuccess("a")
	tr.OnFailure("a", t0)
	tr.OnFailure("a", t0)
	tr.Reset("a")
	assert.Equal(t, []string{"a:Healthy->Disabled(Disabled)", "a:Disabled->Healthy(Healthy)"}, got)
}

func TestTracker_Snapshot(t *testing.T) {
	tr := NewTracker(Config{FailureThreshold: 1, DisableThreshold: 1, Waiter: backoff.NewFixedWaiter(time.Second)})
	tr.Ensure("c")
	tr.OnFailure("b", t0)
	tr.OnSuccess("a")
	snap := tr.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
	assert.Equal(t, Backoff, snap[1].State)
	assert.Equal(t, "c", snap[2].ID)
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker(Config{FailureThreshold: 1000000, Waiter: backoff.NewFixedWaiter(time.Second)})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("p%d", i%2)
			for j := 0; j < 500; j++ {
				tr.OnFailure(id, t0)
				tr.Eligible(id, t0)
			}
		}(i)
	}
	wg.Wait()
	for _, id := range []string{"p0", "p1"} {
		s, ok := tr.Status(id)
		require.True(t, ok)
		assert.Equal(t, 5000, s.ConsecutiveFailures, "no lost updates for %s", id)
	}
}
