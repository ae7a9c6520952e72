// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package backoff computes how long an unhealthy producer must sit out
// before it may be probed again.
//
// The interface Waiter maps a backoff level, the number of consecutive
// escalations a producer has suffered, to a delay. Construct one with
// NewExpWaiter for the usual capped exponential schedule:
//
//     w := backoff.NewExpWaiter(500*time.Millisecond, time.Minute, nil)
//     w.Wait(1) // 1s
//     w.Wait(2) // 2s
//     w.Wait(9) // 1m (capped)
//
// or NewFixedWaiter for a constant delay.
package backoff
