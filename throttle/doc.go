// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package throttle provides admission policies that keep a race scheduler
from invoking a producer more often than it, or the provider behind it,
can bear.

Racing several buckets at once multiplies the load a single logical
request places on the providers, and a producer that appears in many
buckets, or in many concurrent races, can be hammered. A Starter is
consulted just before each invocation and may refuse it. A refused
attempt is recorded as Throttled, the bucket moves on to its next
producer, and the refusal is not held against the producer's health.

The default starter is AlwaysStart. Use NewThrottleStarter to cap
attempts per producer over one or more sliding windows, or
NewRateStarter for a token bucket per producer.
*/
package throttle
