// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package race contains the core types Request (describes a race) and
Execution (describes the state and outcome of running a Request). These
two types are fundamental to racing producers against each other.

A Request is an ordered list of buckets. Each Bucket is an ordered
fallback chain of producer IDs: the scheduler runs every bucket
concurrently, and within a bucket tries producers one at a time, in
order, until one succeeds.

	r := race.NewRequest(
		race.Bucket{"primary-east", "backup-east"},
		race.Bucket{"primary-west", "backup-west"},
	)
	e, err := scheduler.Do(r)

A request may be given a context to bound or cancel the whole race:

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	r, err := race.NewRequestWithContext(ctx, buckets...)

An Execution records every Attempt made while running a request, per
bucket and in order, together with the winning attempt and its value,
or the error that ended the race.
*/
package race
