// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package producer contains the Producer type, a registered unit of work
that can be raced against its peers, and the Registry that owns the
set of known producers.

A Producer pairs a stable, caller-assigned identifier with an Invoker,
the operation that actually produces a value (typically a call to some
backend provider). Wrap an ordinary function with InvokerFunc:

	p := &producer.Producer{
		ID: "primary",
		Invoker: producer.InvokerFunc(func(ctx context.Context) (interface{}, error) {
			return client.Fetch(ctx)
		}),
		Timeout: 2 * time.Second,
	}

The Invoker receives a context that is cancelled when the attempt times
out or the race no longer needs its result. Invokers should honor it,
but the race scheduler does not depend on them doing so: an attempt
whose context is done is abandoned, and its eventual result discarded.
*/
package producer
