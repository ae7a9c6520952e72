// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout provides flexible policies for bounding individual
// producer invocations during a race.
//
// A timeout policy only supplies the default bound. A producer
// registered with its own Timeout uses that instead, and a per-race
// override in race.Request.Timeouts takes precedence over both.
package timeout
