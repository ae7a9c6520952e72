// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package failure classifies the errors recorded against individual
// producer attempts during a race.
//
// Every attempt that does not produce the winning value ends with an
// error, and function Categorize sorts that error into a Kind. The Kind
// drives two decisions: whether the failure is reported to the health
// tracker (see Kind.Counts), and how the attempt is described in the
// aggregate failure report handed back to the caller.
package failure
