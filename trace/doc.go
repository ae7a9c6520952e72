// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package trace records each race as a request trace using package
golang.org/x/net/trace, viewable at /debug/requests on a server that
serves http.DefaultServeMux.

	h := trace.NewHandler("frace.Race")
	handlers := &frace.HandlerGroup{}
	h.Install(handlers)
	s := &frace.Scheduler{Handlers: handlers}
*/
package trace
