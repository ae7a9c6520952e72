// Copyright 2021 The frace Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package producer

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownProducer is matched (via errors.Is) by every error Resolve
// returns for an identifier that was never registered.
var ErrUnknownProducer = errors.New("frace/producer: unknown producer")

// An UnknownError reports the identifier that could not be resolved.
type UnknownError struct {
	ID string
}

func (err *UnknownError) Error() string {
	return fmt.Sprintf("frace/producer: unknown producer %q", err.ID)
}

// Is reports whether target is ErrUnknownProducer.
func (err *UnknownError) Is(target error) bool {
	return target == ErrUnknownProducer
}

// A Registry holds the known producers, keyed by ID. Its zero value is
// an empty registry ready to use.
//
// Registry is safe for concurrent use by multiple goroutines. Resolve
// may be called while other goroutines Register.
type Registry struct {
	lock      sync.RWMutex
	producers map[string]*Producer
}

// Register stores p, replacing any producer previously registered with
// the same ID. The return value reports whether a producer was replaced.
//
// Register panics if p is nil or has a nil Invoker, and makes a copy of
// p so later changes by the caller have no effect.
func (r *Registry) Register(p *Producer) (replaced bool) {
	if p == nil {
		panic("frace/producer: nil producer")
	}
	if p.Invoker == nil {
		panic("frace/producer: nil invoker")
	}
	if p.Timeout < 0 {
		panic("frace/producer: negative timeout")
	}

	cp := *p
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.producers == nil {
		r.producers = make(map[string]*Producer)
	}
	_, replaced = r.producers[cp.ID]
	r.producers[cp.ID] = &cp
	return
}

// Resolve returns the producer registered under id. If no such producer
// exists, the error is an *UnknownError.
func (r *Registry) Resolve(id string) (*Producer, error) {
	r.lock.RLock()
	p, ok := r.producers[id]
	r.lock.RUnlock()
	if !ok {
		return nil, &UnknownError{ID: id}
	}
	return p, nil
}

// IDs returns the identifiers of all registered producers, sorted.
func (r *Registry) IDs() []string {
	r.lock.RLock()
	ids := make([]string, 0, len(r.producers))
	for id := range r.producers {
		ids = append(ids, id)
	}
	r.lock.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered producers.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.producers)
}
