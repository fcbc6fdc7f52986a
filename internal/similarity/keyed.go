// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

package similarity

import (
	"sync"
	"sync/atomic"
)

// registry hands out one *V per id, created lazily and never removed.
type registry[V any] struct {
	entries sync.Map // int64 -> *V
	size    atomic.Int64
	newV    func() *V
}

func newRegistry[V any](newV func() *V) *registry[V] {
	return &registry[V]{newV: newV}
}

// get returns the entry for id, creating it if needed. created is true for
// the call that stored it.
func (r *registry[V]) get(id int64) (v *V, created bool) {
	if existing, ok := r.entries.Load(id); ok {
		return existing.(*V), false
	}
	actual, loaded := r.entries.LoadOrStore(id, r.newV())
	if !loaded {
		r.size.Add(1)
	}
	return actual.(*V), !loaded
}

// lookup returns the entry for id without creating one.
func (r *registry[V]) lookup(id int64) (*V, bool) {
	v, ok := r.entries.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*V), true
}

func (r *registry[V]) len() int64 {
	return r.size.Load()
}
