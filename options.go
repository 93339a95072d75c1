// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nanoheap

import "sync"

// Option configures a Heap constructed via New. Options only take effect
// if applied before the Heap's first use; a bare Heap{}, like the
// teacher's Allocator, is ready to use with its defaults.
type Option func(*Heap)

// WithUserAlign sets the alignment guaranteed to every returned user
// pointer. align must be a power of two; it is not validated. Zero selects
// the default of 8 bytes, and a value at or below the word size adds no
// padding to chunks.
func WithUserAlign(align uintptr) Option {
	return func(h *Heap) { h.align = align }
}

// WithReservation sets the number of bytes of address space the region
// source reserves up front. It bounds the heap's total size.
func WithReservation(n uintptr) Option {
	return func(h *Heap) { h.reserve = n }
}

// WithLock installs the mutual-exclusion hook the embedding supplies
// around every mutating API call. The default is a plain *sync.Mutex.
func WithLock(l sync.Locker) Option {
	return func(h *Heap) { h.mu = l }
}

// WithAbort overrides the corruption-abort hook. The default writes a
// diagnostic to standard error and terminates the process; tests
// typically substitute a hook that panics so the abort can be recovered.
func WithAbort(f func(msg string)) Option {
	return func(h *Heap) { h.abort = f }
}

// New constructs a Heap with the given options applied.
func New(opts ...Option) *Heap {
	h := &Heap{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
