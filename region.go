// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nanoheap

// regionSource is the "sequential break" collaborator: break(0) queries
// the current end of the region, break(n) grows it by n and returns the
// prior end. Implementations must return monotonically increasing
// addresses across successful calls. The concrete implementations live in
// region_unix.go and region_windows.go.
type regionSource interface {
	brk(n uintptr) (uintptr, bool)
}

// grow obtains region bytes aligned to chunkAlign, padding on the first
// misaligned grant only. Subsequent grants inherit alignment because the
// region source always hands out chunk-aligned tails once the one-time
// correction has been paid.
func (h *Heap) grow(n uintptr) (uintptr, bool) {
	if h.regionStart == 0 {
		p, ok := h.region.brk(0)
		if !ok {
			return 0, false
		}
		h.regionStart = p
	}

	p, ok := h.region.brk(n)
	if !ok {
		return 0, false
	}

	q := roundUpUintptr(p, chunkAlign)
	if q == p {
		return p, true
	}

	if _, ok := h.region.brk(q - p); !ok {
		return 0, false
	}
	return q, true
}
