// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nanoheap

import (
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Stats is a snapshot of a Heap's bookkeeping, named after the mallinfo
// fields it mirrors.
type Stats struct {
	InstanceID uuid.UUID
	Arena      int64   // bytes obtained from the region source; -1 if the break query failed
	Fordblks   uintptr // bytes currently on the free list
	Uordblks   int64   // bytes currently in use (Arena - Fordblks)
}

// StatsSnapshot walks the free list and queries the region extent under
// the lock to report current totals.
func (h *Heap) StatsSnapshot() Stats {
	if err := h.ensureInit(); err != nil {
		return Stats{Arena: -1}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var ford uintptr
	for c := h.freeHead; c != 0; c = chunkNext(c) {
		ford += chunkSize(c)
	}

	var arena int64
	if h.regionStart != 0 {
		if brkNow, ok := h.region.brk(0); ok {
			arena = int64(brkNow - h.regionStart)
		} else {
			arena = -1
		}
	}

	uord := arena - int64(ford)
	if arena < 0 {
		uord = -1
	}
	return Stats{InstanceID: h.instanceID, Arena: arena, Fordblks: ford, Uordblks: uord}
}

// StatsPrint writes a short human-readable statistics report to w, in the
// spirit of malloc_stats.
func (h *Heap) StatsPrint(w io.Writer) {
	s := h.StatsSnapshot()
	fmt.Fprintf(w, "nanoheap[%s] max system bytes = %10d\n", s.InstanceID, s.Arena)
	fmt.Fprintf(w, "nanoheap[%s] system bytes     = %10d\n", s.InstanceID, s.Arena)
	fmt.Fprintf(w, "nanoheap[%s] in use bytes     = %10d\n", s.InstanceID, s.Uordblks)
}
