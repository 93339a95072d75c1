// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package nanoheap

import (
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
)

const windowsPageSize = uintptr(4096)

// windowsRegion mirrors unixRegion using VirtualAlloc: the reservation is
// address space only (MEM_RESERVE), and the used prefix is committed
// (MEM_COMMIT) incrementally, since Windows does not overcommit the way
// Linux does.
type windowsRegion struct {
	mu        sync.Mutex
	base      uintptr
	cap       uintptr
	used      uintptr
	committed uintptr
}

func newRegionSource(reservation uintptr) (regionSource, error) {
	base, err := windows.VirtualAlloc(0, reservation, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, fmt.Errorf("nanoheap: reserve region: %w", err)
	}
	return &windowsRegion{base: base, cap: reservation}, nil
}

func (r *windowsRegion) brk(n uintptr) (uintptr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n == 0 {
		return r.base + r.used, true
	}
	if n > r.cap-r.used {
		return 0, false
	}

	prev := r.base + r.used
	newUsed := r.used + n
	need := roundUpUintptr(newUsed, windowsPageSize)
	if need > r.committed {
		if need > r.cap {
			return 0, false
		}
		if _, err := windows.VirtualAlloc(r.base+r.committed, need-r.committed,
			windows.MEM_COMMIT, windows.PAGE_READWRITE); err != nil {
			return 0, false
		}
		r.committed = need
	}

	r.used = newUsed
	return prev, true
}
