// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package nanoheap

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

var osPageSize = uintptr(unix.Getpagesize())

// unixRegion reserves a single large anonymous mapping up front (so the
// region's base address never moves) and commits the used prefix lazily,
// one page range at a time, as the heap grows. This stands in for the
// "extend the process data segment" primitive on platforms that no longer
// expose a real brk(2) to long-running userspace libraries.
type unixRegion struct {
	mu        sync.Mutex
	base      uintptr
	cap       uintptr
	used      uintptr
	committed uintptr
}

func newRegionSource(reservation uintptr) (regionSource, error) {
	b, err := unix.Mmap(-1, 0, int(reservation), unix.PROT_NONE,
		unix.MAP_ANON|unix.MAP_PRIVATE|unix.MAP_NORESERVE)
	if err != nil {
		return nil, fmt.Errorf("nanoheap: reserve region: %w", err)
	}
	return &unixRegion{base: uintptr(unsafe.Pointer(&b[0])), cap: reservation}, nil
}

func (r *unixRegion) brk(n uintptr) (uintptr, bool) {
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
	need := roundUpUintptr(newUsed, osPageSize)
	if need > r.committed {
		if need > r.cap {
			return 0, false
		}
		fresh := unsafe.Slice((*byte)(unsafe.Pointer(r.base+r.committed)), int(need-r.committed))
		if err := unix.Mprotect(fresh, unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return 0, false
		}
		r.committed = need
	}

	r.used = newUsed
	return prev, true
}
