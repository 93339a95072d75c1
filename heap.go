// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nanoheap implements a minimal dynamic-memory allocator suited to
// constrained environments. It exposes the classical C heap surface --
// Alloc, Free, Realloc, Calloc, AlignedAlloc, the page-aligned variants,
// UsableSize and Stats -- backed by a single monotonically-growing region
// and a single address-ordered free list with bidirectional coalescing.
// The design favours code-size minimality and predictable behaviour over
// throughput: first-fit search, not best-fit; no size classes, arenas or
// thread-local caches.
package nanoheap

import (
	"sync"
	"unsafe"

	"github.com/google/uuid"
)

// Heap allocates and frees memory from a single growing region. Its zero
// value is ready for use with default settings; New applies Options before
// first use for callers that want to configure it.
type Heap struct {
	mu      sync.Locker
	abort   func(msg string)
	align   uintptr
	reserve uintptr

	initMu   sync.Mutex
	initDone bool
	initErr  error

	instanceID  uuid.UUID
	region      regionSource
	regionStart uintptr
	freeHead    uintptr
	layout      layout
}

func (h *Heap) ensureInit() error {
	h.initMu.Lock()
	defer h.initMu.Unlock()
	if h.initDone {
		return h.initErr
	}

	if h.mu == nil {
		h.mu = &sync.Mutex{}
	}
	if h.abort == nil {
		h.abort = defaultAbort
	}
	h.layout = computeLayout(h.align)
	if h.reserve == 0 {
		h.reserve = defaultReservation
	}
	if h.region == nil {
		r, err := newRegionSource(h.reserve)
		if err != nil {
			h.initErr = err
			h.initDone = true
			return h.initErr
		}
		h.region = r
	}
	if h.instanceID == (uuid.UUID{}) {
		h.instanceID = uuid.New()
	}

	h.initDone = true
	return nil
}

// allocSize computes the chunk size required to satisfy a size-byte
// request: rounded to chunkAlign, plus the alignment padding reserve,
// plus the header, floored at the minimum splittable chunk size.
func (h *Heap) allocSize(size uintptr) (uintptr, error) {
	need := roundUpUintptr(size, chunkAlign) + h.layout.pad + headerBytes
	if need < h.layout.minChunk {
		need = h.layout.minChunk
	}
	if need >= maxRequest || need < size {
		return 0, ErrOOM
	}
	return need, nil
}

// Alloc allocates size bytes and returns a pointer to memory aligned to
// the Heap's configured user alignment (8 bytes by default). The memory
// is not initialized.
func (h *Heap) Alloc(size uintptr) (unsafe.Pointer, error) {
	if err := h.ensureInit(); err != nil {
		return nil, err
	}

	need, err := h.allocSize(size)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	c, err := h.takeFreeChunk(need)
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	u0 := c + headerBytes
	u := roundUpUintptr(u0, h.layout.userAlign)
	if u != u0 {
		storeWord(c+(u-u0), (u-u0)|1)
	}
	return unsafe.Pointer(u), nil
}

// Free deallocates memory returned by Alloc, Calloc, Realloc or
// AlignedAlloc. Free(nil) is a no-op.
func (h *Heap) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	if err := h.ensureInit(); err != nil {
		return
	}

	u := uintptr(p)
	// A skip-back offset is always below minChunk, so a tagged word at or
	// above it is a corrupted chunk size rather than a skip-back record.
	if hdr := loadWord(u - headerBytes); hdr&1 == 1 && hdr&^1 >= h.layout.minChunk {
		h.abort("bogus heap chunk size")
		return
	}
	c := chunkFromUser(u)
	if chunkSize(c)%chunkAlign != 0 {
		h.abort("bogus heap chunk size")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.insertFree(c)
}

// AliasFree is a synonym for Free.
func (h *Heap) AliasFree(p unsafe.Pointer) { h.Free(p) }

// Realloc changes the size of the allocation at ptr to size bytes.
// Realloc(nil, n) behaves like Alloc(n); Realloc(p, 0) behaves like
// Free(p) and returns nil. When size fits in the current usable size and
// is more than half of it, p is returned unchanged; otherwise the data is
// moved to a new allocation. The allocation never shrinks in place.
func (h *Heap) Realloc(p unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	if p == nil {
		return h.Alloc(size)
	}
	if size == 0 {
		h.Free(p)
		return nil, nil
	}

	old := h.UsableSize(p)
	if size <= old && old/2 < size {
		return p, nil
	}

	np, err := h.Alloc(size)
	if err != nil {
		return nil, err
	}

	n := old
	if size < n {
		n = size
	}
	if n > 0 {
		copy(unsafe.Slice((*byte)(np), int(n)), unsafe.Slice((*byte)(p), int(n)))
	}
	h.Free(p)
	return np, nil
}

// Calloc allocates space for n elements of elem bytes each and zeroes it.
// An overflowing n*elem fails with ErrOOM.
func (h *Heap) Calloc(n, elem uintptr) (unsafe.Pointer, error) {
	bytes, overflow := mulOverflows(n, elem)
	if overflow {
		return nil, ErrOOM
	}

	p, err := h.Alloc(bytes)
	if err != nil {
		return nil, err
	}
	if bytes > 0 {
		b := unsafe.Slice((*byte)(p), int(bytes))
		for i := range b {
			b[i] = 0
		}
	}
	return p, nil
}

func mulOverflows(n, elem uintptr) (uintptr, bool) {
	if n == 0 || elem == 0 {
		return 0, false
	}
	prod := n * elem
	if prod/n != elem {
		return 0, true
	}
	return prod, false
}

// AlignedAlloc allocates size bytes aligned to align, which must be a
// power of two; otherwise AlignedAlloc returns (nil, nil) without an
// error, matching the C aligned_alloc contract of leaving errno untouched.
func (h *Heap) AlignedAlloc(align, size uintptr) (unsafe.Pointer, error) {
	if align == 0 || align&(align-1) != 0 {
		return nil, nil
	}
	if err := h.ensureInit(); err != nil {
		return nil, err
	}

	align = maxUintptr(align, h.layout.userAlign)

	maSize := roundUpUintptr(maxUintptr(size, wordSize), chunkAlign)
	if maSize < size {
		return nil, ErrOOM
	}
	pad := align - h.layout.userAlign
	sizeWithPadding := maSize + pad
	if sizeWithPadding < maSize {
		return nil, ErrOOM
	}

	p, err := h.Alloc(sizeWithPadding)
	if err != nil {
		return nil, err
	}
	u := uintptr(p)
	c := chunkFromUser(u)

	alignedU := roundUpUintptr(c+headerBytes, align)
	offset := alignedU - (c + headerBytes)

	if offset != 0 {
		if offset >= h.layout.minChunk {
			newC := c + offset
			setChunkSize(newC, chunkSize(c)-offset)
			setChunkNext(newC, 0)
			setChunkSize(c, offset)
			setChunkNext(c, 0)
			h.Free(unsafe.Pointer(c + headerBytes))
			c = newC
		} else {
			storeWord(c+offset, offset|1)
		}
	}

	if c+chunkSize(c) > alignedU+maSize+h.layout.minChunk {
		tail := alignedU + maSize
		tailSize := (c + chunkSize(c)) - tail
		setChunkSize(c, tail-c)
		setChunkNext(c, 0)
		setChunkSize(tail, tailSize)
		setChunkNext(tail, 0)
		h.Free(unsafe.Pointer(tail + headerBytes))
	}

	return unsafe.Pointer(alignedU), nil
}

// PageAlignedAlloc allocates size bytes aligned to the page size (valloc).
func (h *Heap) PageAlignedAlloc(size uintptr) (unsafe.Pointer, error) {
	return h.AlignedAlloc(pageAlign, size)
}

// PageRoundedAlignedAlloc allocates, page-aligned, enough bytes to cover
// size rounded up to a whole number of pages (pvalloc).
func (h *Heap) PageRoundedAlignedAlloc(size uintptr) (unsafe.Pointer, error) {
	if size > ^uintptr(0)-pageAlign {
		return nil, ErrOOM
	}
	return h.PageAlignedAlloc(roundUpUintptr(size, pageAlign))
}

// UsableSize reports the number of bytes usable at p, which must have been
// returned by Alloc, Calloc, Realloc or AlignedAlloc. It may exceed the
// size originally requested.
func (h *Heap) UsableSize(p unsafe.Pointer) uintptr {
	if p == nil {
		return 0
	}
	u := uintptr(p)
	hdr := loadWord(u - headerBytes)
	if hdr&1 == 1 {
		off := hdr &^ 1
		c := (u - headerBytes) - off
		return chunkSize(c) - headerBytes - off
	}
	c := u - headerBytes
	return chunkSize(c) - headerBytes
}

// Tune is a no-op that always returns 0: this allocator exposes no
// tunables.
func (h *Heap) Tune(param, value int) int { return 0 }
