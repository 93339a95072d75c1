// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nanoheap

// takeFreeChunk implements first-fit search, tail growth and split-on-
// allocate. It must be called with h.mu held, and returns an unlinked
// chunk of at least need bytes: a remainder of minChunk or more is carved
// off into a new free node, a smaller remainder stays with the chunk.
//
// The three cursors gp/pp/c all start at the list head, which is what
// makes the later pp == c comparison double as "c was found at the head"
// without a separate special case.
func (h *Heap) takeFreeChunk(need uintptr) (uintptr, error) {
	gp, pp, c := h.freeHead, h.freeHead, h.freeHead
	for c != 0 {
		sz := chunkSize(c)
		if sz%chunkAlign != 0 {
			h.abort("bogus heap chunk size")
			return 0, errCorrupt
		}
		if sz >= need {
			break
		}
		gp, pp = pp, c
		c = chunkNext(c)
	}

	if c == 0 {
		brkNow, ok := h.region.brk(0)
		if !ok {
			return 0, ErrOOM
		}

		var adjust uintptr
		if pp != 0 && pp+chunkSize(pp) == brkNow {
			adjust = chunkSize(pp)
		}

		p, ok := h.grow(need - adjust)
		if !ok {
			return 0, ErrOOM
		}

		if adjust != 0 {
			// The tail-most free chunk sits flush with the break: grow it
			// in place instead of creating a new node.
			c = pp
			pp = gp
		} else {
			c = p
			if pp == 0 {
				pp = c
			}
		}
		setChunkSize(c, need)
		setChunkNext(c, 0)
	}

	if rem := chunkSize(c) - need; rem >= h.layout.minChunk {
		t := c + need
		setChunkSize(t, rem)
		setChunkNext(t, chunkNext(c))
		setChunkSize(c, need)
		setChunkNext(c, t)
	}

	if pp == c {
		h.freeHead = chunkNext(c)
	} else {
		setChunkNext(pp, chunkNext(c))
	}
	return c, nil
}

// insertFree inserts a freed chunk into the address-ordered free list,
// coalescing with either or both neighbours when they are physically
// adjacent. It must be called with h.mu held.
func (h *Heap) insertFree(c uintptr) {
	if h.freeHead == 0 {
		h.freeHead = c
		setChunkNext(c, 0)
		return
	}

	if c < h.freeHead {
		if c+chunkSize(c) == h.freeHead {
			setChunkSize(c, chunkSize(c)+chunkSize(h.freeHead))
			setChunkNext(c, chunkNext(h.freeHead))
		} else {
			setChunkNext(c, h.freeHead)
		}
		h.freeHead = c
		return
	}

	pp := h.freeHead
	q := chunkNext(pp)
	for q != 0 && q <= c {
		pp = q
		q = chunkNext(q)
	}

	if pp+chunkSize(pp) > c {
		h.abort("possible double free")
		return
	}

	switch {
	case pp+chunkSize(pp) == c:
		setChunkSize(pp, chunkSize(pp)+chunkSize(c))
		if pp+chunkSize(pp) == q {
			setChunkSize(pp, chunkSize(pp)+chunkSize(q))
			setChunkNext(pp, chunkNext(q))
		}
	case c+chunkSize(c) == q:
		setChunkSize(c, chunkSize(c)+chunkSize(q))
		setChunkNext(c, chunkNext(q))
		setChunkNext(pp, c)
	default:
		setChunkNext(c, q)
		setChunkNext(pp, c)
	}
}
