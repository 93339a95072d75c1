// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nanoheap

import "unsafe"

// A chunk is a contiguous heap block. While free it carries a size word
// followed by a next-pointer word at chunk+headerBytes; while allocated
// that word is reused as the first word of the caller's payload, unless
// the user pointer had to be moved past it for alignment. A live chunk:
//
//	 chunk ->  +----------------+
//	           | size           |
//	           +----------------+
//	           | padding, only  |
//	           | when the user  |
//	           | pointer is     |
//	           | past chunk+    |
//	           | headerBytes;   |
//	           | its last word  |
//	           | is a skip-back |
//	           | record         |
//	 user ->   +----------------+
//	           | payload        |
//	           +----------------+
const (
	wordSize    = unsafe.Sizeof(uintptr(0))
	chunkAlign  = wordSize
	headerBytes = wordSize

	pageAlign = uintptr(4096)
	// maxRequest bounds any single allocation request; sizes at or above
	// it, or that wrapped while rounding, are rejected as OOM.
	maxRequest = uintptr(0x80000000)

	defaultUserAlign   = uintptr(8)
	defaultReservation = uintptr(1) << 31
)

// layout holds the quantities derived from a Heap's configured user
// alignment. chunkAlign and headerBytes never vary: they are fixed by the
// machine word size.
type layout struct {
	userAlign uintptr
	pad       uintptr
	minChunk  uintptr
}

func computeLayout(userAlign uintptr) layout {
	if userAlign == 0 {
		userAlign = defaultUserAlign
	}
	var pad uintptr
	if userAlign > chunkAlign {
		pad = userAlign - chunkAlign
	}
	return layout{
		userAlign: userAlign,
		pad:       pad,
		minChunk:  headerBytes + pad + wordSize,
	}
}

func loadWord(addr uintptr) uintptr { return *(*uintptr)(unsafe.Pointer(addr)) }

func storeWord(addr, v uintptr) { *(*uintptr)(unsafe.Pointer(addr)) = v }

func chunkSize(c uintptr) uintptr { return loadWord(c) }

func setChunkSize(c, v uintptr) { storeWord(c, v) }

func chunkNext(c uintptr) uintptr { return loadWord(c + headerBytes) }

func setChunkNext(c, v uintptr) { storeWord(c+headerBytes, v) }

// chunkFromUser recovers the chunk header for a live user pointer,
// following the skip-back record if the pointer was over-aligned.
func chunkFromUser(u uintptr) uintptr {
	hdr := loadWord(u - headerBytes)
	if hdr&1 == 1 {
		return (u - headerBytes) - (hdr &^ 1)
	}
	return u - headerBytes
}

func roundUpUintptr(n, m uintptr) uintptr {
	if m == 0 {
		return n
	}
	return (n + m - 1) &^ (m - 1)
}

func maxUintptr(a, b uintptr) uintptr {
	if a > b {
		return a
	}
	return b
}
