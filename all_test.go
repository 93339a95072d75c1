// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nanoheap

import (
	"math"
	"testing"
	"unsafe"

	"github.com/cznic/mathutil"
)

const quota = 256 << 10

var (
	max    = 256
	bigMax = 8192
)

func bytesAt(p unsafe.Pointer, n int) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}

type allocation struct {
	p unsafe.Pointer
	n int
}

func test1(t *testing.T, max int) {
	h := &Heap{}
	rem := quota
	var a []allocation
	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	if err != nil {
		t.Fatal(err)
	}

	rng.Seed(42)
	pos := rng.Pos()
	for rem > 0 {
		size := rng.Next()%max + 1
		rem -= size
		p, err := h.Alloc(uintptr(size))
		if err != nil {
			t.Fatal(err)
		}
		b := bytesAt(p, size)
		for i := range b {
			b[i] = byte(rng.Next())
		}
		a = append(a, allocation{p, size})
	}

	rng.Seek(pos)
	for i, al := range a {
		if g, e := al.n, rng.Next()%max+1; g != e {
			t.Fatal(i, g, e)
		}
		b := bytesAt(al.p, al.n)
		for j, g := range b {
			if e := byte(rng.Next()); g != e {
				t.Fatalf("%v %p: %#02x %#02x", j, &b[j], g, e)
			}
		}
	}

	for i := range a {
		j := rng.Next() % len(a)
		a[i], a[j] = a[j], a[i]
	}

	for _, al := range a {
		h.Free(al.p)
	}

	if s := h.StatsSnapshot(); s.Uordblks != 0 {
		t.Fatalf("%+v", s)
	}
}

func Test1Small(t *testing.T) { test1(t, max) }
func Test1Big(t *testing.T)   { test1(t, bigMax) }

func test2(t *testing.T, max int) {
	h := &Heap{}
	rem := quota
	var a []allocation
	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	if err != nil {
		t.Fatal(err)
	}

	rng.Seed(42)
	pos := rng.Pos()
	for rem > 0 {
		size := rng.Next()%max + 1
		rem -= size
		p, err := h.Alloc(uintptr(size))
		if err != nil {
			t.Fatal(err)
		}
		b := bytesAt(p, size)
		for i := range b {
			b[i] = byte(rng.Next())
		}
		a = append(a, allocation{p, size})
	}

	rng.Seek(pos)
	for i, al := range a {
		if g, e := al.n, rng.Next()%max+1; g != e {
			t.Fatal(i, g, e)
		}
		b := bytesAt(al.p, al.n)
		for j, g := range b {
			if e := byte(rng.Next()); g != e {
				t.Fatalf("%v %p: %#02x %#02x", j, &b[j], g, e)
			}
		}
		h.Free(al.p)
	}

	if s := h.StatsSnapshot(); s.Uordblks != 0 {
		t.Fatalf("%+v", s)
	}
}

func Test2Small(t *testing.T) { test2(t, max) }
func Test2Big(t *testing.T)   { test2(t, bigMax) }

func test3(t *testing.T, max int) {
	h := &Heap{}
	rem := quota
	m := map[unsafe.Pointer][]byte{}
	rng, err := mathutil.NewFC32(1, max, true)
	if err != nil {
		t.Fatal(err)
	}

	for rem > 0 {
		switch rng.Next() % 3 {
		case 0, 1: // 2/3 allocate
			size := rng.Next()
			rem -= size
			p, err := h.Alloc(uintptr(size))
			if err != nil {
				t.Fatal(err)
			}
			b := bytesAt(p, size)
			for i := range b {
				b[i] = byte(rng.Next())
			}
			m[p] = append([]byte(nil), b...)
		default: // 1/3 free
			for p, v := range m {
				rem += len(v)
				h.Free(p)
				delete(m, p)
				break
			}
		}
	}

	for p := range m {
		h.Free(p)
	}

	if s := h.StatsSnapshot(); s.Uordblks != 0 {
		t.Fatalf("%+v", s)
	}
}

func Test3Small(t *testing.T) { test3(t, max) }
func Test3Big(t *testing.T)   { test3(t, bigMax) }

func TestFreeZero(t *testing.T) {
	h := &Heap{}
	p, err := h.Alloc(1)
	if err != nil {
		t.Fatal(err)
	}
	h.Free(p)

	if s := h.StatsSnapshot(); s.Uordblks != 0 {
		t.Fatalf("%+v", s)
	}
}

func benchmarkFree(b *testing.B, size int) {
	h := &Heap{}
	ps := make([]unsafe.Pointer, b.N)
	for i := 0; i < b.N; i++ {
		p, err := h.Alloc(uintptr(size))
		if err != nil {
			b.Fatal(err)
		}
		ps[i] = p
	}
	b.ResetTimer()
	for _, p := range ps {
		h.Free(p)
	}
	b.StopTimer()
	if s := h.StatsSnapshot(); s.Uordblks != 0 {
		b.Fatalf("%+v", s)
	}
}

func BenchmarkFree16(b *testing.B) { benchmarkFree(b, 1<<4) }
func BenchmarkFree32(b *testing.B) { benchmarkFree(b, 1<<5) }
func BenchmarkFree64(b *testing.B) { benchmarkFree(b, 1<<6) }

func benchmarkCalloc(b *testing.B, size int) {
	h := &Heap{}
	ps := make([]unsafe.Pointer, b.N)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, err := h.Calloc(uintptr(size), 1)
		if err != nil {
			b.Fatal(err)
		}
		ps[i] = p
	}
	b.StopTimer()
	for _, p := range ps {
		h.Free(p)
	}
}

func BenchmarkCalloc16(b *testing.B) { benchmarkCalloc(b, 1<<4) }
func BenchmarkCalloc32(b *testing.B) { benchmarkCalloc(b, 1<<5) }
func BenchmarkCalloc64(b *testing.B) { benchmarkCalloc(b, 1<<6) }

func benchmarkAlloc(b *testing.B, size int) {
	h := &Heap{}
	ps := make([]unsafe.Pointer, b.N)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, err := h.Alloc(uintptr(size))
		if err != nil {
			b.Fatal(err)
		}
		ps[i] = p
	}
	b.StopTimer()
	for _, p := range ps {
		h.Free(p)
	}
}

func BenchmarkAlloc16(b *testing.B) { benchmarkAlloc(b, 1<<4) }
func BenchmarkAlloc32(b *testing.B) { benchmarkAlloc(b, 1<<5) }
func BenchmarkAlloc64(b *testing.B) { benchmarkAlloc(b, 1<<6) }
