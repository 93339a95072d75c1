// Copyright 2024 The Nanoheap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nanoheap

import (
	"errors"
	"fmt"
	"os"
)

// ErrOOM is returned when an allocation cannot be satisfied, either
// because the region source failed to grow or because the request size
// overflowed. Apart from a failure to reserve the region on first use, it
// is the only error the allocation calls return under the default abort
// hook; corruption is fatal (see Heap.abort).
var ErrOOM = errors.New("nanoheap: out of memory")

// errCorrupt is never returned to a caller under the default abort hook,
// which terminates the process. It exists so an injected, non-terminating
// abort hook (see WithAbort) still gets a well-typed
// return value instead of undefined control flow.
var errCorrupt = errors.New("nanoheap: heap corruption detected")

// osExit is a var, not a direct call, so tests that install a custom
// abort hook never need to touch the real process exit path.
var osExit = os.Exit

func reportCorruption(msg string) {
	fmt.Fprintf(os.Stderr, "*** nanoheap: %s ***\n", msg)
}

func defaultAbort(msg string) {
	reportCorruption(msg)
	osExit(2)
}
