// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package hw

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Buffer is DMA capable memory: a host view and the address the device uses
// to reach it. The collaborator that allocates a Buffer owns it; the engine
// only borrows it.
type Buffer struct {
	Data []byte
	Phys uint64
}

func (b Buffer) Cap() int { return len(b.Data) }

// Base returns the host virtual address of the buffer.
func (b Buffer) Base() uintptr {
	if len(b.Data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.Data[0]))
}

// IsAligned reports whether both host and device addresses are multiples
// of align, a power of two.
func (b Buffer) IsAligned(align uint64) bool {
	m := align - 1
	return uint64(b.Base())&m == 0 && b.Phys&m == 0
}

// Contains reports whether the n device bytes at phys are inside b.
func (b Buffer) Contains(phys uint64, n int) bool {
	return phys >= b.Phys && phys+uint64(n) <= b.Phys+uint64(len(b.Data))
}

// LoadUint32 atomically reads the little-endian word at byte offset o.
// Memory the device writes behind our back must be read this way.
func (b Buffer) LoadUint32(o int) uint32 {
	CheckRegAddr("buffer offset", uint(o), uint(len(b.Data)))
	return le32(atomic.LoadUint32((*uint32)(unsafe.Pointer(&b.Data[o]))))
}

func (b Buffer) StoreUint32(o int, v uint32) {
	CheckRegAddr("buffer offset", uint(o), uint(len(b.Data)))
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&b.Data[o])), le32(v))
}

func (b Buffer) String() string {
	return fmt.Sprintf("{virt: 0x%x, phys: 0x%016x, len: %d}",
		b.Base(), b.Phys, len(b.Data))
}

// AlignedBytes returns n zeroed bytes whose address is a multiple of align,
// a power of two.
func AlignedBytes(n, align int) []byte {
	b := make([]byte, n+align)
	o := int(uintptr(unsafe.Pointer(&b[0])) & uintptr(align-1))
	if o != 0 {
		o = align - o
	}
	return b[o : o+n : o+n]
}
