// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package hw provides memory mapped register windows and DMA buffers.
package hw

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// A Window is a device register space addressed by byte offset.
// Offsets must be 32-bit aligned and within the window; anything else is a
// programming error.
type Window interface {
	LoadUint32(offset uint32) uint32
	StoreUint32(offset uint32, v uint32)
}

// Mem is a Window over mapped device memory. Registers are little-endian on
// the bus regardless of host byte order.
type Mem []byte

// Map the size bytes of f at offset for read/write shared access.
func Map(f *os.File, offset int64, size int) (Mem, error) {
	b, err := unix.Mmap(int(f.Fd()), offset, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", f.Name(), err)
	}
	return Mem(b), nil
}

func (m Mem) Unmap() error {
	if len(m) == 0 {
		return nil
	}
	if err := unix.Munmap(m); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

func (m Mem) addr(o uint32) *uint32 {
	CheckRegAddr("offset", uint(o), uint(len(m)))
	return (*uint32)(unsafe.Pointer(&m[o]))
}

func (m Mem) LoadUint32(o uint32) uint32 {
	return le32(atomic.LoadUint32(m.addr(o)))
}

func (m Mem) StoreUint32(o uint32, v uint32) {
	atomic.StoreUint32(m.addr(o), le32(v))
}

// CheckRegAddr panics unless offset is 32-bit aligned and a whole word fits
// below limit.
func CheckRegAddr(name string, offset, limit uint) {
	if offset&3 != 0 || offset+4 > limit {
		panic(fmt.Errorf("%s 0x%x outside 0x%x byte window", name, offset, limit))
	}
}
