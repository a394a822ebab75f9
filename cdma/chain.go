// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import "fmt"

type Direction int

const (
	ToDevice Direction = 1 + iota
	FromDevice
)

var directionStrings = [...]string{
	ToDevice:   "to-device",
	FromDevice: "from-device",
}

func (d Direction) Valid() bool { return d == ToDevice || d == FromDevice }

func (d Direction) String() string {
	if d.Valid() {
		return directionStrings[d]
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Chunks returns the number of descriptor pairs needed to move size bytes.
func Chunks(size, chunk int) int { return (size + chunk - 1) / chunk }

// BuildChain fills c with one address translation and one data descriptor
// per chunk of the size bytes moved between the translated staging window
// and DDR3 at offset. The tail's next pointer wraps to the chain head.
// Nothing is written unless the whole chain fits in both c and the rows of
// translation BRAM.
func BuildChain(c Chain, dir Direction, size int, offset uint32, chunk, rows int) (n int, err error) {
	var src, dst uint32
	switch dir {
	case FromDevice:
		src, dst = AxiDdr3Addr+offset, AxiPcieDmAddr
	case ToDevice:
		src, dst = AxiPcieDmAddr, AxiDdr3Addr+offset
	default:
		return 0, fmt.Errorf("%w: unknown %v", ErrChainBuild, dir)
	}
	if size <= 0 {
		return 0, fmt.Errorf("%w: size %d", ErrChainBuild, size)
	}
	if chunk <= 0 || chunk > MaxBtt {
		return 0, fmt.Errorf("%w: chunk size %d", ErrChainBuild, chunk)
	}
	n = Chunks(size, chunk)
	if n > c.Pairs() {
		return 0, fmt.Errorf("%w: %d descriptor pairs exceed chain capacity %d",
			ErrChainBuild, n, c.Pairs())
	}
	if n > rows {
		return 0, fmt.Errorf("%w: %d descriptor pairs exceed %d translation rows",
			ErrChainBuild, n, rows)
	}

	sg := uint32(AxiPcieSgAddr)
	bram := uint32(AxiBramAddr)
	left := size
	for i := 0; i < n; i++ {
		btt := left
		if btt > chunk {
			btt = chunk
		}
		c.Store(2*i, Descriptor{
			Next:    sg + DescriptorBytes,
			Src:     bram,
			Dst:     AxiBramAddr + PcieCtlOffset + AxiBar2PcieBar1U,
			Control: AddrBtt,
		})
		sg += DescriptorBytes
		c.Store(2*i+1, Descriptor{
			Next:    sg + DescriptorBytes,
			Src:     src,
			Dst:     dst,
			Control: uint32(btt),
		})
		sg += DescriptorBytes

		bram += BramStep
		left -= btt
		src += uint32(btt)
		dst += uint32(btt)
	}

	c.SetNext(Tail(n), AxiPcieSgAddr)
	return n, nil
}
