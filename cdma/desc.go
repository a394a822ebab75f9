// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import (
	"fmt"

	"github.com/platinasystems/xpdma/hw"
)

// Descriptor word offsets. The odd words hold the upper halves of 64-bit
// addresses which this design never uses.
const (
	descNext    = 0x00
	descNextMsb = 0x04
	descSrc     = 0x08
	descSrcMsb  = 0x0c
	descDst     = 0x10
	descDstMsb  = 0x14
	descControl = 0x18
	descStatus  = 0x1c
)

// Descriptor is one scatter gather transfer step as the engine fetches it.
type Descriptor struct {
	Next    uint32
	Src     uint32
	Dst     uint32
	Control uint32
	Status  uint32
}

// Btt returns the control field's byte count.
func (d Descriptor) Btt() uint32 { return d.Control & MaxBtt }

func (d Descriptor) String() string {
	return fmt.Sprintf("{next: 0x%08x, src: 0x%08x, dst: 0x%08x, control: 0x%08x, status: 0x%08x}",
		d.Next, d.Src, d.Dst, d.Control, d.Status)
}

// Chain is an arena of descriptors laid over the descriptor chain buffer
// and indexed by slot. Slot 2i is chunk i's address translation
// descriptor, slot 2i+1 its data descriptor.
type Chain struct {
	hw.Buffer
}

func NewChain(b hw.Buffer) Chain { return Chain{b} }

func (c Chain) Slots() int { return c.Cap() / DescriptorBytes }

// Pairs is the largest chain length the buffer holds.
func (c Chain) Pairs() int { return c.Slots() / 2 }

// Addr returns the AXI address the engine uses to fetch slot.
func (c Chain) Addr(slot int) uint32 {
	return AxiPcieSgAddr + uint32(slot)*DescriptorBytes
}

// Tail returns the slot of the last descriptor of an n pair chain.
func Tail(n int) int { return 2*n - 1 }

func (c Chain) Load(slot int) (d Descriptor) {
	o := slot * DescriptorBytes
	d.Next = c.LoadUint32(o + descNext)
	d.Src = c.LoadUint32(o + descSrc)
	d.Dst = c.LoadUint32(o + descDst)
	d.Control = c.LoadUint32(o + descControl)
	d.Status = c.LoadUint32(o + descStatus)
	return
}

func (c Chain) Store(slot int, d Descriptor) {
	o := slot * DescriptorBytes
	c.StoreUint32(o+descNext, d.Next)
	c.StoreUint32(o+descNextMsb, 0)
	c.StoreUint32(o+descSrc, d.Src)
	c.StoreUint32(o+descSrcMsb, 0)
	c.StoreUint32(o+descDst, d.Dst)
	c.StoreUint32(o+descDstMsb, 0)
	c.StoreUint32(o+descControl, d.Control)
	c.StoreUint32(o+descStatus, d.Status)
}

func (c Chain) SetNext(slot int, next uint32) {
	c.StoreUint32(slot*DescriptorBytes+descNext, next)
}

// Status reads the slot's status word straight from memory; the engine
// updates it as it retires the descriptor.
func (c Chain) Status(slot int) uint32 {
	return c.LoadUint32(slot*DescriptorBytes + descStatus)
}

func (c Chain) SetStatus(slot int, status uint32) {
	c.StoreUint32(slot*DescriptorBytes+descStatus, status)
}
