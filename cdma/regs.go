// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

// BAR0 layout of the XAPP1171 design: translation BRAM, AXI PCIe bridge
// control and AXI CDMA lite control.
const (
	BramOffset    = 0x00000000
	PcieCtlOffset = 0x00008000
	CdmaOffset    = 0x0000c000
	WindowBytes   = 0x00010000
)

// AXI CDMA register offsets within CdmaOffset.
const (
	CdmaControl  = 0x00
	CdmaStatus   = 0x04
	CdmaCurDesc  = 0x08
	CdmaTailDesc = 0x10
	CdmaSrcAddr  = 0x18
	CdmaDstAddr  = 0x20
	CdmaBtt      = 0x28
)

// AXI PCIe bridge address translation registers within PcieCtlOffset.
//
// AXI:BAR0 maps the descriptor chain, AXI:BAR1 the staging buffer the
// current data descriptor moves.
const (
	AxiBar2PcieBar0U = 0x208
	AxiBar2PcieBar0L = 0x20c
	AxiBar2PcieBar1U = 0x210
	AxiBar2PcieBar1L = 0x214
)

// Addresses as seen from the AXI side of the bridge.
const (
	AxiPcieDmAddr = 0x80000000 // AXI:BAR1, translated staging buffer
	AxiPcieSgAddr = 0x80800000 // AXI:BAR0, translated descriptor chain
	AxiBramAddr   = 0x81000000 // AXI lite window, BAR0 offset 0
	AxiDdr3Addr   = 0x00000000
	AxiBarBytes   = 0x00800000
)

// Control and status register bits.
const (
	CrSgEn    = 0x00000008
	CrReset   = 0x00000004
	SrIdle    = 0x00000002
	SrSgIncld = 0x00000008
)

// Descriptor status bits written back by the engine.
const (
	SgComplete = 0xf0000000
	SgDecErr   = 0x40000000
	SgSlaveErr = 0x20000000
	SgIntErr   = 0x10000000
	SgCmplt    = 0x80000000
)

const (
	// MaxBtt is the largest byte count a single descriptor may move.
	MaxBtt = 0x007fffff

	DescriptorBytes = 64

	// BramStep is one 64-bit translation vector.
	BramStep = 8

	// AddrBtt is the control length of an address translation descriptor,
	// one 64-bit bridge translation.
	AddrBtt = 8

	// BramRows is the translation BRAM capacity, everything below the
	// bridge control block.
	BramRows = (PcieCtlOffset - BramOffset) / BramStep
)
