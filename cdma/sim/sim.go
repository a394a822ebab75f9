// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package sim models the XAPP1171 BAR0 window: translation BRAM, the AXI
// PCIe bridge's translation registers, an AXI CDMA in scatter gather mode
// and the DDR3 behind it.
//
// A tail descriptor write runs the chain to completion before returning so
// the status words the driver polls are final once StoreUint32 returns.
package sim

import (
	"encoding/binary"
	"sync"

	"github.com/platinasystems/xpdma/cdma"
	"github.com/platinasystems/xpdma/hw"
)

type Store struct {
	Offset uint32
	Value  uint32
}

type CDMA struct {
	// Busy clears the idle status bit.
	Busy bool
	// Fault, if non-zero, is written to the tail descriptor's status in
	// place of running the chain.
	Fault uint32
	// Hang accepts the tail descriptor write but never runs the chain.
	Hang bool
	// ResetCycles is the number of control register reads the reset bit
	// remains set; negative never clears it.
	ResetCycles int

	mu        sync.Mutex
	regs      [cdma.WindowBytes / 4]uint32
	ddr       []byte
	bufs      []hw.Buffer
	stores    []Store
	resetLeft int
	runs      int
	config    []byte
}

// New returns an idle engine in front of ddrBytes of DDR3.
func New(ddrBytes int) *CDMA {
	return &CDMA{
		ddr:    make([]byte, ddrBytes),
		config: newConfigSpace(),
	}
}

// Attach makes host buffers visible through the bridge translations.
func (s *CDMA) Attach(bufs ...hw.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bufs = append(s.bufs, bufs...)
}

func (s *CDMA) DDR() []byte { return s.ddr }

// Stores returns the register writes since New or ResetLog.
func (s *CDMA) Stores() []Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Store(nil), s.stores...)
}

func (s *CDMA) ResetLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores = s.stores[:0]
}

// Runs is the number of chains run.
func (s *CDMA) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *CDMA) LoadUint32(o uint32) uint32 {
	hw.CheckRegAddr("sim register", uint(o), cdma.WindowBytes)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch o {
	case cdma.CdmaOffset + cdma.CdmaControl:
		if s.resetLeft > 0 {
			s.resetLeft--
			if s.resetLeft == 0 {
				s.regs[o/4] = 0
			}
		}
	case cdma.CdmaOffset + cdma.CdmaStatus:
		v := uint32(cdma.SrSgIncld)
		if !s.Busy && s.resetLeft == 0 {
			v |= cdma.SrIdle
		}
		return v
	}
	return s.regs[o/4]
}

func (s *CDMA) StoreUint32(o, v uint32) {
	hw.CheckRegAddr("sim register", uint(o), cdma.WindowBytes)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores = append(s.stores, Store{o, v})
	s.regs[o/4] = v
	switch o {
	case cdma.CdmaOffset + cdma.CdmaControl:
		if v&cdma.CrReset != 0 {
			s.resetLeft = s.ResetCycles
			if s.resetLeft == 0 {
				s.regs[o/4] = 0
			}
		}
	case cdma.CdmaOffset + cdma.CdmaTailDesc:
		if !s.Hang {
			s.run()
		}
	}
}

func (s *CDMA) reg(o uint32) uint32 { return s.regs[o/4] }

func (s *CDMA) translation(hi, lo uint32) uint64 {
	return uint64(s.reg(cdma.PcieCtlOffset+hi))<<32 |
		uint64(s.reg(cdma.PcieCtlOffset+lo))
}

// host returns the bytes that n bytes at the AXI address a reach.
// AXI:BAR0 and AXI:BAR1 replace all address bits above their aperture with
// their translation. A nil result is a decode error.
func (s *CDMA) host(a uint32, n int) []byte {
	var base uint32
	var trans uint64
	switch {
	case a >= cdma.AxiPcieSgAddr && a < cdma.AxiPcieSgAddr+cdma.AxiBarBytes:
		base = cdma.AxiPcieSgAddr
		trans = s.translation(cdma.AxiBar2PcieBar0U, cdma.AxiBar2PcieBar0L)
	case a >= cdma.AxiPcieDmAddr && a < cdma.AxiPcieDmAddr+cdma.AxiBarBytes:
		base = cdma.AxiPcieDmAddr
		trans = s.translation(cdma.AxiBar2PcieBar1U, cdma.AxiBar2PcieBar1L)
	case a >= cdma.AxiBramAddr:
		return nil
	default:
		if uint64(a)+uint64(n) > uint64(len(s.ddr)) {
			return nil
		}
		return s.ddr[a : int(a)+n]
	}
	if uint64(a-base)+uint64(n) > cdma.AxiBarBytes {
		return nil
	}
	phys := trans&^(cdma.AxiBarBytes-1) | uint64(a-base)
	for _, b := range s.bufs {
		if b.Contains(phys, n) {
			o := int(phys - b.Phys)
			return b.Data[o : o+n]
		}
	}
	return nil
}

func inWindow(a uint32, n int) bool {
	return a >= cdma.AxiBramAddr && a&3 == 0 && n&3 == 0 &&
		uint64(a-cdma.AxiBramAddr)+uint64(n) <= cdma.WindowBytes
}

// move copies n bytes from src to dst, either of which may be the register
// window, word by word in that case.
func (s *CDMA) move(dst, src uint32, n int) bool {
	var p []byte
	if inWindow(src, n) {
		p = make([]byte, n)
		o := src - cdma.AxiBramAddr
		for i := 0; i < n; i += 4 {
			binary.LittleEndian.PutUint32(p[i:], s.reg(o+uint32(i)))
		}
	} else if p = s.host(src, n); p == nil {
		return false
	}
	if inWindow(dst, n) {
		o := dst - cdma.AxiBramAddr
		for i := 0; i < n; i += 4 {
			s.regs[(o+uint32(i))/4] = binary.LittleEndian.Uint32(p[i:])
		}
		return true
	}
	q := s.host(dst, n)
	if q == nil {
		return false
	}
	copy(q, p)
	return true
}

func (s *CDMA) run() {
	s.runs++
	cur := s.reg(cdma.CdmaOffset + cdma.CdmaCurDesc)
	tail := s.reg(cdma.CdmaOffset + cdma.CdmaTailDesc)
	status := func(a uint32, v uint32) {
		if p := s.host(a+0x1c, 4); p != nil {
			hw.Buffer{Data: p}.StoreUint32(0, v)
		}
	}
	for i := 0; i <= 2*cdma.BramRows; i++ {
		p := s.host(cur, cdma.DescriptorBytes)
		if p == nil {
			status(tail, cdma.SgDecErr)
			return
		}
		d := hw.Buffer{Data: p}
		next := d.LoadUint32(0x00)
		src := d.LoadUint32(0x08)
		dst := d.LoadUint32(0x10)
		btt := int(d.LoadUint32(0x18) & cdma.MaxBtt)
		if s.Fault != 0 {
			status(tail, s.Fault)
			return
		}
		if !s.move(dst, src, btt) {
			status(cur, cdma.SgDecErr)
			status(tail, cdma.SgDecErr)
			return
		}
		status(cur, cdma.SgCmplt)
		if cur == tail {
			s.regs[(cdma.CdmaOffset+cdma.CdmaCurDesc)/4] = cur
			return
		}
		cur = next
	}
	status(tail, cdma.SgIntErr)
}
