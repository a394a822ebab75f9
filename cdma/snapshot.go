// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import (
	"bytes"
	"fmt"
	"io"
)

type Reg struct {
	Offset uint32
	Value  uint32
}

// Snapshot is the engine state captured for postmortem inspection.
type Snapshot struct {
	Buffers     Buffers
	ChainLength int
	Bram        []Reg
	PcieCtl     []Reg
	Cdma        []Reg
	Descriptors []Descriptor
}

const maxSnapshotDescriptors = 8

// Snapshot reads registers and descriptors without the engine lock so that
// it may inspect a transfer in flight; it never writes.
func (e *Engine) Snapshot() *Snapshot {
	s := &Snapshot{
		Buffers:     e.bufs,
		ChainLength: int(e.chainLength.Load()),
	}
	rd := func(o uint32) Reg { return Reg{o, e.w.LoadUint32(o)} }
	for o := uint32(0); o <= 8*4; o += 4 {
		s.Bram = append(s.Bram, rd(BramOffset+o))
	}
	s.PcieCtl = append(s.PcieCtl, rd(PcieCtlOffset))
	for o := uint32(AxiBar2PcieBar0U); o <= 0x234; o += 4 {
		s.PcieCtl = append(s.PcieCtl, rd(PcieCtlOffset+o))
	}
	for o := uint32(0); o <= CdmaBtt; o += 4 {
		s.Cdma = append(s.Cdma, rd(CdmaOffset+o))
	}
	n := 2 * s.ChainLength
	if n < 4 {
		n = 4
	}
	if n > maxSnapshotDescriptors {
		n = maxSnapshotDescriptors
	}
	if n > e.chain.Slots() {
		n = e.chain.Slots()
	}
	for i := 0; i < n; i++ {
		s.Descriptors = append(s.Descriptors, e.chain.Load(i))
	}
	return s
}

func (s *Snapshot) WriteTo(w io.Writer) (int64, error) {
	buf := new(bytes.Buffer)
	fmt.Fprintln(buf, "HOST REGIONS:")
	fmt.Fprintln(buf, "read buffer:", s.Buffers.Read)
	fmt.Fprintln(buf, "write buffer:", s.Buffers.Write)
	fmt.Fprintln(buf, "descriptor chain:", s.Buffers.Chain)
	fmt.Fprintf(buf, "descriptor chain length: %d\n", s.ChainLength)
	fmt.Fprintln(buf, "REGISTERS:")
	for _, sec := range []struct {
		name string
		regs []Reg
	}{
		{"BRAM", s.Bram},
		{"PCIe CTL", s.PcieCtl},
		{"CDMA CTL", s.Cdma},
	} {
		fmt.Fprintf(buf, "%s:\n", sec.name)
		for _, r := range sec.regs {
			fmt.Fprintf(buf, "0x%08x: 0x%08x\n", r.Offset, r.Value)
		}
	}
	fmt.Fprintln(buf, "DESCRIPTORS:")
	for i, d := range s.Descriptors {
		fmt.Fprintf(buf, "%d: %v\n", i, d)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (s *Snapshot) String() string {
	buf := new(bytes.Buffer)
	s.WriteTo(buf)
	return buf.String()
}
