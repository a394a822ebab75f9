// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package sim

import (
	"encoding/binary"
	"fmt"

	"github.com/platinasystems/xpdma/cdma"
	"github.com/platinasystems/xpdma/hw"
)

const (
	Vendor = 0x10ee
	Device = 0x7024

	ConfigBytes = 256
)

func newConfigSpace() []byte {
	b := make([]byte, ConfigBytes)
	binary.LittleEndian.PutUint16(b[0x00:], Vendor)
	binary.LittleEndian.PutUint16(b[0x02:], Device)
	// memory space enabled, bus master
	binary.LittleEndian.PutUint16(b[0x04:], 0x0006)
	// memory controller, other
	b[0x0a], b[0x0b] = 0x80, 0x05
	binary.LittleEndian.PutUint32(b[0x10:], 0xf0000000)
	return b
}

func (s *CDMA) checkConfig(o, n int) error {
	switch n {
	case 1, 2, 4:
	default:
		return fmt.Errorf("config access width %d: %w", n, cdma.ErrInvalid)
	}
	if o < 0 || o%n != 0 || o+n > len(s.config) {
		return fmt.Errorf("config offset 0x%x: %w", o, cdma.ErrInvalid)
	}
	return nil
}

// ReadConfig returns the n byte little-endian config register at o.
func (s *CDMA) ReadConfig(o, n int) (uint32, error) {
	if err := s.checkConfig(o, n); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var v uint32
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint32(s.config[o+i])
	}
	return v, nil
}

// WriteConfig sets the n byte config register at o. The identity header
// words are read only.
func (s *CDMA) WriteConfig(o, n int, v uint32) error {
	if err := s.checkConfig(o, n); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		if o+i >= 4 && (o+i < 0x08 || o+i >= 0x0c) {
			s.config[o+i] = byte(v)
		}
		v >>= 8
	}
	return nil
}

// PhysBase is where Buffers starts handing out device addresses.
const PhysBase = 0x100000000

// Buffers allocates read and write staging buffers of blockBytes and a
// descriptor chain buffer for pairs descriptor pairs, attached to s at
// distinct AXI BAR aligned device addresses.
func (s *CDMA) Buffers(blockBytes, pairs int) cdma.Buffers {
	phys := uint64(PhysBase)
	alloc := func(n int) hw.Buffer {
		b := hw.Buffer{Data: hw.AlignedBytes(n, cdma.DescriptorBytes), Phys: phys}
		phys += (uint64(n) + cdma.AxiBarBytes - 1) &^ (cdma.AxiBarBytes - 1)
		return b
	}
	bufs := cdma.Buffers{
		Read:  alloc(blockBytes),
		Write: alloc(blockBytes),
		Chain: alloc(2 * pairs * cdma.DescriptorBytes),
	}
	s.Attach(bufs.Read, bufs.Write, bufs.Chain)
	return bufs
}
