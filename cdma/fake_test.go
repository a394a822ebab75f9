// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinasystems/xpdma/hw"
)

type store struct {
	offset, value uint32
}

// run is the chain a tail descriptor write started.
type run struct {
	descs []Descriptor
	bram  []uint64
}

// fakeWindow records register writes. A tail descriptor write captures the
// chain and writes status into the tail descriptor.
type fakeWindow struct {
	regs   map[uint32]uint32
	stores []store
	chain  Chain
	runs   []run
	status uint32
	busy   bool
	stuck  bool

	// fault replaces status on run number faultRun, counting from 1.
	fault    uint32
	faultRun int
}

func newFakeWindow(c Chain) *fakeWindow {
	return &fakeWindow{
		regs:   make(map[uint32]uint32),
		chain:  c,
		status: SgCmplt,
	}
}

func (w *fakeWindow) LoadUint32(o uint32) uint32 {
	if o == CdmaOffset+CdmaStatus {
		if w.busy {
			return SrSgIncld
		}
		return SrSgIncld | SrIdle
	}
	return w.regs[o]
}

func (w *fakeWindow) StoreUint32(o, v uint32) {
	w.stores = append(w.stores, store{o, v})
	w.regs[o] = v
	switch o {
	case CdmaOffset + CdmaControl:
		if v&CrReset != 0 && !w.stuck {
			w.regs[o] = 0
		}
	case CdmaOffset + CdmaTailDesc:
		tail := int(v-AxiPcieSgAddr) / DescriptorBytes
		var r run
		for slot := 0; slot <= tail; slot++ {
			r.descs = append(r.descs, w.chain.Load(slot))
		}
		for i := 0; i < (tail+1)/2; i++ {
			o := uint32(BramOffset + i*BramStep)
			r.bram = append(r.bram, uint64(w.regs[o])<<32|uint64(w.regs[o+4]))
		}
		w.runs = append(w.runs, r)
		status := w.status
		if len(w.runs) == w.faultRun {
			status = w.fault
		}
		if status != 0 {
			w.chain.SetStatus(tail, status)
		}
	}
}

// dataBytes sums the data descriptor byte counts of every run.
func (w *fakeWindow) dataBytes() (n int) {
	for _, r := range w.runs {
		for slot := 1; slot < len(r.descs); slot += 2 {
			n += int(r.descs[slot].Btt())
		}
	}
	return
}

const (
	testReadPhys  = 0x100000000
	testWritePhys = 0x100800000
	testChainPhys = 0x101000000
)

func testBuffers(block, pairs int) Buffers {
	return Buffers{
		Read:  hw.Buffer{Data: hw.AlignedBytes(block, 64), Phys: testReadPhys},
		Write: hw.Buffer{Data: hw.AlignedBytes(block, 64), Phys: testWritePhys},
		Chain: hw.Buffer{
			Data: hw.AlignedBytes(2*pairs*DescriptorBytes, 64),
			Phys: testChainPhys,
		},
	}
}

func smallConfig() Config {
	c := DefaultConfig()
	c.BlockSize = 4096
	c.ChunkSize = 1024
	c.PollIterations = 10
	c.PollDelay = 0
	return c
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) (*Engine, *fakeWindow) {
	t.Helper()
	bufs := testBuffers(cfg.BlockSize, Chunks(cfg.BlockSize, cfg.ChunkSize))
	w := newFakeWindow(NewChain(bufs.Chain))
	opts = append([]Option{WithConfig(cfg), WithDelay(func(time.Duration) {})},
		opts...)
	e, err := New(w, bufs, opts...)
	require.NoError(t, err)
	return e, w
}
