// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package cdma drives a Xilinx AXI CDMA, behind an AXI PCIe bridge, in
// scatter gather mode.
//
// Each staging block of a transfer is described by a chain of descriptor
// pairs in host memory. The first descriptor of a pair copies a translation
// vector from BRAM into the bridge's AXI:BAR1 translation so that the
// second, the data descriptor, reaches the matching chunk of the staging
// buffer. The engine is started by the tail descriptor write and the tail's
// status word is polled for completion.
//
// An Engine owns no memory. The register window and DMA buffers belong to
// the caller and must outlive it.
package cdma

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"github.com/platinasystems/xpdma/hw"
)

// Buffers are the DMA regions an Engine borrows. Read receives device to
// host blocks, Write stages host to device blocks and Chain holds
// descriptors.
type Buffers struct {
	Read, Write, Chain hw.Buffer
}

type Engine struct {
	w     hw.Window
	bufs  Buffers
	chain Chain
	cfg   Config
	delay func(time.Duration)
	reg   prometheus.Registerer
	m     *metrics

	// Only one configure, start, poll sequence may be in flight since
	// there is one engine, one chain and one pair of staging buffers.
	sem *semaphore.Weighted

	// Length of the last built chain for Snapshot.
	chainLength atomic.Int32
}

type Option func(*Engine)

func WithConfig(c Config) Option { return func(e *Engine) { e.cfg = c } }

// WithRegisterer registers the engine's collectors with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(e *Engine) { e.reg = r }
}

// WithDelay replaces the poll delay function, hw.Udelay by default.
func WithDelay(f func(time.Duration)) Option {
	return func(e *Engine) { e.delay = f }
}

func New(w hw.Window, bufs Buffers, opts ...Option) (*Engine, error) {
	e := &Engine{
		w:     w,
		bufs:  bufs,
		chain: NewChain(bufs.Chain),
		cfg:   DefaultConfig(),
		delay: hw.Udelay,
		m:     newMetrics(),
		sem:   semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if w == nil {
		return nil, fmt.Errorf("cdma: nil register window: %w", ErrInvalid)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cdma: %w", err)
	}
	for _, b := range []struct {
		name string
		hw.Buffer
		min int
	}{
		{"read", bufs.Read, e.cfg.BlockSize},
		{"write", bufs.Write, e.cfg.BlockSize},
		{"chain", bufs.Chain, 2 * Chunks(e.cfg.BlockSize, e.cfg.ChunkSize) *
			DescriptorBytes},
	} {
		if b.Cap() < b.min {
			return nil, fmt.Errorf("cdma: %s buffer %d bytes < %d: %w",
				b.name, b.Cap(), b.min, ErrInvalid)
		}
		// The bridge replaces the address bits above the AXI BAR
		// aperture with the translation so it must be aperture aligned.
		if b.Phys&(AxiBarBytes-1) != 0 {
			return nil, fmt.Errorf("cdma: %s buffer 0x%x isn't 0x%x aligned: %w",
				b.name, b.Phys, AxiBarBytes, ErrInvalid)
		}
	}
	if !bufs.Chain.IsAligned(DescriptorBytes) {
		return nil, fmt.Errorf("cdma: chain buffer %v isn't %d byte aligned: %w",
			bufs.Chain, DescriptorBytes, ErrInvalid)
	}
	if e.reg != nil {
		if err := e.m.register(e.reg); err != nil {
			return nil, fmt.Errorf("cdma: %w", err)
		}
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }
func (e *Engine) Buffers() Buffers { return e.bufs }
func (e *Engine) Chain() Chain { return e.chain }
func (e *Engine) Window() hw.Window { return e.w }
func (e *Engine) ChainLength() int { return int(e.chainLength.Load()) }

func checkReg(offset uint32) error {
	if offset&3 != 0 || offset > WindowBytes-4 {
		return fmt.Errorf("cdma: register 0x%x: %w", offset, ErrInvalid)
	}
	return nil
}

// ReadRegister is a diagnostic passthrough that doesn't wait for a transfer
// in flight.
func (e *Engine) ReadRegister(offset uint32) (uint32, error) {
	if err := checkReg(offset); err != nil {
		return 0, err
	}
	return e.w.LoadUint32(offset), nil
}

// WriteRegister is a diagnostic passthrough that doesn't wait for a
// transfer in flight.
func (e *Engine) WriteRegister(offset, v uint32) error {
	if err := checkReg(offset); err != nil {
		return err
	}
	e.w.StoreUint32(offset, v)
	return nil
}
