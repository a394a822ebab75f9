// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import (
	"fmt"

	"github.com/platinasystems/log"
)

// operation runs one staging block of size bytes between the staging buffer
// of dir and DDR3 at offset. The caller holds the engine lock.
func (e *Engine) operation(dir Direction, size int, offset uint32) error {
	var staging uint64
	switch dir {
	case ToDevice:
		staging = e.bufs.Write.Phys
	case FromDevice:
		staging = e.bufs.Read.Phys
	default:
		return fmt.Errorf("%w: unknown %v", ErrChainBuild, dir)
	}

	if !e.IsIdle() {
		e.m.busy.Inc()
		if e.cfg.StrictBusy {
			return ErrEngineBusy
		}
		log.Print("warning", "cdma: engine not idle, ", dir, " block at ",
			fmt.Sprintf("0x%08x", offset), " skipped")
		return nil
	}

	e.w.StoreUint32(CdmaOffset+CdmaControl, CrSgEn)

	n, err := BuildChain(e.chain, dir, size, offset, e.cfg.ChunkSize,
		e.cfg.BramRows)
	if err != nil {
		return err
	}
	e.chainLength.Store(int32(n))

	ProgramChainLocation(e.w, e.bufs.Chain.Phys)
	err = ProgramTranslationVector(e.w, n, staging, e.cfg.ChunkSize,
		e.cfg.BramRows)
	if err != nil {
		return err
	}

	tail := Tail(n)
	e.w.StoreUint32(CdmaOffset+CdmaCurDesc, e.chain.Addr(0))
	e.w.StoreUint32(CdmaOffset+CdmaTailDesc, e.chain.Addr(tail))

	return e.poll(tail)
}

func (e *Engine) poll(tail int) error {
	for i := 1; i <= e.cfg.PollIterations; i++ {
		e.delay(e.cfg.PollDelay)
		var err error
		status := e.chain.Status(tail)
		switch {
		case status&SgDecErr != 0:
			err = ErrEngineDecode
		case status&SgSlaveErr != 0:
			err = ErrEngineSlave
		case status&SgIntErr != 0:
			err = ErrEngineInternal
		case status&SgComplete != 0:
			e.m.polls.Observe(float64(i))
			return nil
		default:
			continue
		}
		e.m.polls.Observe(float64(i))
		return fmt.Errorf("%w: tail status 0x%08x", err, status)
	}
	e.m.polls.Observe(float64(e.cfg.PollIterations))
	return ErrEngineTimeout
}
