// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import (
	"context"
	"fmt"
	"math"

	"github.com/platinasystems/log"
)

// Transfer moves data between buf and DDR3 at offset in staging blocks of
// at most Config.BlockSize. Blocks already completed when a later one fails
// are not undone; the returned *Error's Done counts them.
func (e *Engine) Transfer(ctx context.Context, dir Direction, buf []byte, offset uint32) error {
	if !dir.Valid() {
		return &Error{Op: "transfer", Dir: dir, Offset: offset,
			Err: fmt.Errorf("%w: unknown %v", ErrInvalid, dir)}
	}
	if len(buf) == 0 {
		return nil
	}
	if uint64(len(buf))-1 > math.MaxUint32-uint64(offset) {
		return &Error{Op: "transfer", Dir: dir, Offset: offset,
			Err: fmt.Errorf("%w: %d bytes at 0x%08x overflow", ErrInvalid,
				len(buf), offset)}
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return &Error{Op: "transfer", Dir: dir, Offset: offset, Err: err}
	}
	defer e.sem.Release(1)

	done, block, err := e.transfer(ctx, dir, buf, offset)
	e.m.transfers.WithLabelValues(dir.String(), ClassOf(err).String()).Inc()
	if err == nil {
		return nil
	}
	ce := &Error{
		Op:     "transfer",
		Dir:    dir,
		Block:  block,
		Offset: offset + uint32(done),
		Done:   done,
		Err:    err,
	}
	if ClassOf(err) != Precondition {
		ce.Snapshot = e.Snapshot()
		log.Print("debug", ce.Snapshot)
	}
	log.Print("daemon", "err", ce)
	return ce
}

func (e *Engine) transfer(ctx context.Context, dir Direction, buf []byte, offset uint32) (done, block int, err error) {
	staging := e.bufs.Write
	if dir == FromDevice {
		staging = e.bufs.Read
	}
	for ; done < len(buf); block++ {
		if err = ctx.Err(); err != nil {
			return
		}
		size := len(buf) - done
		if size > e.cfg.BlockSize {
			size = e.cfg.BlockSize
		}
		if size > staging.Cap() {
			err = fmt.Errorf("%w: %d byte block, %d byte staging buffer",
				ErrStagingCopy, size, staging.Cap())
			return
		}
		at := offset + uint32(done)
		if dir == ToDevice {
			copy(staging.Data, buf[done:done+size])
		}
		e.m.blocks.WithLabelValues(dir.String()).Inc()
		if err = e.operation(dir, size, at); err != nil {
			return
		}
		if dir == FromDevice {
			copy(buf[done:done+size], staging.Data)
		}
		e.m.bytes.WithLabelValues(dir.String()).Add(float64(size))
		done += size
	}
	return
}
