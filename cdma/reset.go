// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import (
	"context"

	"github.com/platinasystems/log"
)

// IsIdle reports the status register's idle bit.
func (e *Engine) IsIdle() bool {
	return e.w.LoadUint32(CdmaOffset+CdmaStatus)&SrIdle != 0
}

// Reset soft resets the engine and leaves it in scatter gather mode. It
// waits for any transfer in flight.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return &Error{Op: "reset", Err: err}
	}
	defer e.sem.Release(1)
	err := e.reset()
	e.m.resets.WithLabelValues(ClassOf(err).String()).Inc()
	if err != nil {
		ce := &Error{Op: "reset", Err: err, Snapshot: e.Snapshot()}
		log.Print("daemon", "err", ce)
		return ce
	}
	return nil
}

func (e *Engine) reset() error {
	const cr = CdmaOffset + CdmaControl
	e.w.StoreUint32(cr, e.w.LoadUint32(cr)|CrReset)
	for i := 0; i < e.cfg.ResetIterations; i++ {
		if v := e.w.LoadUint32(cr); v&CrReset == 0 {
			e.w.StoreUint32(cr, v|CrSgEn)
			return nil
		}
	}
	return ErrResetTimeout
}
