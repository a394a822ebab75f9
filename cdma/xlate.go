// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import (
	"fmt"
	"math"

	"github.com/platinasystems/xpdma/hw"
)

// ProgramChainLocation points the bridge's AXI:BAR0 at the host descriptor
// chain so the engine fetches descriptors from AxiPcieSgAddr.
func ProgramChainLocation(w hw.Window, phys uint64) {
	w.StoreUint32(PcieCtlOffset+AxiBar2PcieBar0L, uint32(phys))
	w.StoreUint32(PcieCtlOffset+AxiBar2PcieBar0U, uint32(phys>>32))
}

// ProgramTranslationVector writes the host address of each of n chunks of
// the staging buffer at phys into successive BRAM rows. The chain's address
// translation descriptors copy these rows to AXI:BAR1 while it runs, so
// this must follow BuildChain and precede the tail descriptor write.
func ProgramTranslationVector(w hw.Window, n int, phys uint64, chunk, rows int) error {
	if n <= 0 || n > rows {
		return fmt.Errorf("%w: %d vectors for %d rows", ErrTranslation, n, rows)
	}
	if chunk <= 0 {
		return fmt.Errorf("%w: chunk size %d", ErrTranslation, chunk)
	}
	if uint64(n-1) > (math.MaxUint64-phys)/uint64(chunk) {
		return fmt.Errorf("%w: 0x%x + %d chunks overflows", ErrTranslation, phys, n)
	}
	o := uint32(BramOffset)
	for i := 0; i < n; i++ {
		w.StoreUint32(o+4, uint32(phys))
		w.StoreUint32(o+0, uint32(phys>>32))
		phys += uint64(chunk)
		o += BramStep
	}
	return nil
}
