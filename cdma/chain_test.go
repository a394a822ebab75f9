// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/xpdma/hw"
)

func testChain(pairs int) Chain {
	return NewChain(hw.Buffer{
		Data: hw.AlignedBytes(2*pairs*DescriptorBytes, 64),
		Phys: testChainPhys,
	})
}

func TestBuildChain(t *testing.T) {
	const chunk = 1024
	for _, size := range []int{1, 1023, 1024, 1025, 4096, 10000} {
		c := testChain(16)
		n, err := BuildChain(c, ToDevice, size, 0x100, chunk, BramRows)
		require.NoError(t, err)
		require.Equal(t, (size+chunk-1)/chunk, n, "size %d", size)

		sum := 0
		for i := 0; i < n; i++ {
			a := c.Load(2 * i)
			assert.Equal(t, uint32(AddrBtt), a.Control)
			assert.Equal(t, uint32(AxiBramAddr+i*BramStep), a.Src)
			assert.Equal(t, uint32(AxiBramAddr+PcieCtlOffset+AxiBar2PcieBar1U), a.Dst)
			assert.Equal(t, c.Addr(2*i+1), a.Next)

			d := c.Load(2*i + 1)
			assert.Equal(t, uint32(AxiPcieDmAddr+sum), d.Src)
			assert.Equal(t, uint32(AxiDdr3Addr+0x100+sum), d.Dst)
			assert.LessOrEqual(t, int(d.Btt()), chunk)
			sum += int(d.Btt())
			if i < n-1 {
				assert.Equal(t, c.Addr(2*i+2), d.Next)
			}
		}
		assert.Equal(t, size, sum, "size %d", size)
		assert.Equal(t, uint32(AxiPcieSgAddr), c.Load(Tail(n)).Next,
			"size %d tail must wrap to head", size)
	}
}

func TestBuildChainDirections(t *testing.T) {
	to, from := testChain(4), testChain(4)
	n, err := BuildChain(to, ToDevice, 3000, 0x4000, 1024, BramRows)
	require.NoError(t, err)
	m, err := BuildChain(from, FromDevice, 3000, 0x4000, 1024, BramRows)
	require.NoError(t, err)
	require.Equal(t, n, m)
	for slot := 0; slot <= Tail(n); slot++ {
		a, b := to.Load(slot), from.Load(slot)
		if slot%2 == 0 {
			assert.Equal(t, a, b, "translation descriptors don't depend on direction")
			continue
		}
		assert.Equal(t, a.Src, b.Dst)
		assert.Equal(t, a.Dst, b.Src)
		assert.Equal(t, a.Control, b.Control)
	}
}

func TestBuildChainRejects(t *testing.T) {
	for _, tc := range []struct {
		name  string
		pairs int
		dir   Direction
		size  int
		chunk int
		rows  int
	}{
		{"direction", 4, Direction(3), 100, 1024, BramRows},
		{"zero size", 4, ToDevice, 0, 1024, BramRows},
		{"zero chunk", 4, ToDevice, 100, 0, BramRows},
		{"chunk too big", 4, ToDevice, 100, MaxBtt + 1, BramRows},
		{"chain overflow", 2, ToDevice, 3 * 1024, 1024, BramRows},
		{"bram overflow", 4, FromDevice, 3 * 1024, 1024, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := testChain(tc.pairs)
			_, err := BuildChain(c, tc.dir, tc.size, 0, tc.chunk, tc.rows)
			require.True(t, errors.Is(err, ErrChainBuild), "%v", err)
			assert.Equal(t, Precondition, ClassOf(err))
			for _, b := range c.Data {
				require.Zero(t, b, "nothing written")
			}
		})
	}
}

func TestProgramTranslation(t *testing.T) {
	w := newFakeWindow(testChain(1))
	ProgramChainLocation(w, 0x123456789)
	require.NoError(t, ProgramTranslationVector(w, 2, 0x2fffff000, 0x800, BramRows))
	assert.Equal(t, []store{
		{PcieCtlOffset + AxiBar2PcieBar0L, 0x23456789},
		{PcieCtlOffset + AxiBar2PcieBar0U, 0x1},
		{BramOffset + 4, 0xfffff000},
		{BramOffset + 0, 0x2},
		{BramOffset + 8 + 4, 0xfffff800},
		{BramOffset + 8 + 0, 0x2},
	}, w.stores)

	for _, tc := range []struct {
		n, chunk, rows int
		phys           uint64
	}{
		{0, 1024, 4, 0},
		{5, 1024, 4, 0},
		{1, 0, 4, 0},
		{3, 1024, 4, ^uint64(0) - 1024},
	} {
		w := newFakeWindow(testChain(1))
		err := ProgramTranslationVector(w, tc.n, tc.phys, tc.chunk, tc.rows)
		assert.True(t, errors.Is(err, ErrTranslation), "%+v: %v", tc, err)
		assert.Empty(t, w.stores)
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "to-device", ToDevice.String())
	assert.Equal(t, "from-device", FromDevice.String())
	assert.Equal(t, "direction(0)", Direction(0).String())
	assert.False(t, Direction(7).Valid())
}
