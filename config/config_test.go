// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/xpdma/cdma"
)

func TestDefault(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, 4<<20, c.Engine.BlockSize)
	assert.Equal(t, 10*time.Microsecond, c.Engine.PollDelay)
	assert.Equal(t, uint16(0x10ee), c.Device.Vendor)
	assert.Equal(t, uint16(0x7024), c.Device.Device)
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
device:
  addr: "0000:03:00.0"
engine:
  block_size: 1048576
  chunk_size: 262144
  poll_delay: 50us
  strict_busy: true
sim:
  enable: true
redis:
  addr: localhost:6379
metrics: /var/lib/node_exporter/xpdma.prom
`))
	require.NoError(t, err)
	assert.Equal(t, "0000:03:00.0", c.Device.Addr)
	assert.Equal(t, uint16(DefaultVendor), c.Device.Vendor)
	assert.Equal(t, 1<<20, c.Engine.BlockSize)
	assert.Equal(t, 256<<10, c.Engine.ChunkSize)
	assert.Equal(t, 50*time.Microsecond, c.Engine.PollDelay)
	assert.Equal(t, cdma.DefaultPollIterations, c.Engine.PollIterations)
	assert.True(t, c.Engine.StrictBusy)
	assert.True(t, c.Sim.Enable)
	assert.Equal(t, DefaultDDRBytes, c.Sim.DDRBytes)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.Equal(t, DefaultKey, c.Redis.Key)
	assert.Equal(t, "/var/lib/node_exporter/xpdma.prom", c.Metrics)
}

func TestParseRejects(t *testing.T) {
	for _, tc := range []struct {
		name, yaml string
		invalid    bool
	}{
		{"unknown key", "engine:\n  blocksize: 4\n", false},
		{"syntax", "engine: [\n", false},
		{"chunk", "engine:\n  chunk_size: 8388608\n", true},
		{"block", "engine:\n  block_size: 16777216\n", true},
		{"rows", "engine:\n  block_size: 4096\n  chunk_size: 1\n  bram_rows: 8\n", true},
		{"bar", "device:\n  bar: 9\n", true},
		{"addr", "device:\n  addr: nowhere\n", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Equal(t, tc.invalid, errors.Is(err, cdma.ErrInvalid), "%v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "xpdma.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("sim:\n  enable: true\n  ddr_bytes: 4096\n"), 0644))
	c, err := Load(fn)
	require.NoError(t, err)
	assert.True(t, c.Sim.Enable)
	assert.Equal(t, 4096, c.Sim.DDRBytes)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	again, err := Parse([]byte(c.String()))
	require.NoError(t, err)
	assert.Equal(t, c, again)
}
