// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package xpdma

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/xpdma/cdma"
	"github.com/platinasystems/xpdma/cdma/sim"
	"github.com/platinasystems/xpdma/config"
)

func openSim(t *testing.T) *Device {
	t.Helper()
	cfg := config.Default()
	cfg.Sim.Enable = true
	cfg.Sim.DDRBytes = 16 << 20
	cfg.Engine.BlockSize = 64 << 10
	cfg.Engine.ChunkSize = 16 << 10
	cfg.Engine.PollDelay = 0
	d, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestSendRecv(t *testing.T) {
	d := openSim(t)
	ctx := context.Background()
	data := bytes.Repeat([]byte("xapp1171"), 40000)
	require.NoError(t, d.Send(ctx, data, 0x1000))
	assert.Equal(t, data, d.Sim().DDR()[0x1000:0x1000+len(data)])

	got := make([]byte, len(data))
	require.NoError(t, d.Recv(ctx, got, 0x1000))
	assert.Equal(t, data, got)
	assert.Equal(t, "sim", d.String())
}

func TestTransferError(t *testing.T) {
	d := openSim(t)
	d.Sim().Fault = cdma.SgDecErr
	err := d.Send(context.Background(), make([]byte, 10), 0)
	require.True(t, errors.Is(err, cdma.ErrEngineDecode), "%v", err)
	var ce *cdma.Error
	require.True(t, errors.As(err, &ce))
	assert.NotNil(t, ce.Snapshot)
	assert.True(t, strings.HasPrefix(err.Error(), "sim: transfer "), err.Error())
}

func TestResetDevice(t *testing.T) {
	d := openSim(t)
	require.NoError(t, d.Reset(context.Background()))
	d.Sim().ResetCycles = -1
	err := d.Reset(context.Background())
	assert.True(t, errors.Is(err, cdma.ErrResetTimeout), "%v", err)
}

func TestRegisters(t *testing.T) {
	d := openSim(t)
	v, err := d.ReadRegister(cdma.CdmaOffset + cdma.CdmaControl)
	require.NoError(t, err)
	assert.Equal(t, uint32(cdma.CrSgEn), v, "open leaves the engine reset")
	require.NoError(t, d.WriteRegister(cdma.BramOffset+0x10, 0xdeadbeef))
	v, err = d.ReadRegister(cdma.BramOffset + 0x10)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v)
	_, err = d.ReadRegister(3)
	assert.True(t, errors.Is(err, cdma.ErrInvalid))
}

func TestConfigSpace(t *testing.T) {
	d := openSim(t)
	v, err := d.ReadConfig(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(sim.Device<<16|sim.Vendor), v)
	require.NoError(t, d.WriteConfig(0x3c, 0x1ff))
	v, err = d.ReadConfig(0x3c)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1ff), v)
	_, err = d.ReadConfig(2)
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	d := openSim(t)
	var buf bytes.Buffer
	require.NoError(t, d.Info(&buf))
	out := buf.String()
	assert.Contains(t, out, "DEVICE: sim id 0x702410ee")
	assert.Contains(t, out, "block size: 65536, chunk size: 16384, idle: true")
	assert.Contains(t, out, "REGISTERS:")
}

func TestWriteMetrics(t *testing.T) {
	d := openSim(t)
	require.NoError(t, d.Send(context.Background(), make([]byte, 100), 0))
	fn := filepath.Join(t.TempDir(), "xpdma.prom")
	require.NoError(t, d.WriteMetrics(fn))
	b, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Contains(t, string(b), `xpdma_cdma_transfers_total{direction="to-device",result="none"} 1`)
	assert.Contains(t, string(b), `xpdma_cdma_resets_total{result="none"} 1`)
}

func TestOpenInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.Enable = true
	cfg.Engine.ChunkSize = 0
	_, err := Open(cfg)
	assert.True(t, errors.Is(err, cdma.ErrInvalid), "%v", err)
}
