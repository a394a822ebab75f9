// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinasystems/xpdma/cdma"
	"github.com/platinasystems/xpdma/cmd"
)

const simConfig = `
engine:
  block_size: 65536
  chunk_size: 16384
sim:
  ddr_bytes: 1048576
`

type session struct {
	cfg string
	in  bytes.Buffer
	out bytes.Buffer
}

func newSession(t *testing.T) *session {
	fn := filepath.Join(t.TempDir(), "xpdma.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(simConfig), 0644))
	return &session{cfg: fn}
}

// run the named command on a fresh simulator.
func (s *session) run(name string, args ...string) error {
	s.out.Reset()
	args = append([]string{name, "-sim", "-config", s.cfg}, args...)
	return commands(&s.in, &s.out).Main(args...)
}

func Test(t *testing.T) {
	t.Run("Send", Send)
	t.Run("Recv", Recv)
	t.Run("Reset", Reset)
	t.Run("Registers", Registers)
	t.Run("Config", Config)
	t.Run("Info", Info)
	t.Run("Help", Help)
}

func Send(t *testing.T) {
	s := newSession(t)
	s.in.Write(bytes.Repeat([]byte{0x5a}, 1000))
	require.NoError(t, s.run("send", "-v", "0x1000", "-"))
	assert.Equal(t, "sent 1000 bytes to 0x00001000\n", s.out.String())

	fn := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(fn, make([]byte, 200000), 0644))
	require.NoError(t, s.run("send", "0", fn))
	assert.Empty(t, s.out.String())

	err := s.run("send", "0xfffff0", fn)
	assert.True(t, errors.Is(err, cdma.ErrEngineDecode), "%v", err)

	assert.EqualError(t, s.run("send"), "ADDR FILE: missing")
	assert.EqualError(t, s.run("send", "0"), "FILE: missing")
	assert.Error(t, s.run("send", "zero", fn))
	assert.True(t, errors.Is(s.run("send", "0", fn+".none"), os.ErrNotExist))
}

func Recv(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.run("recv", "0", "16"))
	assert.Equal(t, make([]byte, 16), s.out.Bytes())

	require.NoError(t, s.run("recv", "-x", "0x100", "0x20"))
	assert.Equal(t, hex.Dump(make([]byte, 32)), s.out.String())

	fn := filepath.Join(t.TempDir(), "data")
	require.NoError(t, s.run("recv", "0", "100K", fn))
	b, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 100<<10), b)

	assert.EqualError(t, s.run("recv", "0"), "COUNT: missing")
	assert.Error(t, s.run("recv", "0", "1T"))
	assert.Error(t, s.run("recv", "0", "1", fn, "more"))
}

func Reset(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.run("reset", "-retry", "2"))
	assert.Equal(t, "idle: true\n", s.out.String())
	assert.EqualError(t, s.run("reset", "-retry", "x"), "-retry x: invalid")
	assert.EqualError(t, s.run("reset", "now"), "[now]: unexpected")
}

func Registers(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.run("rdreg", "0xc000", "0xc004"))
	assert.Equal(t, "0x0000c000: 0x00000008\n0x0000c004: 0x0000000a\n",
		s.out.String())
	require.NoError(t, s.run("wrreg", "0x10", "0xdeadbeef"))

	assert.True(t, errors.Is(s.run("rdreg", "3"), cdma.ErrInvalid))
	assert.True(t, errors.Is(s.run("wrreg", "0x10000", "0"), cdma.ErrInvalid))
	assert.EqualError(t, s.run("rdreg"), "OFFSET: missing")
	assert.EqualError(t, s.run("wrreg", "0x10"), "VALUE: missing")
}

func Config(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.run("rdcfg", "0"))
	assert.Equal(t, "0x000: 0x702410ee\n", s.out.String())
	require.NoError(t, s.run("wrcfg", "0x3c", "0x1ff"))
	assert.Error(t, s.run("rdcfg", "2"))
	assert.EqualError(t, s.run("wrcfg"), "OFFSET VALUE: missing")
}

func Info(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.run("info", "-c"))
	out := s.out.String()
	assert.Contains(t, out, "DEVICE: sim id 0x702410ee\n")
	assert.Contains(t, out, "block size: 65536, chunk size: 16384, idle: true\n")
	assert.Contains(t, out, "CONFIG:\n")
	assert.Contains(t, out, "block_size: 65536")
}

func Help(t *testing.T) {
	var out bytes.Buffer
	defer func(w io.Writer) { cmd.Stdout = w }(cmd.Stdout)
	cmd.Stdout = &out
	byName := commands(nil, nil)
	assert.Equal(t, []string{"info", "rdcfg", "rdreg", "recv", "reset",
		"send", "wrcfg", "wrreg"}, byName.Keys())

	require.NoError(t, byName.Main("send", "-h"))
	assert.Equal(t, "usage:\n\tsend [-v] [OPTION]... ADDR FILE|-\n", out.String())

	out.Reset()
	require.NoError(t, byName.Main("man", "reset"))
	assert.Contains(t, out.String(), "NAME\n\treset - soft reset the CDMA engine\n")
	assert.Contains(t, out.String(), "-retry N")
	assert.Contains(t, out.String(), "-config FILE")

	out.Reset()
	require.NoError(t, byName.Main("help"))
	assert.Contains(t, out.String(), "recv     copy device memory to a file\n")

	assert.EqualError(t, byName.Main("dd"), "dd: command not found")
}
