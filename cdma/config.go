// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import (
	"fmt"
	"time"
)

// Config bounds what the engine does in hardware. Defaults reproduce the
// reference XAPP1171 driver.
type Config struct {
	// BlockSize is the largest transfer staged through a buffer at once.
	BlockSize int `yaml:"block_size"`
	// ChunkSize is the largest byte count of one data descriptor.
	ChunkSize int `yaml:"chunk_size"`
	// BramRows limits the translation vectors, so the chain length.
	BramRows int `yaml:"bram_rows"`
	// ResetIterations bound the reset bit poll which has no delay.
	ResetIterations int `yaml:"reset_iterations"`
	// PollIterations of PollDelay bound waiting for the tail descriptor.
	PollIterations int           `yaml:"poll_iterations"`
	PollDelay      time.Duration `yaml:"poll_delay"`
	// StrictBusy fails a block with ErrEngineBusy if the engine isn't
	// idle; otherwise, the block is skipped and reported successful.
	StrictBusy bool `yaml:"strict_busy"`
}

const (
	DefaultBlockSize       = 4 << 20
	DefaultChunkSize       = 4 << 20
	DefaultResetIterations = 1000000
	DefaultPollIterations  = 1000000
	DefaultPollDelay       = 10 * time.Microsecond
)

func DefaultConfig() Config {
	return Config{
		BlockSize:       DefaultBlockSize,
		ChunkSize:       DefaultChunkSize,
		BramRows:        BramRows,
		ResetIterations: DefaultResetIterations,
		PollIterations:  DefaultPollIterations,
		PollDelay:       DefaultPollDelay,
	}
}

func (c Config) Validate() error {
	switch {
	case c.BlockSize <= 0:
		return fmt.Errorf("block size %d: %w", c.BlockSize, ErrInvalid)
	case c.BlockSize > AxiBarBytes:
		return fmt.Errorf("block size %d exceeds AXI BAR %d: %w",
			c.BlockSize, AxiBarBytes, ErrInvalid)
	case c.ChunkSize <= 0 || c.ChunkSize > MaxBtt:
		return fmt.Errorf("chunk size %d: %w", c.ChunkSize, ErrInvalid)
	case c.BramRows <= 0 || c.BramRows > BramRows:
		return fmt.Errorf("bram rows %d: %w", c.BramRows, ErrInvalid)
	case Chunks(c.BlockSize, c.ChunkSize) > c.BramRows:
		return fmt.Errorf("block size %d needs %d translation rows of %d: %w",
			c.BlockSize, Chunks(c.BlockSize, c.ChunkSize), c.BramRows,
			ErrInvalid)
	case c.ResetIterations <= 0:
		return fmt.Errorf("reset iterations %d: %w", c.ResetIterations,
			ErrInvalid)
	case c.PollIterations <= 0:
		return fmt.Errorf("poll iterations %d: %w", c.PollIterations,
			ErrInvalid)
	case c.PollDelay < 0:
		return fmt.Errorf("poll delay %v: %w", c.PollDelay, ErrInvalid)
	}
	return nil
}
