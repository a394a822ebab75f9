// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package config loads xpdma's yaml configuration. Anything a file leaves
// out takes its default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"dario.cat/mergo"
	"go.yaml.in/yaml/v3"

	"github.com/platinasystems/xpdma/cdma"
	"github.com/platinasystems/xpdma/pci"
)

// Device selects the endpoint, by Addr if set, else by first Vendor:Device
// match.
type Device struct {
	Vendor uint16 `yaml:"vendor"`
	Device uint16 `yaml:"device"`
	Addr   string `yaml:"addr"`
	Bar    int    `yaml:"bar"`
}

// Sim replaces the device with cdma/sim.
type Sim struct {
	Enable   bool `yaml:"enable"`
	DDRBytes int  `yaml:"ddr_bytes"`
}

// Redis publishes device status when Addr is set.
type Redis struct {
	Addr    string `yaml:"addr"`
	Key     string `yaml:"key"`
	Channel string `yaml:"channel"`
}

type Config struct {
	Device Device      `yaml:"device"`
	Engine cdma.Config `yaml:"engine"`
	Sim    Sim         `yaml:"sim"`
	Redis  Redis       `yaml:"redis"`
	// Metrics is a prometheus textfile written by Device.WriteMetrics.
	Metrics string `yaml:"metrics"`
}

const (
	DefaultVendor   = 0x10ee
	DefaultDevice   = 0x7024
	DefaultDDRBytes = 64 << 20
	DefaultKey      = "xpdma"
)

func Default() Config {
	return Config{
		Device: Device{
			Vendor: DefaultVendor,
			Device: DefaultDevice,
		},
		Engine: cdma.DefaultConfig(),
		Sim: Sim{
			DDRBytes: DefaultDDRBytes,
		},
		Redis: Redis{
			Key:     DefaultKey,
			Channel: DefaultKey,
		},
	}
}

// Load parses the named file.
func Load(fn string) (Config, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return Config{}, err
	}
	c, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", fn, err)
	}
	return c, nil
}

// Parse rejects unknown keys, then fills what b leaves zero from Default.
func Parse(b []byte) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := mergo.Merge(&c, Default()); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if c.Device.Addr != "" {
		if _, err := pci.ParseBusAddress(c.Device.Addr); err != nil {
			return fmt.Errorf("device: %w", err)
		}
	}
	if c.Device.Bar < 0 || c.Device.Bar > 5 {
		return fmt.Errorf("device: bar %d: %w", c.Device.Bar, cdma.ErrInvalid)
	}
	if c.Sim.Enable && c.Sim.DDRBytes <= 0 {
		return fmt.Errorf("sim: ddr bytes %d: %w", c.Sim.DDRBytes, cdma.ErrInvalid)
	}
	return nil
}

func (c Config) String() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
