// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package xpdma moves data between host memory and the DDR3 of a Xilinx
// XAPP1171 PCIe endpoint with its AXI CDMA in scatter gather mode.
//
//	d, err := xpdma.Open(config.Default())
//	if err != nil {
//		panic(err)
//	}
//	defer d.Close()
//	err = d.Send(ctx, data, 0)
package xpdma

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/satori/go.uuid"

	"github.com/platinasystems/log"
	"github.com/platinasystems/xpdma/cdma"
	"github.com/platinasystems/xpdma/cdma/sim"
	"github.com/platinasystems/xpdma/config"
	"github.com/platinasystems/xpdma/hw"
	"github.com/platinasystems/xpdma/pci"
	"github.com/platinasystems/xpdma/publish"
)

// ConfigSpace is PCI config register access of width 1, 2 or 4 bytes.
type ConfigSpace interface {
	ReadConfig(o, n int) (uint32, error)
	WriteConfig(o, n int, v uint32) error
}

type Device struct {
	cfg    config.Config
	name   string
	engine *cdma.Engine
	space  ConfigSpace
	reg    *prometheus.Registry
	pub    *publish.Publisher
	sim    *sim.CDMA
	vfio   *pci.VFIO
}

// Open claims the configured endpoint, or a simulator, and resets its
// engine.
func Open(cfg config.Config) (d *Device, err error) {
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("xpdma: %w", err)
	}
	d = &Device{cfg: cfg, reg: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			d.Close()
			d = nil
		}
	}()

	var (
		w    hw.Window
		bufs cdma.Buffers
	)
	if cfg.Sim.Enable {
		w, bufs, err = d.openSim()
	} else {
		w, bufs, err = d.openVFIO()
	}
	if err != nil {
		return
	}

	d.engine, err = cdma.New(w, bufs, cdma.WithConfig(cfg.Engine),
		cdma.WithRegisterer(d.reg))
	if err != nil {
		return
	}
	if err = d.engine.Reset(context.Background()); err != nil {
		return
	}

	if cfg.Redis.Addr != "" {
		d.pub, err = publish.Dial(cfg.Redis.Addr, cfg.Redis.Key,
			cfg.Redis.Channel)
		if err != nil {
			return
		}
	}
	log.Print("daemon", "info", d.name, " ready")
	d.publish(map[string]interface{}{
		"device":     d.name,
		"block.size": cfg.Engine.BlockSize,
		"idle":       d.engine.IsIdle(),
	})
	return d, nil
}

func (d *Device) openSim() (hw.Window, cdma.Buffers, error) {
	d.sim = sim.New(d.cfg.Sim.DDRBytes)
	d.space = d.sim
	d.name = "sim"
	c := d.cfg.Engine
	return d.sim, d.sim.Buffers(c.BlockSize, cdma.Chunks(c.BlockSize, c.ChunkSize)), nil
}

func (d *Device) openVFIO() (w hw.Window, bufs cdma.Buffers, err error) {
	var dev *pci.Device
	if d.cfg.Device.Addr != "" {
		var a pci.BusAddress
		if a, err = pci.ParseBusAddress(d.cfg.Device.Addr); err != nil {
			return
		}
		dev, err = pci.Open(a)
	} else {
		dev, err = pci.Find(pci.DeviceID{
			Vendor: d.cfg.Device.Vendor,
			Device: d.cfg.Device.Device,
		})
	}
	if err != nil {
		return
	}
	d.name = dev.String()
	if d.vfio, err = pci.OpenVFIO(dev); err != nil {
		return
	}
	d.space = d.vfio
	if err = d.vfio.EnableBusMaster(); err != nil {
		return
	}
	regs, err := d.vfio.MapBAR(d.cfg.Device.Bar)
	if err != nil {
		return
	}
	if len(regs) < cdma.WindowBytes {
		err = fmt.Errorf("%s: bar%d is %d bytes, want %d", d.name,
			d.cfg.Device.Bar, len(regs), cdma.WindowBytes)
		return
	}
	c := d.cfg.Engine
	for _, x := range []struct {
		b *hw.Buffer
		n int
	}{
		{&bufs.Read, c.BlockSize},
		{&bufs.Write, c.BlockSize},
		{&bufs.Chain, 2 * cdma.Chunks(c.BlockSize, c.ChunkSize) * cdma.DescriptorBytes},
	} {
		if *x.b, err = d.vfio.Alloc(x.n, cdma.AxiBarBytes); err != nil {
			return
		}
	}
	return regs, bufs, nil
}

func (d *Device) Close() error {
	var err error
	if d.pub != nil {
		err = d.pub.Close()
		d.pub = nil
	}
	if d.vfio != nil {
		if e := d.vfio.Close(); err == nil {
			err = e
		}
		d.vfio = nil
	}
	return err
}

func (d *Device) String() string { return d.name }

func (d *Device) Config() config.Config { return d.cfg }

func (d *Device) Engine() *cdma.Engine { return d.engine }

// Sim returns the simulator behind the device, if configured.
func (d *Device) Sim() *sim.CDMA { return d.sim }

func (d *Device) Registry() *prometheus.Registry { return d.reg }

// Send copies data to device DDR3 at addr.
func (d *Device) Send(ctx context.Context, data []byte, addr uint32) error {
	return d.transfer(ctx, cdma.ToDevice, data, addr)
}

// Recv fills data from device DDR3 at addr.
func (d *Device) Recv(ctx context.Context, data []byte, addr uint32) error {
	return d.transfer(ctx, cdma.FromDevice, data, addr)
}

func (d *Device) transfer(ctx context.Context, dir cdma.Direction, data []byte, addr uint32) error {
	id := uuid.NewV4()
	log.Print("debug", "transfer ", id, " ", dir, " ", len(data),
		" bytes at ", fmt.Sprintf("0x%08x", addr))
	err := d.engine.Transfer(ctx, dir, data, addr)
	status := map[string]interface{}{
		"transfer.id":        id.String(),
		"transfer.direction": dir.String(),
		"transfer.addr":      fmt.Sprintf("0x%08x", addr),
		"transfer.bytes":     len(data),
		"transfer.result":    cdma.ClassOf(err).String(),
		"idle":               d.engine.IsIdle(),
	}
	if err != nil {
		log.Print("daemon", "err", "transfer ", id, ": ", err)
		d.publish(status)
		return fmt.Errorf("%s: transfer %s: %w", d.name, id, err)
	}
	d.publish(status)
	return nil
}

func (d *Device) Reset(ctx context.Context) error {
	err := d.engine.Reset(ctx)
	d.publish(map[string]interface{}{
		"reset.result": cdma.ClassOf(err).String(),
		"idle":         d.engine.IsIdle(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", d.name, err)
	}
	return nil
}

func (d *Device) ReadRegister(o uint32) (uint32, error) {
	return d.engine.ReadRegister(o)
}

func (d *Device) WriteRegister(o, v uint32) error {
	return d.engine.WriteRegister(o, v)
}

// ReadConfig returns the 32-bit config register at o.
func (d *Device) ReadConfig(o int) (uint32, error) {
	v, err := d.space.ReadConfig(o, 4)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", d.name, err)
	}
	return v, nil
}

func (d *Device) WriteConfig(o int, v uint32) error {
	if err := d.space.WriteConfig(o, 4, v); err != nil {
		return fmt.Errorf("%s: %w", d.name, err)
	}
	return nil
}

// Info writes the device identity, engine configuration and a snapshot of
// engine state.
func (d *Device) Info(w io.Writer) error {
	id, err := d.ReadConfig(0)
	if err != nil {
		return err
	}
	c := d.cfg.Engine
	fmt.Fprintf(w, "DEVICE: %s id 0x%08x\n", d.name, id)
	fmt.Fprintf(w, "block size: %d, chunk size: %d, idle: %t\n",
		c.BlockSize, c.ChunkSize, d.engine.IsIdle())
	_, err = d.engine.Snapshot().WriteTo(w)
	return err
}

// WriteMetrics writes the engine's metrics to the named file in the
// prometheus text exposition format.
func (d *Device) WriteMetrics(fn string) error {
	return prometheus.WriteToTextfile(fn, d.reg)
}

func (d *Device) publish(fields map[string]interface{}) {
	if d.pub == nil {
		return
	}
	if err := d.pub.Publish(fields); err != nil {
		log.Print("daemon", "warning", d.name, ": ", err)
	}
}
