// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package pci finds PCI devices through sysfs, accesses their config space
// and maps their BARs; vfio.go adds IOMMU mapped DMA memory.
package pci

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/platinasystems/xpdma/hw"
)

var ErrNotFound = errors.New("no such pci device")

// SysBusPciPath is where devices are looked up.
var SysBusPciPath = "/sys/bus/pci/devices"

type BusAddress struct {
	Domain        uint16
	Bus, Slot, Fn uint8
}

func (a BusAddress) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%01x", a.Domain, a.Bus, a.Slot, a.Fn)
}

// ParseBusAddress accepts DDDD:BB:SS.F and BB:SS.F in domain 0.
func ParseBusAddress(s string) (a BusAddress, err error) {
	if strings.Count(s, ":") == 1 {
		s = "0000:" + s
	}
	n, err := fmt.Sscanf(s, "%x:%x:%x.%x", &a.Domain, &a.Bus, &a.Slot, &a.Fn)
	if err == nil && (n != 4 || a.Slot > 0x1f || a.Fn > 7) {
		err = fmt.Errorf("bad address")
	}
	if err != nil {
		err = fmt.Errorf("pci address %q: %w", s, err)
	}
	return
}

type DeviceID struct {
	Vendor, Device uint16
}

func (i DeviceID) String() string {
	return fmt.Sprintf("%04x:%04x", i.Vendor, i.Device)
}

// Command register bits.
type Command uint16

const (
	IOEnable Command = 1 << iota
	MemoryEnable
	BusMasterEnable
)

const CommandOffset = 0x04

type Resource struct {
	Index      int // index of BAR
	Base, Size uint64
	Flags      uint64
}

func (r Resource) String() string {
	if r.Size == 0 {
		return fmt.Sprintf("{%d: unused}", r.Index)
	}
	return fmt.Sprintf("{%d: 0x%x-0x%x}", r.Index, r.Base, r.Base+r.Size-1)
}

type Device struct {
	Addr      BusAddress
	ID        DeviceID
	Resources []Resource
}

func (d *Device) String() string {
	return fmt.Sprintf("%s %s", d.Addr, d.ID)
}

func (d *Device) SysfsPath(format string, args ...interface{}) string {
	return filepath.Join(SysBusPciPath, d.Addr.String(),
		fmt.Sprintf(format, args...))
}

func (d *Device) readHexFile(name string) (v uint64, err error) {
	b, err := os.ReadFile(d.SysfsPath(name))
	if err != nil {
		return
	}
	if _, err = fmt.Sscanf(strings.TrimSpace(string(b)), "0x%x", &v); err != nil {
		err = fmt.Errorf("%s: %w", d.SysfsPath(name), err)
	}
	return
}

// IOMMUGroup returns the device's iommu group number.
func (d *Device) IOMMUGroup() (uint, error) {
	s, err := os.Readlink(d.SysfsPath("iommu_group"))
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(filepath.Base(s), 10, 0)
	return uint(n), err
}

// Loop through BARs to find resources.
func (d *Device) findResources() error {
	f, err := os.Open(d.SysfsPath("resource"))
	if err != nil {
		return err
	}
	defer f.Close()
	d.Resources = d.Resources[:0]
	scanner := bufio.NewScanner(f)
	for i := 0; scanner.Scan(); i++ {
		var v [3]uint64
		n, err := fmt.Sscanf(scanner.Text(), "0x%x 0x%x 0x%x",
			&v[0], &v[1], &v[2])
		if err != nil || n != 3 {
			return fmt.Errorf("%s line %d: short read", f.Name(), i+1)
		}
		r := Resource{Index: i, Base: v[0], Flags: v[2]}
		if v[0] != 0 {
			r.Size = 1 + v[1] - v[0]
		}
		d.Resources = append(d.Resources, r)
	}
	return scanner.Err()
}

// Open reads the identity and resources of the device at addr.
func Open(addr BusAddress) (*Device, error) {
	d := &Device{Addr: addr}
	v, err := d.readHexFile("vendor")
	if err != nil {
		return nil, fmt.Errorf("pci %s: %w", addr, err)
	}
	d.ID.Vendor = uint16(v)
	if v, err = d.readHexFile("device"); err != nil {
		return nil, fmt.Errorf("pci %s: %w", addr, err)
	}
	d.ID.Device = uint16(v)
	if err = d.findResources(); err != nil {
		return nil, fmt.Errorf("pci %s: %w", addr, err)
	}
	return d, nil
}

// Devices lists every device present in address order.
func Devices() ([]*Device, error) {
	des, err := os.ReadDir(SysBusPciPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var devs []*Device
	for _, de := range des {
		a, err := ParseBusAddress(de.Name())
		if err != nil {
			continue
		}
		d, err := Open(a)
		if err != nil {
			return nil, err
		}
		devs = append(devs, d)
	}
	return devs, nil
}

// Find returns the first device with the given identity.
func Find(id DeviceID) (*Device, error) {
	devs, err := Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func checkConfig(o, n int) error {
	switch n {
	case 1, 2, 4:
	default:
		return fmt.Errorf("pci config width %d", n)
	}
	if o < 0 || o%n != 0 || o+n > 4096 {
		return fmt.Errorf("pci config offset 0x%x width %d", o, n)
	}
	return nil
}

// ReadConfig returns the n byte, little endian, config register at o.
func (d *Device) ReadConfig(o, n int) (v uint32, err error) {
	if err = checkConfig(o, n); err != nil {
		return
	}
	f, err := os.Open(d.SysfsPath("config"))
	if err != nil {
		return
	}
	defer f.Close()
	var b [4]byte
	if _, err = f.ReadAt(b[:n], int64(o)); err != nil {
		return 0, fmt.Errorf("pci %s config 0x%x: %w", d.Addr, o, err)
	}
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return
}

func (d *Device) WriteConfig(o, n int, v uint32) error {
	if err := checkConfig(o, n); err != nil {
		return err
	}
	f, err := os.OpenFile(d.SysfsPath("config"), os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	var b [4]byte
	for i := range b {
		b[i] = byte(v >> uint(8*i))
	}
	if _, err = f.WriteAt(b[:n], int64(o)); err != nil {
		return fmt.Errorf("pci %s config 0x%x: %w", d.Addr, o, err)
	}
	return nil
}

// EnableBusMaster sets memory space and bus master enable so the device
// may reach host memory.
func (d *Device) EnableBusMaster() error {
	v, err := d.ReadConfig(CommandOffset, 2)
	if err != nil {
		return err
	}
	want := Command(v) | MemoryEnable | BusMasterEnable
	if Command(v) == want {
		return nil
	}
	return d.WriteConfig(CommandOffset, 2, uint32(want))
}

// MapResource maps BAR bar through its sysfs resource file.
func (d *Device) MapResource(bar int) (hw.Mem, error) {
	if bar < 0 || bar >= len(d.Resources) || d.Resources[bar].Size == 0 {
		return nil, fmt.Errorf("pci %s: no resource%d", d.Addr, bar)
	}
	f, err := os.OpenFile(d.SysfsPath("resource%d", bar), os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return hw.Map(f, 0, int(d.Resources[bar].Size))
}
