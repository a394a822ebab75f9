// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

//go:build linux

package pci

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/platinasystems/xpdma/hw"
)

// DevVfioPath holds the container and group device nodes.
var DevVfioPath = "/dev/vfio"

// IOVABase is the first device address handed out by Alloc.
const IOVABase = 0x100000000

// VFIO is a device bound to vfio-pci in its own type1 IOMMU container.
type VFIO struct {
	*Device

	apiVersion int
	group      uint

	// /dev/vfio/vfio, /dev/vfio/GROUP and VFIO_GROUP_GET_DEVICE_FD
	containerFd, groupFd, deviceFd int

	info   vfioDeviceInfo
	iommu  vfioIOMMUType1Info
	bars   []hw.Mem
	maps   []vfioDMAMap
	mems   [][]byte
	iova   uint64
	closed bool
}

func vfioCall(fd int, call vfioIoctl, arg uintptr) (uintptr, error) {
	r, _, e := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(call), arg)
	if e != 0 {
		return r, os.NewSyscallError(call.String(), e)
	}
	return r, nil
}

// OpenVFIO attaches the device's group to a new container. The device must
// already be bound to vfio-pci and be alone in a viable group.
func OpenVFIO(d *Device) (v *VFIO, err error) {
	v = &VFIO{Device: d, containerFd: -1, groupFd: -1, deviceFd: -1,
		iova: IOVABase}
	defer func() {
		if err != nil {
			v.Close()
			v = nil
			err = fmt.Errorf("pci %s: %w", d.Addr, err)
		}
	}()

	if v.containerFd, err = unix.Open(filepath.Join(DevVfioPath, "vfio"),
		unix.O_RDWR|unix.O_CLOEXEC, 0); err != nil {
		return v, os.NewSyscallError("open vfio container", err)
	}
	var r uintptr
	if r, err = vfioCall(v.containerFd, vfioGetAPIVersion, 0); err != nil {
		return
	}
	if v.apiVersion = int(r); v.apiVersion != vfioAPIVersion {
		return v, fmt.Errorf("vfio api version %d", v.apiVersion)
	}
	r, err = vfioCall(v.containerFd, vfioCheckExtension, vfioType1IOMMU)
	if err == nil && r == 0 {
		err = errors.New("vfio type 1 iommu not supported by kernel")
	}
	if err != nil {
		return
	}

	if v.group, err = d.IOMMUGroup(); err != nil {
		return
	}
	if v.groupFd, err = unix.Open(filepath.Join(DevVfioPath,
		strconv.FormatUint(uint64(v.group), 10)),
		unix.O_RDWR|unix.O_CLOEXEC, 0); err != nil {
		return v, os.NewSyscallError("open vfio group", err)
	}
	var status vfioGroupStatus
	status.argsz = uint32(unsafe.Sizeof(status))
	if _, err = vfioCall(v.groupFd, vfioGroupGetStatus,
		uintptr(unsafe.Pointer(&status))); err != nil {
		return
	}
	if status.flags&vfioGroupFlagsViable == 0 {
		return v, fmt.Errorf("vfio group %d is not viable (not all devices are bound for vfio)",
			v.group)
	}
	if status.flags&vfioGroupFlagsContainerSet == 0 {
		fd := int32(v.containerFd)
		if _, err = vfioCall(v.groupFd, vfioGroupSetContainer,
			uintptr(unsafe.Pointer(&fd))); err != nil {
			return
		}
	}
	if _, err = vfioCall(v.containerFd, vfioSetIOMMU, vfioType1IOMMU); err != nil {
		return
	}
	v.iommu.argsz = uint32(unsafe.Sizeof(v.iommu))
	if _, err = vfioCall(v.containerFd, vfioIOMMUGetInfo,
		uintptr(unsafe.Pointer(&v.iommu))); err != nil {
		return
	}

	name, err := unix.BytePtrFromString(d.Addr.String())
	if err != nil {
		return
	}
	if r, err = vfioCall(v.groupFd, vfioGroupGetDeviceFd,
		uintptr(unsafe.Pointer(name))); err != nil {
		return
	}
	v.deviceFd = int(r)
	v.info.argsz = uint32(unsafe.Sizeof(v.info))
	if _, err = vfioCall(v.deviceFd, vfioDeviceGetInfo,
		uintptr(unsafe.Pointer(&v.info))); err != nil {
		return
	}
	if v.info.flags&vfioDeviceFlagsPCI == 0 {
		return v, errors.New("not a vfio pci device")
	}
	return v, nil
}

func (v *VFIO) regionInfo(index uint32) (ri vfioRegionInfo, err error) {
	ri.argsz = uint32(unsafe.Sizeof(ri))
	ri.index = index
	_, err = vfioCall(v.deviceFd, vfioDeviceGetRegionInfo,
		uintptr(unsafe.Pointer(&ri)))
	return
}

// MapBAR maps the whole of BAR bar.
func (v *VFIO) MapBAR(bar int) (hw.Mem, error) {
	ri, err := v.regionInfo(uint32(vfioPCIBar0RegionIndex + bar))
	if err != nil {
		return nil, err
	}
	if ri.flags&vfioRegionInfoFlagMmap == 0 || ri.size == 0 {
		return nil, fmt.Errorf("pci %s: bar%d can't be mapped", v.Addr, bar)
	}
	b, err := unix.Mmap(v.deviceFd, int64(ri.offset), int(ri.size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, os.NewSyscallError("mmap bar", err)
	}
	v.bars = append(v.bars, hw.Mem(b))
	return hw.Mem(b), nil
}

// Alloc returns n bytes of host memory the device reaches at an IOVA that is
// a multiple of align, a power of two.
func (v *VFIO) Alloc(n int, align uint64) (hw.Buffer, error) {
	if n <= 0 {
		return hw.Buffer{}, fmt.Errorf("pci %s: dma alloc of %d bytes", v.Addr, n)
	}
	pg := uint64(unix.Getpagesize())
	if align < pg {
		align = pg
	}
	size := alignUp(uint64(n), pg)
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return hw.Buffer{}, os.NewSyscallError("mmap dma", err)
	}
	iova := alignUp(v.iova, align)
	m := vfioDMAMap{
		vaddr: uint64(uintptr(unsafe.Pointer(&b[0]))),
		iova:  iova,
		size:  size,
	}
	m.argsz = uint32(unsafe.Sizeof(m))
	m.flags = vfioDMAMapFlagRead | vfioDMAMapFlagWrite
	if _, err = vfioCall(v.containerFd, vfioIOMMUMapDMA,
		uintptr(unsafe.Pointer(&m))); err != nil {
		unix.Munmap(b)
		return hw.Buffer{}, err
	}
	v.iova = iova + size
	v.maps = append(v.maps, m)
	v.mems = append(v.mems, b)
	return hw.Buffer{Data: b[:n:n], Phys: iova}, nil
}

// ReadConfig and WriteConfig go through the vfio config region since sysfs
// config of a vfio bound device may be restricted.
func (v *VFIO) ReadConfig(o, n int) (uint32, error) {
	if err := checkConfig(o, n); err != nil {
		return 0, err
	}
	ri, err := v.regionInfo(vfioPCIConfigRegionIndex)
	if err != nil {
		return 0, err
	}
	var b [4]byte
	if _, err = unix.Pread(v.deviceFd, b[:n], int64(ri.offset)+int64(o)); err != nil {
		return 0, os.NewSyscallError("pread config", err)
	}
	var x uint32
	for i := n - 1; i >= 0; i-- {
		x = x<<8 | uint32(b[i])
	}
	return x, nil
}

func (v *VFIO) WriteConfig(o, n int, x uint32) error {
	if err := checkConfig(o, n); err != nil {
		return err
	}
	ri, err := v.regionInfo(vfioPCIConfigRegionIndex)
	if err != nil {
		return err
	}
	var b [4]byte
	for i := range b {
		b[i] = byte(x >> uint(8*i))
	}
	if _, err = unix.Pwrite(v.deviceFd, b[:n], int64(ri.offset)+int64(o)); err != nil {
		return os.NewSyscallError("pwrite config", err)
	}
	return nil
}

func (v *VFIO) EnableBusMaster() error {
	x, err := v.ReadConfig(CommandOffset, 2)
	if err != nil {
		return err
	}
	return v.WriteConfig(CommandOffset, 2,
		uint32(Command(x)|MemoryEnable|BusMasterEnable))
}

// Close unmaps everything then releases the device, group and container.
func (v *VFIO) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	var first error
	keep := func(err error) {
		if first == nil && err != nil {
			first = err
		}
	}
	for _, bar := range v.bars {
		keep(bar.Unmap())
	}
	for i := range v.maps {
		u := vfioDMAUnmap{iova: v.maps[i].iova, size: v.maps[i].size}
		u.argsz = uint32(unsafe.Sizeof(u))
		_, err := vfioCall(v.containerFd, vfioIOMMUUnmapDMA,
			uintptr(unsafe.Pointer(&u)))
		keep(err)
		keep(unix.Munmap(v.mems[i]))
	}
	if v.deviceFd >= 0 {
		keep(unix.Close(v.deviceFd))
	}
	if v.groupFd >= 0 {
		fd := int32(v.containerFd)
		vfioCall(v.groupFd, vfioGroupUnsetContainer, uintptr(unsafe.Pointer(&fd)))
		keep(unix.Close(v.groupFd))
	}
	if v.containerFd >= 0 {
		keep(unix.Close(v.containerFd))
	}
	return first
}
