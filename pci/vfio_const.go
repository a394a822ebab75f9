// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pci

import "fmt"

const vfioAPIVersion = 0

const vfioType1IOMMU = 1

type vfioIoctl uintptr

var vfioIoctlStrings = [...]string{
	vfioGetAPIVersion - vfioFirst:       "get api version",
	vfioCheckExtension - vfioFirst:      "check extension",
	vfioSetIOMMU - vfioFirst:            "set iommu",
	vfioGroupGetStatus - vfioFirst:      "group get status",
	vfioGroupSetContainer - vfioFirst:   "group set container",
	vfioGroupUnsetContainer - vfioFirst: "group unset container",
	vfioGroupGetDeviceFd - vfioFirst:    "group get device fd",
	vfioDeviceGetInfo - vfioFirst:       "device get info",
	vfioDeviceGetRegionInfo - vfioFirst: "device get region info",
	vfioDeviceGetIrqInfo - vfioFirst:    "device get irq info",
	vfioDeviceSetIrqs - vfioFirst:       "device set irqs",
	vfioDeviceReset - vfioFirst:         "device reset",
	vfioIOMMUGetInfo - vfioFirst:        "iommu get info",
	vfioIOMMUMapDMA - vfioFirst:         "iommu map dma",
	vfioIOMMUUnmapDMA - vfioFirst:       "iommu unmap dma",
}

func (k vfioIoctl) String() string {
	if i := int(k - vfioFirst); k >= vfioFirst && i < len(vfioIoctlStrings) {
		return "vfio " + vfioIoctlStrings[i]
	}
	return fmt.Sprintf("vfio ioctl 0x%x", uintptr(k))
}

// _IO(';', 100 + n)
const (
	vfioFirst vfioIoctl = 0x3b64

	// /dev/vfio/vfio ioctls.
	vfioGetAPIVersion vfioIoctl = iota + vfioFirst - 1
	vfioCheckExtension
	vfioSetIOMMU
	// /dev/vfio/GROUP_NUMBER ioctls.
	vfioGroupGetStatus
	vfioGroupSetContainer
	vfioGroupUnsetContainer
	vfioGroupGetDeviceFd
	// device fd ioctls.
	vfioDeviceGetInfo
	vfioDeviceGetRegionInfo
	vfioDeviceGetIrqInfo
	vfioDeviceSetIrqs
	vfioDeviceReset
	// /dev/vfio/vfio type1 driver ioctls.
	vfioIOMMUGetInfo
	vfioIOMMUMapDMA
	vfioIOMMUUnmapDMA
)

type vfioCommon struct {
	argsz, flags uint32
}

const (
	vfioGroupFlagsViable = 1 << iota
	vfioGroupFlagsContainerSet
)

type vfioGroupStatus struct {
	vfioCommon
}

type vfioDeviceInfo struct {
	vfioCommon
	numRegions uint32
	numIrqs    uint32
}

const (
	vfioDeviceFlagsReset = 1 << iota
	vfioDeviceFlagsPCI
)

type vfioRegionInfo struct {
	vfioCommon
	index     uint32
	capOffset uint32
	size      uint64
	offset    uint64
}

const (
	vfioRegionInfoFlagRead = 1 << iota
	vfioRegionInfoFlagWrite
	vfioRegionInfoFlagMmap
)

const (
	vfioPCIBar0RegionIndex   = 0
	vfioPCIConfigRegionIndex = 7
)

type vfioIOMMUType1Info struct {
	vfioCommon
	iovaPgsizes uint64
}

type vfioDMAMap struct {
	vfioCommon
	vaddr uint64
	iova  uint64
	size  uint64
}

const (
	vfioDMAMapFlagRead = 1 << iota
	vfioDMAMapFlagWrite
)

type vfioDMAUnmap struct {
	vfioCommon
	iova uint64
	size uint64
}

func alignUp(x, align uint64) uint64 { return (x + align - 1) &^ (align - 1) }
