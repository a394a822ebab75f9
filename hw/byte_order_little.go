// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

//go:build !(mips || mips64 || ppc64 || s390x)

package hw

func le32(x uint32) uint32 { return x }
