// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cmd

import (
	"fmt"
	"strconv"
)

// ParseUint32 accepts decimal, 0x hex, 0o octal or 0b binary.
func ParseUint32(s string) (uint32, error) {
	u, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err.(*strconv.NumError).Err)
	}
	return uint32(u), nil
}

// ParseCount is a ParseUint32 byte count with an optional K, M or G
// binary multiplier.
func ParseCount(s string) (int, error) {
	shift := 0
	if n := len(s); n > 1 {
		switch s[n-1] {
		case 'K', 'k':
			shift = 10
		case 'M', 'm':
			shift = 20
		case 'G', 'g':
			shift = 30
		}
		if shift > 0 {
			s = s[:n-1]
		}
	}
	u, err := ParseUint32(s)
	if err != nil {
		return 0, err
	}
	n := uint64(u) << shift
	if n > 1<<32 {
		return 0, fmt.Errorf("%q: %w", s, strconv.ErrRange)
	}
	return int(n), nil
}
