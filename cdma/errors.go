// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrResetTimeout   = errors.New("reset timeout")
	ErrChainBuild     = errors.New("descriptor chain build error")
	ErrTranslation    = errors.New("translation vector programming error")
	ErrEngineDecode   = errors.New("scatter gather decode error")
	ErrEngineSlave    = errors.New("scatter gather slave error")
	ErrEngineInternal = errors.New("scatter gather internal error")
	ErrEngineTimeout  = errors.New("scatter gather timeout")
	ErrStagingCopy    = errors.New("staging buffer copy failed")
	ErrEngineBusy     = errors.New("engine is not idle")
	ErrInvalid        = errors.New("invalid argument")
)

// Class groups failures by what the caller may do about them.
type Class int

const (
	NoClass Class = iota
	Precondition
	Hardware
	Timeout
)

var classStrings = [...]string{
	NoClass:      "none",
	Precondition: "precondition",
	Hardware:     "hardware",
	Timeout:      "timeout",
}

func (c Class) String() string {
	if int(c) < len(classStrings) {
		return classStrings[c]
	}
	return fmt.Sprint(int(c))
}

// ClassOf returns the class of the first engine error in err's chain.
// Anything unrecognized, context cancellation included, is a Precondition.
func ClassOf(err error) Class {
	switch {
	case err == nil:
		return NoClass
	case errors.Is(err, ErrEngineDecode),
		errors.Is(err, ErrEngineSlave),
		errors.Is(err, ErrEngineInternal):
		return Hardware
	case errors.Is(err, ErrEngineTimeout),
		errors.Is(err, ErrResetTimeout):
		return Timeout
	}
	return Precondition
}

// Error describes a failed engine operation. Done is the number of bytes of
// the transfer known to have completed; blocks after that are unknown.
type Error struct {
	Op       string
	Dir      Direction
	Block    int
	Offset   uint32
	Done     int
	Err      error
	Snapshot *Snapshot
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("cdma: ")
	sb.WriteString(e.Op)
	if e.Dir != 0 {
		fmt.Fprint(&sb, " ", e.Dir)
	}
	if e.Op == "transfer" {
		fmt.Fprintf(&sb, " block %d at 0x%08x (%d bytes done)",
			e.Block, e.Offset, e.Done)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }
