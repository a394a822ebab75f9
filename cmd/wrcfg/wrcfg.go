// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package wrcfg

import (
	"fmt"

	"github.com/platinasystems/xpdma/cmd"
	"github.com/platinasystems/xpdma/lang"
)

type Command struct{}

func (Command) String() string { return "wrcfg" }

func (Command) Usage() string {
	return `
	wrcfg [OPTION]... OFFSET VALUE`
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "write a 32-bit PCI config register",
	}
}

func (Command) Main(args ...string) (err error) {
	s, args, err := cmd.Open(args)
	if err != nil {
		return err
	}
	defer func() {
		if t := s.Close(); err == nil {
			err = t
		}
	}()
	switch len(args) {
	case 0:
		return fmt.Errorf("OFFSET VALUE: missing")
	case 1:
		return fmt.Errorf("VALUE: missing")
	case 2:
	default:
		return fmt.Errorf("%v: unexpected", args[2:])
	}
	o, err := cmd.ParseUint32(args[0])
	if err != nil {
		return err
	}
	v, err := cmd.ParseUint32(args[1])
	if err != nil {
		return err
	}
	return s.WriteConfig(int(o), v)
}
