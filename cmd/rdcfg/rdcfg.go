// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package rdcfg

import (
	"fmt"
	"io"

	"github.com/platinasystems/xpdma/cmd"
	"github.com/platinasystems/xpdma/lang"
)

type Command struct {
	Stdout io.Writer
}

func (Command) String() string { return "rdcfg" }

func (Command) Usage() string {
	return `
	rdcfg [OPTION]... OFFSET...`
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "read 32-bit PCI config registers",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Print each 32-bit PCI configuration register at OFFSET.

OPTIONS` + cmd.Options,
	}
}

func (c Command) Main(args ...string) (err error) {
	s, args, err := cmd.Open(args)
	if err != nil {
		return err
	}
	defer func() {
		if t := s.Close(); err == nil {
			err = t
		}
	}()
	if len(args) == 0 {
		return fmt.Errorf("OFFSET: missing")
	}
	w := cmd.Writer(c.Stdout)
	for _, arg := range args {
		o, err := cmd.ParseUint32(arg)
		if err != nil {
			return err
		}
		v, err := s.ReadConfig(int(o))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "0x%03x: 0x%08x\n", o, v)
	}
	return nil
}
