// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package info

import (
	"fmt"
	"io"

	"github.com/platinasystems/flags"

	"github.com/platinasystems/xpdma/cmd"
	"github.com/platinasystems/xpdma/lang"
)

type Command struct {
	Stdout io.Writer
}

func (Command) String() string { return "info" }

func (Command) Usage() string {
	return `
	info [-c] [OPTION]...`
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "print device and engine state",
		lang.FrFR: "imprimer l'état du périphérique",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Print the device identity, engine configuration, its registers
	and the head of the descriptor chain.

OPTIONS
	-c		also print the effective configuration` + cmd.Options,
	}
}

func (c Command) Main(args ...string) (err error) {
	flag, args := flags.New(args, "-c")
	s, args, err := cmd.Open(args)
	if err != nil {
		return err
	}
	defer func() {
		if t := s.Close(); err == nil {
			err = t
		}
	}()
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}
	w := cmd.Writer(c.Stdout)
	if err = s.Info(w); err != nil {
		return err
	}
	if flag.ByName["-c"] {
		fmt.Fprint(w, "CONFIG:\n", s.Config())
	}
	return nil
}
