// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package send

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/platinasystems/flags"

	"github.com/platinasystems/xpdma/cmd"
	"github.com/platinasystems/xpdma/lang"
)

type Command struct {
	// Stdin is read for "-", default os.Stdin.
	Stdin  io.Reader
	Stdout io.Writer
}

func (Command) String() string { return "send" }

func (Command) Usage() string {
	return `
	send [-v] [OPTION]... ADDR FILE|-`
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "copy a file to device memory",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Copy FILE, or standard input with "-", to the endpoint's DDR3
	beginning at ADDR.

OPTIONS
	-v		verbose` + cmd.Options,
	}
}

func (c Command) Main(args ...string) (err error) {
	flag, args := flags.New(args, "-v")
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
		return fmt.Errorf("ADDR FILE: missing")
	case 1:
		return fmt.Errorf("FILE: missing")
	case 2:
	default:
		return fmt.Errorf("%v: unexpected", args[2:])
	}
	addr, err := cmd.ParseUint32(args[0])
	if err != nil {
		return err
	}
	var data []byte
	if args[1] == "-" {
		in := c.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(args[1])
	}
	if err != nil {
		return err
	}
	if err = s.Send(context.Background(), data, addr); err != nil {
		return err
	}
	if flag.ByName["-v"] {
		fmt.Fprintf(cmd.Writer(c.Stdout), "sent %d bytes to 0x%08x\n",
			len(data), addr)
	}
	return nil
}
