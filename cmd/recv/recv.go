// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package recv

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/platinasystems/flags"

	"github.com/platinasystems/xpdma/cmd"
	"github.com/platinasystems/xpdma/lang"
)

type Command struct {
	Stdout io.Writer
}

func (Command) String() string { return "recv" }

func (Command) Usage() string {
	return `
	recv [-x] [OPTION]... ADDR COUNT [FILE]`
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "copy device memory to a file",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Copy COUNT bytes of the endpoint's DDR3 beginning at ADDR to FILE,
	or standard output. COUNT may have a K, M or G suffix. Output to a
	terminal is a hex dump.

OPTIONS
	-x		hex dump regardless of output` + cmd.Options,
	}
}

func (c Command) Main(args ...string) (err error) {
	flag, args := flags.New(args, "-x")
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
		return fmt.Errorf("ADDR COUNT: missing")
	case 1:
		return fmt.Errorf("COUNT: missing")
	case 2, 3:
	default:
		return fmt.Errorf("%v: unexpected", args[3:])
	}
	addr, err := cmd.ParseUint32(args[0])
	if err != nil {
		return err
	}
	n, err := cmd.ParseCount(args[1])
	if err != nil {
		return err
	}
	data := make([]byte, n)
	if err = s.Recv(context.Background(), data, addr); err != nil {
		return err
	}
	dump := flag.ByName["-x"]
	if len(args) == 3 && args[2] != "-" {
		if dump {
			data = []byte(hex.Dump(data))
		}
		return os.WriteFile(args[2], data, 0644)
	}
	w := cmd.Writer(c.Stdout)
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		dump = true
	}
	if dump {
		d := hex.Dumper(w)
		defer d.Close()
		_, err = d.Write(data)
		return err
	}
	_, err = w.Write(data)
	return err
}
