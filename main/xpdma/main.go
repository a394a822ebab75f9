// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Xpdma copies files to and from the DDR3 of an XAPP1171 PCIe endpoint,
// e.g.
//
//	xpdma send 0 image.bin
//	xpdma recv 0 4M copy.bin
//	xpdma info -sim
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/platinasystems/xpdma/cmd"
	"github.com/platinasystems/xpdma/cmd/info"
	"github.com/platinasystems/xpdma/cmd/rdcfg"
	"github.com/platinasystems/xpdma/cmd/rdreg"
	"github.com/platinasystems/xpdma/cmd/recv"
	"github.com/platinasystems/xpdma/cmd/reset"
	"github.com/platinasystems/xpdma/cmd/send"
	"github.com/platinasystems/xpdma/cmd/wrcfg"
	"github.com/platinasystems/xpdma/cmd/wrreg"
)

func commands(stdin io.Reader, stdout io.Writer) cmd.ByName {
	return cmd.New(
		info.Command{Stdout: stdout},
		rdcfg.Command{Stdout: stdout},
		rdreg.Command{Stdout: stdout},
		recv.Command{Stdout: stdout},
		reset.Command{Stdout: stdout},
		send.Command{Stdin: stdin, Stdout: stdout},
		wrcfg.Command{},
		wrreg.Command{},
	)
}

func main() {
	if err := commands(os.Stdin, os.Stdout).Main(os.Args[1:]...); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(os.Args[0]), err)
		os.Exit(1)
	}
}
