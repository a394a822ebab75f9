// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package cmd dispatches xpdma commands and opens the device they share.
package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"

	"github.com/platinasystems/xpdma"
	"github.com/platinasystems/xpdma/config"
	"github.com/platinasystems/xpdma/lang"
)

var Helpers = map[string]struct{}{
	"apropos": struct{}{},
	"help":    struct{}{},
	"man":     struct{}{},
	"usage":   struct{}{},
}

// Stdout receives helper text.
var Stdout io.Writer = os.Stdout

// Writer returns w, or os.Stdout if nil.
func Writer(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// Swap hyphen prefaced helper flags with command, so,
//
//	COMMAND -[-]HELPER [ARGS]...
//
// becomes
//
//	HELPER COMMAND [ARGS]...
//
// and
//
//	-[-]HELPER [ARGS]...
//
// becomes
//
//	HELPER [ARGS]...
func Swap(args []string) {
	helper := func(arg string) (string, bool) {
		opt := strings.TrimLeft(arg, "-")
		if opt == "h" {
			opt = "help"
		}
		_, found := Helpers[opt]
		return opt, found
	}
	n := len(args)
	if n > 0 && strings.HasPrefix(args[0], "-") {
		if opt, found := helper(args[0]); found {
			args[0] = opt
		}
	} else if n > 1 && strings.HasPrefix(args[1], "-") {
		if opt, found := helper(args[1]); found {
			args[1] = args[0]
			args[0] = opt
		}
	}
}

type Cmd interface {
	Apropos() lang.Alt
	Main(...string) error
	// String returns the command name.
	String() string
	Usage() string
	/* Optional
	Man() lang.Alt
	*/
}

type manner interface {
	Man() lang.Alt
}

type ByName map[string]Cmd

func New(cmds ...Cmd) ByName {
	byName := make(ByName)
	for _, c := range cmds {
		byName[c.String()] = c
	}
	return byName
}

func (byName ByName) Keys() []string {
	keys := make([]string, 0, len(byName))
	for k := range byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Main runs the args[0] command. The helpers print text of the command
// that follows them, or of every command without one.
func (byName ByName) Main(args ...string) error {
	if len(args) == 0 {
		args = []string{"help"}
	}
	Swap(args)
	name := args[0]
	args = args[1:]
	if _, found := Helpers[name]; found {
		return byName.help(name, args...)
	}
	c, found := byName[name]
	if !found {
		return fmt.Errorf("%s: command not found", name)
	}
	return c.Main(args...)
}

func (byName ByName) help(helper string, args ...string) error {
	if len(args) == 0 {
		for _, k := range byName.Keys() {
			c := byName[k]
			switch helper {
			case "usage":
				fmt.Fprint(Stdout, "usage:", c.Usage(), "\n")
			default:
				fmt.Fprintf(Stdout, "%-8s %s\n", k, c.Apropos())
			}
		}
		return nil
	}
	c, found := byName[args[0]]
	if !found {
		return fmt.Errorf("%s: command not found", args[0])
	}
	switch helper {
	case "apropos":
		fmt.Fprintln(Stdout, c.Apropos())
	case "man":
		fmt.Fprintf(Stdout, "NAME\n\t%s - %s\n\nSYNOPSIS%s\n", c, c.Apropos(),
			c.Usage())
		if m, ok := c.(manner); ok {
			fmt.Fprintln(Stdout, m.Man())
		}
	default:
		fmt.Fprint(Stdout, "usage:", c.Usage(), "\n")
	}
	return nil
}

// Session is a device opened with options common to all commands.
type Session struct {
	*xpdma.Device
	metrics string
}

// Options shared by every command that opens the device.
const Options = `
	-sim		use the simulator instead of the PCIe endpoint
	-config FILE	yaml configuration
	-metrics FILE	write prometheus metrics here on exit
	-redis ADDR	publish device status to this redis server`

// Open parses the common options from args then opens the device. The
// returned args are those left over.
func Open(args []string) (*Session, []string, error) {
	flag, args := flags.New(args, "-sim")
	parm, args := parms.New(args, "-config", "-metrics", "-redis")
	for _, arg := range args {
		if len(arg) > 1 && arg[0] == '-' {
			return nil, nil, fmt.Errorf("%s: unknown option", arg)
		}
	}
	cfg := config.Default()
	if fn := parm.ByName["-config"]; len(fn) > 0 {
		var err error
		if cfg, err = config.Load(fn); err != nil {
			return nil, nil, err
		}
	}
	if flag.ByName["-sim"] {
		cfg.Sim.Enable = true
	}
	if s := parm.ByName["-metrics"]; len(s) > 0 {
		cfg.Metrics = s
	}
	if s := parm.ByName["-redis"]; len(s) > 0 {
		cfg.Redis.Addr = s
	}
	d, err := xpdma.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return &Session{d, cfg.Metrics}, args, nil
}

func (s *Session) Close() error {
	var err error
	if len(s.metrics) > 0 {
		if err = s.WriteMetrics(s.metrics); err != nil {
			log.Print("daemon", "warning", s.metrics, ": ", err)
		}
	}
	if t := s.Device.Close(); err == nil {
		err = t
	}
	return err
}
