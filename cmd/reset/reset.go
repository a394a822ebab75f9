// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package reset

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"

	"github.com/platinasystems/xpdma/cmd"
	"github.com/platinasystems/xpdma/lang"
)

type Command struct {
	Stdout io.Writer
}

func (Command) String() string { return "reset" }

func (Command) Usage() string {
	return `
	reset [-retry N] [OPTION]...`
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "soft reset the CDMA engine",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Soft reset the CDMA engine and report whether it's idle. Opening
	the device also resets it so this is only a second attempt of a
	stuck engine.

OPTIONS
	-retry N	repeat a failed reset up to N times with backoff` +
			cmd.Options,
	}
}

func (c Command) Main(args ...string) (err error) {
	parm, args := parms.New(args, "-retry")
	retries := 0
	if s := parm.ByName["-retry"]; len(s) > 0 {
		if retries, err = strconv.Atoi(s); err != nil || retries < 0 {
			return fmt.Errorf("-retry %s: invalid", s)
		}
	}
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
	b := &backoff.Backoff{
		Min:    10 * time.Millisecond,
		Max:    time.Second,
		Factor: 2,
		Jitter: true,
	}
	err = retry(retries, b.Duration, time.Sleep, func() error {
		return s.Reset(context.Background())
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Writer(c.Stdout), "idle:", s.Engine().IsIdle())
	return nil
}

// retry f up to n more times after its first failure, sleeping for each
// next duration in between.
func retry(n int, next func() time.Duration, sleep func(time.Duration),
	f func() error) error {
	err := f()
	for i := 0; err != nil && i < n; i++ {
		d := next()
		log.Print("daemon", "warning", err, "; retry in ", d)
		sleep(d)
		err = f()
	}
	return err
}
