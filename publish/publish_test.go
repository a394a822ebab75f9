// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package publish

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type command struct {
	name string
	args []interface{}
}

// fakeConn pipelines like redis.Conn; Do("") replies with err.
type fakeConn struct {
	sent, done []command
	hash       map[string]string
	err        error
	closed     bool
}

func (c *fakeConn) Close() error { c.closed = true; return nil }
func (c *fakeConn) Err() error   { return c.err }
func (c *fakeConn) Flush() error { return nil }

func (c *fakeConn) Receive() (interface{}, error) { return nil, c.err }

func (c *fakeConn) Send(name string, args ...interface{}) error {
	c.sent = append(c.sent, command{name, args})
	return nil
}

func (c *fakeConn) Do(name string, args ...interface{}) (interface{}, error) {
	switch name {
	case "":
		if c.err != nil {
			return nil, c.err
		}
		for _, cmd := range c.sent {
			if cmd.name == "HMSET" {
				for i := 1; i+1 < len(cmd.args); i += 2 {
					c.hash[fmt.Sprint(cmd.args[i])] = fmt.Sprint(cmd.args[i+1])
				}
			}
		}
		c.done = append(c.done, c.sent...)
		c.sent = nil
		return nil, nil
	case "HGETALL":
		var reply []interface{}
		for k, v := range c.hash {
			reply = append(reply, []byte(k), []byte(v))
		}
		return reply, nil
	}
	return nil, fmt.Errorf("unexpected %s", name)
}

func TestPublish(t *testing.T) {
	c := &fakeConn{hash: make(map[string]string)}
	p := New(c, "xpdma", "xpdma.status")
	require.NoError(t, p.Publish(map[string]interface{}{
		"transfer.bytes": 4096,
		"engine.idle":    true,
	}))
	require.Len(t, c.done, 3)
	assert.Equal(t, command{"HMSET", []interface{}{
		"xpdma", "engine.idle", true, "transfer.bytes", 4096,
	}}, c.done[0])
	assert.Equal(t, command{"PUBLISH", []interface{}{
		"xpdma.status", "xpdma.engine.idle: true",
	}}, c.done[1])
	assert.Equal(t, command{"PUBLISH", []interface{}{
		"xpdma.status", "xpdma.transfer.bytes: 4096",
	}}, c.done[2])

	m, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"engine.idle":    "true",
		"transfer.bytes": "4096",
	}, m)

	require.NoError(t, p.Publish(nil))
	assert.Len(t, c.done, 3)

	require.NoError(t, p.Close())
	assert.True(t, c.closed)
}

func TestPublishError(t *testing.T) {
	c := &fakeConn{hash: make(map[string]string), err: errors.New("broken pipe")}
	p := New(c, "xpdma", "xpdma")
	err := p.Publish(map[string]interface{}{"engine.idle": false})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}
