// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package publish keeps a redis hash of device status fields and announces
// each update on a channel as "KEY.FIELD: VALUE".
package publish

import (
	"fmt"
	"sort"
	"time"

	"github.com/garyburd/redigo/redis"
)

const Timeout = 500 * time.Millisecond

type Publisher struct {
	conn    redis.Conn
	key     string
	channel string
}

// Dial connects to the redis server at the tcp addr.
func Dial(addr, key, channel string) (*Publisher, error) {
	conn, err := redis.Dial("tcp", addr,
		redis.DialConnectTimeout(Timeout),
		redis.DialReadTimeout(Timeout),
		redis.DialWriteTimeout(Timeout))
	if err != nil {
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return New(conn, key, channel), nil
}

func New(conn redis.Conn, key, channel string) *Publisher {
	return &Publisher{conn: conn, key: key, channel: channel}
}

// Publish sets fields in the hash and publishes each in field order. The
// commands are pipelined and sent with one round trip.
func (p *Publisher) Publish(fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	args := redis.Args{}.Add(p.key)
	for _, k := range names {
		args = args.Add(k, fields[k])
	}
	if err := p.conn.Send("HMSET", args...); err != nil {
		return err
	}
	for _, k := range names {
		msg := fmt.Sprint(p.key, ".", k, ": ", fields[k])
		if err := p.conn.Send("PUBLISH", p.channel, msg); err != nil {
			return err
		}
	}
	if _, err := p.conn.Do(""); err != nil {
		return fmt.Errorf("redis %s: %w", p.key, err)
	}
	return nil
}

// Get returns the hash's current fields.
func (p *Publisher) Get() (map[string]string, error) {
	return redis.StringMap(p.conn.Do("HGETALL", p.key))
}

func (p *Publisher) Close() error { return p.conn.Close() }
