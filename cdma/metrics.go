// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cdma

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	transfers *prometheus.CounterVec
	bytes     *prometheus.CounterVec
	blocks    *prometheus.CounterVec
	polls     prometheus.Histogram
	resets    *prometheus.CounterVec
	busy      prometheus.Counter
}

func newMetrics() *metrics {
	const ns, sub = "xpdma", "cdma"
	return &metrics{
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "transfers_total",
			Help:      "Transfers by direction and result class.",
		}, []string{"direction", "result"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "bytes_total",
			Help:      "Bytes moved by completed staging blocks.",
		}, []string{"direction"}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "blocks_total",
			Help:      "Staging blocks run through the engine.",
		}, []string{"direction"}),
		polls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "poll_iterations",
			Help:      "Tail descriptor polls until completion.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
		}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "resets_total",
			Help:      "Engine resets by result class.",
		}, []string{"result"}),
		busy: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "busy_total",
			Help:      "Blocks found the engine not idle.",
		}),
	}
}

func (m *metrics) register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.transfers,
		m.bytes,
		m.blocks,
		m.polls,
		m.resets,
		m.busy,
	} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
