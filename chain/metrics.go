// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type chainMetrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	seq          prometheus.Gauge
	blockTime    prometheus.Gauge
	halted       prometheus.Gauge
}

func (m *chainMetrics) init(promRegistry prometheus.Registerer, queueLen func() float64) {
	promautoFactory := promauto.With(promRegistry)
	m.callsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_calls_total",
			Help: "total calls executed by the chain",
		},
		[]string{"ledger", "operation", "status"},
	)
	m.callDuration = promautoFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_call_duration_seconds",
			Help:    "time taken to execute and commit a call",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"ledger", "operation"},
	)
	m.seq = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "chain_seq",
		Help: "sequence number of the last journaled call",
	})
	m.blockTime = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "chain_block_timestamp_seconds",
		Help: "block timestamp of the last journaled call",
	})
	m.halted = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "chain_halted",
		Help: "1 once a partial commit has halted the chain",
	})
	promautoFactory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "chain_queue_length",
			Help: "calls waiting to execute",
		},
		queueLen,
	)
}
