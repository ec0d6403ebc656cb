// SPDX-License-Identifier: AGPL-3.0-or-later
// GroupLoop - Run a GroupLoop sensor network in a single binary
// Copyright (C) 2024-2026 Bas Pijls
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/bpijls/grouploop>

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	// Hub metrics
	PeersConnected    *prometheus.GaugeVec
	DevicesRegistered prometheus.Gauge
	Subscriptions     prometheus.Gauge
	FramesRouted      *prometheus.CounterVec
	FanoutSends       prometheus.Counter
	FanoutFailures    prometheus.Counter
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		PeersConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hub_peers_connected",
			Help: "The current number of connected peers by role",
		}, []string{"role"}),
		DevicesRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_devices_registered",
			Help: "The current number of device IDs in the registry",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_subscriptions",
			Help: "The current number of client subscriptions across all devices",
		}),
		FramesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_frames_routed_total",
			Help: "The total number of protocol frames routed by kind",
		}, []string{"kind"}),
		FanoutSends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_fanout_sends_total",
			Help: "The total number of sensor frames delivered to subscribers",
		}),
		FanoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_fanout_failures_total",
			Help: "The total number of fan-out sends that marked a subscriber stale",
		}),
	}
	metrics.register()
	return metrics
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.PeersConnected)
	prometheus.MustRegister(m.DevicesRegistered)
	prometheus.MustRegister(m.Subscriptions)
	prometheus.MustRegister(m.FramesRouted)
	prometheus.MustRegister(m.FanoutSends)
	prometheus.MustRegister(m.FanoutFailures)
}
