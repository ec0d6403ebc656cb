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

package hub

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/bpijls/grouploop/internal/metrics"
)

// All device and client traffic flows through the hub. Transports register
// peers and feed inbound messages in; the hub owns classification, the device
// registry, the subscription map, and fan-out.
//
// Every mutation of shared state happens under one mutex, including the
// fan-out-and-prune pair. FrameWriter implementations must therefore never
// block in WriteFrame; delivery happens on the transport's writer goroutine.

// Hub routes frames between devices and their subscribed clients.
type Hub struct {
	m *metrics.Metrics

	mu          sync.Mutex
	peers       map[*Peer]struct{}
	devices     map[string]*Peer
	subscribers map[string]map[*Peer]struct{}
}

// DeviceEntry is one registry row, as exposed over the REST API.
type DeviceEntry struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

// NewHub creates a new Hub. m may be nil; the hub then runs unmetered.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		m:           m,
		peers:       make(map[*Peer]struct{}),
		devices:     make(map[string]*Peer),
		subscribers: make(map[string]map[*Peer]struct{}),
	}
}

// Register adds a freshly accepted peer and sends the identification prompt
// that solicits a device ID from firmware booting into this server.
func (h *Hub) Register(p *Peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()

	slog.Info("CONNECT", "addr", p.addr)
	_ = p.w.WriteFrame("I\n")
	h.updateGauges()
}

// Unregister runs a peer's cleanup exactly once. Safe to call for peers that
// were already removed; individual map mutations never fail.
func (h *Hub) Unregister(p *Peer) {
	h.mu.Lock()
	if _, ok := h.peers[p]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.peers, p)
	role := p.role

	switch role {
	case RoleClient:
		for id, set := range h.subscribers {
			delete(set, p)
			if len(set) == 0 {
				delete(h.subscribers, id)
			}
		}
	case RoleDevice:
		// Iterate by value: a device owns at most one ID, but removing by
		// value holds even if that ever stops being true.
		for id, owner := range h.devices {
			if owner == p {
				delete(h.devices, id)
			}
		}
	case RoleUnknown:
	}
	h.mu.Unlock()

	if role == RoleDevice {
		slog.Info("DEVICE_DISCONNECT", "addr", p.addr, "device", p.deviceID)
	} else {
		slog.Info("DISCONNECT", "addr", p.addr, "role", role.String())
	}
	h.updateGauges()
}

// HandleMessage dispatches every frame contained in one inbound text message.
func (h *Hub) HandleMessage(p *Peer, message string) {
	for _, frame := range SplitFrames(message) {
		h.mu.Lock()
		h.dispatch(p, frame)
		h.mu.Unlock()
	}
}

// dispatch classifies unclassified peers and routes the frame to the role
// handler. Caller holds h.mu.
func (h *Hub) dispatch(p *Peer, frame string) {
	switch p.role {
	case RoleUnknown:
		switch {
		case IsDeviceID(frame):
			p.role = RoleDevice
			h.claimDevice(p, CanonicalID(frame))
		case isASCIILetter(frame[0]):
			p.role = RoleClient
			h.handleClientFrame(p, frame)
		default:
			// not classifiable, discard
		}
	case RoleDevice:
		h.handleDeviceFrame(p, frame)
	case RoleClient:
		h.handleClientFrame(p, frame)
	}
}

// claimDevice installs p as the owner of id, evicting and re-prompting any
// previous owner. A device re-claiming under a new ID drops its old entry.
// Caller holds h.mu.
func (h *Hub) claimDevice(p *Peer, id string) {
	prev, taken := h.devices[id]
	if taken && prev == p {
		return
	}
	if taken {
		_ = prev.w.WriteFrame("I\n")
		slog.Debug("device evicted", "device", id, "addr", prev.addr)
	}
	for owned, owner := range h.devices {
		if owner == p {
			delete(h.devices, owned)
		}
	}
	h.devices[id] = p
	p.deviceID = id
	slog.Info("device registered", "device", id, "addr", p.addr)
	if h.m != nil {
		h.m.DevicesRegistered.Set(float64(len(h.devices)))
	}
}

// Devices returns the registered device IDs in ascending lexicographic order.
func (h *Hub) Devices() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.devices))
	for id := range h.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeviceEntries returns the registry with remote-address labels.
func (h *Hub) DeviceEntries() []DeviceEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := make([]DeviceEntry, 0, len(h.devices))
	for id, p := range h.devices {
		entries = append(entries, DeviceEntry{ID: id, Addr: p.addr})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// SubscriberCount returns the number of clients subscribed to a device ID.
func (h *Hub) SubscriberCount(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[CanonicalID(id)])
}

// PeerCount returns the number of live peers of any role.
func (h *Hub) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// RoleOf returns a peer's current role.
func (h *Hub) RoleOf(p *Peer) Role {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; !ok {
		return RoleUnknown
	}
	return p.role
}

// Stop closes every live peer's transport. Each receive loop observes the
// close and runs its cleanup path through Unregister.
func (h *Hub) Stop() {
	h.mu.Lock()
	peers := make([]*Peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		_ = p.w.Close()
	}
}

func (h *Hub) updateGauges() {
	if h.m == nil {
		return
	}
	h.mu.Lock()
	var devices, clients, unknown int
	for p := range h.peers {
		switch p.role {
		case RoleDevice:
			devices++
		case RoleClient:
			clients++
		default:
			unknown++
		}
	}
	subs := 0
	for _, set := range h.subscribers {
		subs += len(set)
	}
	registered := len(h.devices)
	h.mu.Unlock()

	h.m.PeersConnected.WithLabelValues("device").Set(float64(devices))
	h.m.PeersConnected.WithLabelValues("client").Set(float64(clients))
	h.m.PeersConnected.WithLabelValues("unknown").Set(float64(unknown))
	h.m.DevicesRegistered.Set(float64(registered))
	h.m.Subscriptions.Set(float64(subs))
}
