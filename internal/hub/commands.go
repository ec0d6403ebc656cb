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
	"sort"
	"strings"
)

// Client command frames: one command letter followed by fixed-width fields.
//
//	L           list registered device IDs
//	I           re-prompt every registered device to identify
//	C<ID>...    forward configuration to device <ID>
//	M<ID>...    forward message to device <ID>
//	R<ID>       one-shot sample request
//	R<ID><FF>   streaming request; FF=00 unsubscribes, anything else subscribes
//
// Malformed or unknown frames are dropped without a reply. Unknown targets
// stay silent too, so both sides can reconnect without reconciling state.

const (
	requestLen       = 1 + deviceIDLen     // R<ID>
	streamRequestLen = 1 + deviceIDLen + 2 // R<ID><FF>
)

// handleClientFrame interprets one client command frame. Caller holds h.mu.
func (h *Hub) handleClientFrame(p *Peer, frame string) {
	if h.m != nil {
		h.m.FramesRouted.WithLabelValues("client").Inc()
	}
	switch frame[0] {
	case 'L':
		if len(frame) == 1 {
			h.sendDeviceList(p)
		}
	case 'I':
		if len(frame) == 1 {
			h.identifyDevices()
		}
	case 'C', 'M':
		h.forwardToDevice(frame)
	case 'R':
		h.handleRequest(p, frame)
	default:
		// unknown command letter, drop
	}
}

// sendDeviceList replies with the registry's IDs, one per line, terminated by
// a final newline. An empty registry yields a single newline.
func (h *Hub) sendDeviceList(p *Peer) {
	ids := make([]string, 0, len(h.devices))
	for id := range h.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	_ = p.w.WriteFrame(strings.Join(ids, "\n") + "\n")
}

// identifyDevices prompts every registered device. Send errors do not evict;
// a broken device is removed by its own receive loop closing.
func (h *Hub) identifyDevices() {
	for _, d := range h.devices {
		_ = d.w.WriteFrame("I\n")
	}
}

// forwardToDevice relays a complete C/M/R frame to the device addressed by
// the 4-hex field after the command letter. Unknown targets drop silently.
func (h *Hub) forwardToDevice(frame string) {
	if len(frame) < 1+deviceIDLen {
		return
	}
	id := frame[1 : 1+deviceIDLen]
	if !isHex(id) {
		return
	}
	d, ok := h.devices[CanonicalID(id)]
	if !ok {
		return
	}
	if err := d.w.WriteFrame(frame + "\n"); err == nil && h.m != nil {
		h.m.FramesRouted.WithLabelValues("forward").Inc()
	}
}

// handleRequest processes R frames. Length 5 is a one-shot sample request;
// length 7 also toggles the issuing client's subscription by the FF field.
// Any other length, or a non-hex FF, is dropped.
func (h *Hub) handleRequest(p *Peer, frame string) {
	switch len(frame) {
	case requestLen:
		h.forwardToDevice(frame)
	case streamRequestLen:
		id := frame[1 : 1+deviceIDLen]
		ff := frame[1+deviceIDLen:]
		if !isHex(id) || !isHex(ff) {
			return
		}
		h.forwardToDevice(frame)
		h.setSubscription(p, CanonicalID(id), ff != "00")
	default:
	}
}

// setSubscription adds or removes p in a device's subscriber set. Adding is
// idempotent; removing an absent client is a no-op. Empty sets are pruned.
// The set is keyed by device ID, not device liveness: a client may subscribe
// before its device reconnects. Caller holds h.mu.
func (h *Hub) setSubscription(p *Peer, id string, subscribe bool) {
	set, ok := h.subscribers[id]
	if subscribe {
		if !ok {
			set = make(map[*Peer]struct{})
			h.subscribers[id] = set
		}
		set[p] = struct{}{}
	} else if ok {
		delete(set, p)
		if len(set) == 0 {
			delete(h.subscribers, id)
		}
	}
	if h.m != nil {
		subs := 0
		for _, s := range h.subscribers {
			subs += len(s)
		}
		h.m.Subscriptions.Set(float64(subs))
	}
}
