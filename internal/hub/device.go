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

// handleDeviceFrame processes a frame from a classified device: either a
// 4-hex re-identification or an 18-hex sensor frame fanned out to the
// device's subscribers. Everything else drops. Caller holds h.mu.
func (h *Hub) handleDeviceFrame(p *Peer, frame string) {
	switch {
	case IsDeviceID(frame):
		h.claimDevice(p, CanonicalID(frame))
	case IsSensorFrame(frame):
		if h.m != nil {
			h.m.FramesRouted.WithLabelValues("sensor").Inc()
		}
		h.fanOut(frame)
	default:
		// not a protocol frame, drop
	}
}

// fanOut delivers one sensor frame to every subscriber of its device ID.
// Only the leading 4 hex characters are decoded for routing. Subscribers
// whose send fails are stale and are removed after the fan-out completes;
// the pair runs atomically under h.mu so no mutation interleaves between
// delivery and pruning. Caller holds h.mu.
func (h *Hub) fanOut(frame string) {
	id := CanonicalID(frame[:deviceIDLen])
	set, ok := h.subscribers[id]
	if !ok {
		return
	}

	var stale []*Peer
	for sub := range set {
		if err := sub.w.WriteFrame(frame + "\n"); err != nil {
			stale = append(stale, sub)
			if h.m != nil {
				h.m.FanoutFailures.Inc()
			}
		} else if h.m != nil {
			h.m.FanoutSends.Inc()
		}
	}

	for _, sub := range stale {
		delete(set, sub)
	}
	if len(set) == 0 {
		delete(h.subscribers, id)
	}
}
