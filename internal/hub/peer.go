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

// Role classifies a connected peer. A peer starts as RoleUnknown and is
// classified by its first valid frame; it never moves between RoleDevice
// and RoleClient within one session.
type Role int

const (
	// RoleUnknown is a peer that has not sent a classifiable frame yet.
	RoleUnknown Role = iota
	// RoleDevice is a sensor endpoint identified by a 4-hex-character ID.
	RoleDevice
	// RoleClient is a control/visualization peer issuing command letters.
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleDevice:
		return "device"
	case RoleClient:
		return "client"
	default:
		return "unknown"
	}
}

// FrameWriter is the outbound half of a peer session. WriteFrame delivers a
// single newline-terminated frame without blocking the caller; it returns an
// error when the peer can no longer accept frames. Close tears the transport
// down and unblocks the peer's receive loop.
type FrameWriter interface {
	WriteFrame(frame string) error
	Close() error
}

// Peer is one connected session. All fields besides the transport handle are
// guarded by the hub mutex.
type Peer struct {
	w    FrameWriter
	addr string

	role     Role
	deviceID string // canonical upper-hex, set only while role == RoleDevice
}

// NewPeer wraps a transport in an unclassified peer. addr is the remote
// host:port, used as the peer's label in logs and listings.
func NewPeer(w FrameWriter, addr string) *Peer {
	return &Peer{
		w:    w,
		addr: addr,
	}
}

// Addr returns the peer's remote-address label.
func (p *Peer) Addr() string {
	return p.addr
}
