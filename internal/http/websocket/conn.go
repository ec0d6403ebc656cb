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

package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/bpijls/grouploop/internal/hub"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// Wire keepalive: ping every 20 s, allow a further 20 s for the pong.
	pingPeriod     = 20 * time.Second
	pongWait       = pingPeriod + 20*time.Second
	maxMessageSize = 4096
	sendQueueSize  = 256
)

var (
	// ErrPeerGone is returned for writes to a closed peer.
	ErrPeerGone = errors.New("peer connection closed")
	// ErrSendQueueFull is returned when a peer stops draining its queue.
	ErrSendQueueFull = errors.New("peer send queue full")
)

// conn adapts a gorilla connection to hub.FrameWriter. Frames are queued and
// written by a single writer goroutine; WriteFrame never blocks, so the hub
// may call it while holding its lock. A full queue counts as a failed send.
type conn struct {
	ws   *websocket.Conn
	send chan string

	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:   ws,
		send: make(chan string, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (c *conn) WriteFrame(frame string) error {
	select {
	case <-c.done:
		return ErrPeerGone
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close tears the transport down and unblocks both pumps. Safe to call more
// than once.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
	return nil
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump feeds inbound text messages to the hub until the transport dies.
// Binary messages are ignored.
func (c *conn) readPump(h *hub.Hub, peer *hub.Peer) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		t, msg, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if t != websocket.TextMessage {
			continue
		}
		h.HandleMessage(peer, string(msg))
	}
}
