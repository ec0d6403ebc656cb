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

// Package client speaks the GroupLoop wire protocol over a WebSocket. It is
// used by the device emulator and is suitable for writing control clients.
package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	frameBuffer      = 64
)

// Client is one protocol session with a hub. Frames received from the hub
// are delivered on Frames, already split and stripped of newlines.
type Client struct {
	conn *websocket.Conn

	frames chan string
	errs   chan error
	quit   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to a hub WebSocket endpoint (e.g. ws://localhost:5003/ws).
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	c := &Client{
		conn:   conn,
		frames: make(chan string, frameBuffer),
		errs:   make(chan error, 1),
		quit:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// readLoop splits inbound messages into frames. The loop ends on the first
// transport error; Frames is closed so range consumers terminate.
func (c *Client) readLoop() {
	defer close(c.frames)
	for {
		t, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case c.errs <- err:
			default:
			}
			return
		}
		if t != websocket.TextMessage {
			continue
		}
		for _, frame := range strings.Split(strings.ReplaceAll(string(msg), "\r", ""), "\n") {
			if frame == "" {
				continue
			}
			select {
			case c.frames <- frame:
			case <-c.quit:
				return
			}
		}
	}
}

// Frames returns the inbound frame channel. It is closed when the session ends.
func (c *Client) Frames() <-chan string {
	return c.frames
}

// Errs returns the channel carrying the session's terminal error, if any.
func (c *Client) Errs() <-chan error {
	return c.errs
}

// Send transmits one frame, appending the terminating newline.
func (c *Client) Send(frame string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame+"\n")); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

// Identify claims a device ID, classifying this session as a device.
func (c *Client) Identify(id string) error {
	return c.Send(id)
}

// Sensor sends one telemetry frame for the given device ID.
func (c *Client) Sensor(id string, aX, aY, aZ byte, rssi uint32) error {
	return c.Send(fmt.Sprintf("%s%02X%02X%02X%08X", strings.ToUpper(id), aX, aY, aZ, rssi))
}

// List asks the hub for its registered device IDs.
func (c *Client) List() error {
	return c.Send("L")
}

// IdentifyAll asks the hub to re-prompt every registered device.
func (c *Client) IdentifyAll() error {
	return c.Send("I")
}

// Configure forwards a configuration payload to a device.
func (c *Client) Configure(id, payload string) error {
	return c.Send("C" + strings.ToUpper(id) + payload)
}

// Message forwards a message payload to a device.
func (c *Client) Message(id, payload string) error {
	return c.Send("M" + strings.ToUpper(id) + payload)
}

// Request asks a device for a one-shot sample.
func (c *Client) Request(id string) error {
	return c.Send("R" + strings.ToUpper(id))
}

// Stream subscribes this session to a device's telemetry at the given
// frequency. Frequency 0 unsubscribes.
func (c *Client) Stream(id string, freq byte) error {
	return c.Send(fmt.Sprintf("R%s%02X", strings.ToUpper(id), freq))
}

// Close ends the session. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
		_ = c.conn.Close()
	})
	return nil
}
