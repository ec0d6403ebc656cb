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

package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bpijls/grouploop/client"
	"github.com/bpijls/grouploop/internal/config"
	"github.com/bpijls/grouploop/internal/http/websocket"
	"github.com/bpijls/grouploop/internal/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*hub.Hub, string) {
	t.Helper()
	h := hub.NewHub(nil)
	cfg := &config.Config{HTTP: config.HTTP{CORSHosts: []string{"*"}}}
	handler := websocket.CreateHandler(cfg, h)
	srv := httptest.NewServer(http.HandlerFunc(handler.Serve))
	t.Cleanup(func() {
		h.Stop()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextFrame(t *testing.T, c *client.Client) string {
	t.Helper()
	select {
	case frame, ok := <-c.Frames():
		require.True(t, ok, "session ended before a frame arrived")
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return ""
	}
}

func TestDeviceSession(t *testing.T) {
	t.Parallel()
	h, url := newTestHub(t)

	device, err := client.Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = device.Close()
	})

	// The hub prompts for identification on connect.
	require.Equal(t, "I", nextFrame(t, device))
	require.NoError(t, device.Identify("a1b2"))

	require.Eventually(t, func() bool {
		return len(h.Devices()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"A1B2"}, h.Devices())
}

func TestControlSession(t *testing.T) {
	t.Parallel()
	h, url := newTestHub(t)

	device, err := client.Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = device.Close()
	})
	require.Equal(t, "I", nextFrame(t, device))
	require.NoError(t, device.Identify("A1B2"))
	require.Eventually(t, func() bool {
		return len(h.Devices()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	control, err := client.Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = control.Close()
	})
	require.Equal(t, "I", nextFrame(t, control))

	require.NoError(t, control.List())
	assert.Equal(t, "A1B2", nextFrame(t, control))

	// Subscribe, then emit a sensor frame from the device side.
	require.NoError(t, control.Stream("a1b2", 0x05))
	require.Equal(t, "RA1B205", nextFrame(t, device))

	require.NoError(t, device.Sensor("A1B2", 0x01, 0x02, 0x03, 0x0A0B0C0D))
	assert.Equal(t, "A1B20102030A0B0C0D", nextFrame(t, control))
}

func TestSensorFrameFormat(t *testing.T) {
	t.Parallel()
	h, url := newTestHub(t)

	device, err := client.Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = device.Close()
	})
	require.Equal(t, "I", nextFrame(t, device))

	control, err := client.Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = control.Close()
	})
	require.Equal(t, "I", nextFrame(t, control))
	require.NoError(t, control.Stream("a1b2", 0x01))
	require.Eventually(t, func() bool {
		return h.SubscriberCount("A1B2") == 1
	}, 2*time.Second, 5*time.Millisecond)

	// The frame helper renders id(4) aX(2) aY(2) aZ(2) rssi(8) upper-hex.
	require.NoError(t, device.Identify("a1b2"))
	require.NoError(t, device.Sensor("a1b2", 0xFF, 0x00, 0x7F, 0xDEADBEEF))
	assert.Equal(t, "A1B2FF007FDEADBEEF", nextFrame(t, control))
}
