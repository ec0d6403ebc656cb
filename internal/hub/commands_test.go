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

package hub_test

import (
	"testing"

	"github.com/bpijls/grouploop/internal/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCommand(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)

	for _, id := range []string{"c3d4", "A1B2"} {
		d, _ := newPeer(t, h)
		h.HandleMessage(d, id+"\n")
	}

	c, w := newPeer(t, h)
	h.HandleMessage(c, "L\n")

	// IDs come back sorted ascending, one per line, newline-terminated.
	require.Len(t, w.Frames(), 2)
	assert.Equal(t, "A1B2\nC3D4\n", w.Frames()[1])
}

func TestListCommandEmptyRegistry(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)
	c, w := newPeer(t, h)
	h.HandleMessage(c, "L\n")
	require.Len(t, w.Frames(), 2)
	assert.Equal(t, "\n", w.Frames()[1])
}

func TestIdentifyCommandPromptsEveryDevice(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)

	d1, w1 := newPeer(t, h)
	h.HandleMessage(d1, "A1B2\n")
	d2, w2 := newPeer(t, h)
	h.HandleMessage(d2, "C3D4\n")

	c, _ := newPeer(t, h)
	h.HandleMessage(c, "I\n")

	assert.Equal(t, []string{"I\n", "I\n"}, w1.Frames())
	assert.Equal(t, []string{"I\n", "I\n"}, w2.Frames())
}

func TestIdentifyCommandSendFailureDoesNotEvict(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)

	d, w := newPeer(t, h)
	h.HandleMessage(d, "A1B2\n")
	w.setFail(true)

	c, _ := newPeer(t, h)
	h.HandleMessage(c, "I\n")

	// Eviction is driven by the device's receive loop, never by send errors.
	assert.Equal(t, []string{"A1B2"}, h.Devices())
}

func TestConfigureAndMessageForwarding(t *testing.T) {
	t.Parallel()
	for _, letter := range []string{"C", "M"} {
		t.Run(letter, func(t *testing.T) {
			t.Parallel()
			h := hub.NewHub(nil)

			d, w := newPeer(t, h)
			h.HandleMessage(d, "A1B2\n")

			c, _ := newPeer(t, h)
			frame := letter + "a1b2FF00"
			h.HandleMessage(c, frame+"\n")

			// The complete original frame is forwarded, newline-terminated.
			require.Len(t, w.Frames(), 2)
			assert.Equal(t, frame+"\n", w.Frames()[1])
		})
	}
}

func TestForwardingToUnknownTargetIsSilent(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)
	c, w := newPeer(t, h)
	h.HandleMessage(c, "CFFFF00\n")
	h.HandleMessage(c, "MFFFF00\n")
	h.HandleMessage(c, "RFFFF\n")
	// No error reply of any kind.
	assert.Equal(t, []string{"I\n"}, w.Frames())
}

func TestOneShotRequestForwardsWithoutSubscribing(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)

	d, w := newPeer(t, h)
	h.HandleMessage(d, "A1B2\n")

	c, _ := newPeer(t, h)
	h.HandleMessage(c, "RA1B2\n")

	require.Len(t, w.Frames(), 2)
	assert.Equal(t, "RA1B2\n", w.Frames()[1])
	assert.Zero(t, h.SubscriberCount("A1B2"))
}

func TestStreamRequestSubscribesAndForwards(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)

	d, w := newPeer(t, h)
	h.HandleMessage(d, "A1B2\n")

	c, _ := newPeer(t, h)
	h.HandleMessage(c, "Ra1b205\n")

	require.Len(t, w.Frames(), 2)
	assert.Equal(t, "Ra1b205\n", w.Frames()[1])
	assert.Equal(t, 1, h.SubscriberCount("A1B2"))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)

	d, _ := newPeer(t, h)
	h.HandleMessage(d, "A1B2\n")

	c, _ := newPeer(t, h)
	h.HandleMessage(c, "RA1B205\n")
	h.HandleMessage(c, "RA1B205\n")
	assert.Equal(t, 1, h.SubscriberCount("A1B2"))
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)

	d, _ := newPeer(t, h)
	h.HandleMessage(d, "A1B2\n")

	c, _ := newPeer(t, h)
	h.HandleMessage(c, "RA1B205\n")
	h.HandleMessage(c, "RA1B200\n")
	assert.Zero(t, h.SubscriberCount("A1B2"))

	// A second unsubscribe is a no-op.
	h.HandleMessage(c, "RA1B200\n")
	assert.Zero(t, h.SubscriberCount("A1B2"))
}

func TestSubscribeBeforeDeviceConnects(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)

	c, cw := newPeer(t, h)
	h.HandleMessage(c, "RA1B205\n")
	assert.Equal(t, 1, h.SubscriberCount("A1B2"))

	d, _ := newPeer(t, h)
	h.HandleMessage(d, "A1B2\n")
	h.HandleMessage(d, "A1B20102030A0B0C0D\n")

	assert.Contains(t, cw.Frames(), "A1B20102030A0B0C0D\n")
}

func TestMalformedRequestsAreDropped(t *testing.T) {
	t.Parallel()
	h := hub.NewHub(nil)

	d, w := newPeer(t, h)
	h.HandleMessage(d, "A1B2\n")

	c, _ := newPeer(t, h)
	for _, frame := range []string{
		"RA1B20", "RA1B2055", "RA1B2ZZ", "RZZZZ05", "R", "L0", "I2", "X",
	} {
		h.HandleMessage(c, frame+"\n")
	}

	assert.Equal(t, []string{"I\n"}, w.Frames())
	assert.Zero(t, h.SubscriberCount("A1B2"))
}
