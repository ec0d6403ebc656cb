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
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSplitFrames(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{"single frame", "A1B2\n", []string{"A1B2"}},
		{"no trailing newline", "A1B2", []string{"A1B2"}},
		{"two frames one message", "A1B2\nA1B200112233445566778899\n", []string{"A1B2", "A1B200112233445566778899"}},
		{"carriage returns stripped", "A1B2\r\nL\r\n", []string{"A1B2", "L"}},
		{"empty frames dropped", "\n\nL\n\n", []string{"L"}},
		{"empty message", "", nil},
		{"only newlines", "\n\n\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := hub.SplitFrames(tt.message)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitFrames mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsDeviceID(t *testing.T) {
	t.Parallel()
	assert.True(t, hub.IsDeviceID("A1B2"))
	assert.True(t, hub.IsDeviceID("a1b2"))
	assert.True(t, hub.IsDeviceID("0000"))
	assert.True(t, hub.IsDeviceID("ffff"))
	assert.False(t, hub.IsDeviceID("A1B"))
	assert.False(t, hub.IsDeviceID("A1B2C"))
	assert.False(t, hub.IsDeviceID("G1B2"))
	assert.False(t, hub.IsDeviceID(""))
}

func TestIsSensorFrame(t *testing.T) {
	t.Parallel()
	assert.True(t, hub.IsSensorFrame("A1B20102030A0B0C0D"))
	assert.True(t, hub.IsSensorFrame("a1b20102030a0b0c0d"))
	assert.False(t, hub.IsSensorFrame("A1B2"))
	assert.False(t, hub.IsSensorFrame("A1B20102030A0B0C0"))
	assert.False(t, hub.IsSensorFrame("A1B20102030A0B0C0D0E"))
	assert.False(t, hub.IsSensorFrame("Z1B20102030A0B0C0D"))
}

func TestCanonicalID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "A1B2", hub.CanonicalID("a1b2"))
	assert.Equal(t, "A1B2", hub.CanonicalID("A1B2"))
	assert.Equal(t, "FFFF", hub.CanonicalID("ffff"))
}
