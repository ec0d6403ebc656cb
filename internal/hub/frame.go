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

import "strings"

// Wire format: newline-terminated ASCII lines carried in text WebSocket
// messages. A single message may hold several frames. Device IDs are 4 hex
// characters, sensor frames are 18: id(4) aX(2) aY(2) aZ(2) rssi(8).

const (
	deviceIDLen    = 4
	sensorFrameLen = 18
)

// SplitFrames breaks one inbound WebSocket message into frames. Carriage
// returns are stripped before splitting and empty frames are dropped. Each
// message is self-delimiting; no partial frame carries over to the next.
func SplitFrames(message string) []string {
	message = strings.ReplaceAll(message, "\r", "")
	parts := strings.Split(message, "\n")
	frames := parts[:0]
	for _, p := range parts {
		if p != "" {
			frames = append(frames, p)
		}
	}
	return frames
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return len(s) > 0
}

// IsDeviceID reports whether the token is a device identification frame.
func IsDeviceID(token string) bool {
	return len(token) == deviceIDLen && isHex(token)
}

// IsSensorFrame reports whether the token is a sensor telemetry frame.
func IsSensorFrame(token string) bool {
	return len(token) == sensorFrameLen && isHex(token)
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// CanonicalID upper-cases a hex device ID for registry storage and lookup.
// Inbound IDs are accepted case-insensitively.
func CanonicalID(id string) string {
	return strings.ToUpper(id)
}
