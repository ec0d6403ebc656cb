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
	"net/http"
	"strings"

	"github.com/bpijls/grouploop/internal/config"
	"github.com/bpijls/grouploop/internal/hub"
	"github.com/gorilla/websocket"
)

const bufferSize = 1024

// Handler upgrades inbound connections and binds them to the hub.
type Handler struct {
	hub        *hub.Hub
	wsUpgrader websocket.Upgrader
}

func CreateHandler(cfg *config.Config, h *hub.Hub) *Handler {
	return &Handler{
		hub: h,
		wsUpgrader: websocket.Upgrader{
			HandshakeTimeout: 0,
			ReadBufferSize:   bufferSize,
			WriteBufferSize:  bufferSize,
			WriteBufferPool:  nil,
			Subprotocols:     []string{},
			Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			},
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Firmware and native clients send no Origin header.
					return true
				}
				for _, host := range cfg.HTTP.CORSHosts {
					if host == "*" {
						return true
					}
					if strings.HasSuffix(host, ":443") && strings.HasPrefix(origin, "https://") {
						host = strings.TrimSuffix(host, ":443")
					}
					if strings.HasSuffix(host, ":80") && strings.HasPrefix(origin, "http://") {
						host = strings.TrimSuffix(host, ":80")
					}
					if strings.Contains(origin, host) {
						return true
					}
				}
				return false
			},
			EnableCompression: true,
		},
	}
}

// Serve runs one peer session: upgrade, register, pump frames until the
// transport dies, then clean up exactly once.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ws, err := h.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := newConn(ws)
	peer := hub.NewPeer(c, ws.RemoteAddr().String())

	h.hub.Register(peer)
	go c.writePump()

	c.readPump(h.hub, peer)

	h.hub.Unregister(peer)
	_ = c.Close()
}
