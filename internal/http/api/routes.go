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

// Package api exposes the read-only REST surface next to the WebSocket hub.
package api

import (
	"net/http"

	"github.com/bpijls/grouploop/internal/cdn"
	"github.com/bpijls/grouploop/internal/hub"
	"github.com/gin-gonic/gin"
)

// ApplyRoutes registers the /api/v1 routes on the shared router.
func ApplyRoutes(r *gin.Engine, h *hub.Hub, c *cdn.CDN) {
	v1 := r.Group("/api/v1")

	v1.GET("/devices", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"devices": h.DeviceEntries(),
		})
	})

	v1.GET("/commands", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"commands": c.Commands(),
		})
	})
}
