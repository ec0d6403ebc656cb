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

// Package cdn serves the device firmware and browser JS trees, plus the
// command catalogue that the control UI uses to render device commands.
package cdn

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bpijls/grouploop/internal/config"
	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

// Command is one catalogue entry describing a device command letter and its
// fixed-width payload, as consumed by the control UI.
type Command struct {
	Name        string `yaml:"name" json:"name"`
	Code        string `yaml:"code" json:"code"`
	Description string `yaml:"description" json:"description"`
	Payload     string `yaml:"payload,omitempty" json:"payload,omitempty"`
}

type catalogueFile struct {
	Commands []Command `yaml:"commands"`
}

// CDN holds the static root and the parsed command catalogue.
type CDN struct {
	staticRoot string
	commands   []Command
}

// Load resolves the static root and reads the optional command catalogue.
func Load(cfg *config.Config) (*CDN, error) {
	c := &CDN{
		staticRoot: cfg.CDN.StaticRoot,
		commands:   []Command{},
	}

	if _, err := os.Stat(c.staticRoot); err != nil {
		slog.Warn("CDN static root not found, static routes will 404", "root", c.staticRoot)
	}

	if cfg.CDN.Catalogue != "" {
		raw, err := os.ReadFile(cfg.CDN.Catalogue)
		if err != nil {
			return nil, fmt.Errorf("failed to read command catalogue: %w", err)
		}
		var file catalogueFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("failed to parse command catalogue: %w", err)
		}
		c.commands = file.Commands
	}

	return c, nil
}

// Commands returns the parsed catalogue.
func (c *CDN) Commands() []Command {
	return c.commands
}

// ApplyRoutes registers the CDN routes on the shared router.
func (c *CDN) ApplyRoutes(r *gin.Engine) {
	r.GET("/", func(ctx *gin.Context) {
		ctx.PureJSON(http.StatusOK, gin.H{
			"service": "grouploop",
			"endpoints": []string{
				"/ws",
				"/health",
				"/js/<filename>",
				"/firmware/<filename>",
				"/api/v1/devices",
				"/api/v1/commands",
			},
		})
	})
	r.GET("/js/:filename", c.serveFrom("js"))
	r.GET("/firmware/:filename", c.serveFrom("firmware"))
}

// serveFrom serves a single file from a subdirectory of the static root.
// Only the base name of the parameter is used, so traversal outside the
// tree is not possible.
func (c *CDN) serveFrom(dir string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		name := filepath.Base(ctx.Param("filename"))
		full := filepath.Join(c.staticRoot, dir, name)
		if _, err := os.Stat(full); err != nil {
			ctx.Status(http.StatusNotFound)
			return
		}
		ctx.File(full)
	}
}
