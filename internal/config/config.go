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

package config

// Config stores the application configuration.
type Config struct {
	LogLevel LogLevel `name:"log-level" description:"Logging level. One of debug, info, warn, error" default:"info"`
	Debug    bool     `name:"debug" description:"Enable debug mode" default:"false"`
	WS       WS       `name:"ws"`
	HTTP     HTTP     `name:"http"`
	CDN      CDN      `name:"cdn"`
	Spotify  Spotify  `name:"spotify"`
	Metrics  Metrics  `name:"metrics"`
	PProf    PProf    `name:"pprof"`
}

// WS configures the listener carrying the WebSocket hub and the HTTP surface.
type WS struct {
	Host string `name:"host" description:"Address to bind the hub to" default:"0.0.0.0"`
	Port int    `name:"port" description:"Port to bind the hub to" default:"5003"`
}

// HTTP configures the behavior of the HTTP routes sharing the hub listener.
type HTTP struct {
	CORSHosts      []string `name:"cors-hosts" description:"Origins allowed to reach the API and WebSocket endpoint" default:"*"`
	TrustedProxies []string `name:"trusted-proxies" description:"Proxies allowed to set forwarding headers"`
}

// CDN configures the static firmware/JS tree and the command catalogue.
type CDN struct {
	StaticRoot string `name:"static-root" description:"Directory containing the js/ and firmware/ trees" default:"./static"`
	Catalogue  string `name:"catalogue" description:"Path to the YAML command catalogue served at /api/v1/commands"`
}

// Spotify configures the OAuth bridge to the Spotify accounts API.
// The bridge is disabled when ClientID is empty.
type Spotify struct {
	ClientID       string `name:"client-id" description:"Spotify application client id"`
	ClientSecret   string `name:"client-secret" description:"Spotify application client secret"`
	RedirectURI    string `name:"redirect-uri" description:"OAuth callback URL registered with Spotify" default:"http://localhost:5003/auth/callback"`
	FrontendOrigin string `name:"frontend-origin" description:"Origin of the web player allowed to read access tokens" default:"http://localhost:8080"`
	SessionSecret  string `name:"session-secret" description:"Secret for the session cookie store" default:"dev"`
}

// Metrics configures the prometheus metrics server and OTLP tracing.
type Metrics struct {
	Enabled      bool   `name:"enabled" description:"Enable the prometheus metrics server" default:"false"`
	Bind         string `name:"bind" description:"Address to bind the metrics server to" default:"0.0.0.0"`
	Port         int    `name:"port" description:"Port to bind the metrics server to" default:"9100"`
	OTLPEndpoint string `name:"otlp-endpoint" description:"OTLP gRPC endpoint for tracing; empty disables tracing"`
}

// PProf configures the standalone pprof server.
type PProf struct {
	Enabled        bool     `name:"enabled" description:"Enable the pprof server" default:"false"`
	Bind           string   `name:"bind" description:"Address to bind the pprof server to" default:"127.0.0.1"`
	Port           int      `name:"port" description:"Port to bind the pprof server to" default:"6060"`
	TrustedProxies []string `name:"trusted-proxies" description:"Proxies allowed to set forwarding headers"`
}

const maxPort = 65535

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return ErrInvalidLogLevel
	}
	if err := c.WS.Validate(); err != nil {
		return err
	}
	if err := c.Spotify.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks the hub listener configuration.
func (ws *WS) Validate() error {
	if ws.Host == "" {
		return ErrInvalidWSHost
	}
	if ws.Port <= 0 || ws.Port > maxPort {
		return ErrInvalidWSPort
	}
	return nil
}

// Validate checks the Spotify bridge configuration. An empty ClientID
// disables the bridge entirely, so the rest is only checked when set.
func (s *Spotify) Validate() error {
	if s.ClientID == "" {
		return nil
	}
	if s.ClientSecret == "" {
		return ErrSpotifySecretRequired
	}
	if s.RedirectURI == "" {
		return ErrSpotifyRedirectRequired
	}
	return nil
}

// Validate checks the metrics server configuration.
func (m *Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if m.Port <= 0 || m.Port > maxPort {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Validate checks the pprof server configuration.
func (p *PProf) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.Bind == "" {
		return ErrInvalidPProfBindAddress
	}
	if p.Port <= 0 || p.Port > maxPort {
		return ErrInvalidPProfPort
	}
	return nil
}
