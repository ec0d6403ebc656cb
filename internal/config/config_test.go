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

package config_test

import (
	"errors"
	"testing"

	"github.com/bpijls/grouploop/internal/config"
)

func makeValidConfig() config.Config {
	return config.Config{
		LogLevel: config.LogLevelInfo,
		WS: config.WS{
			Host: "0.0.0.0",
			Port: 5003,
		},
	}
}

func TestValidConfig(t *testing.T) {
	t.Parallel()
	cfg := makeValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected nil error for valid config, got %v", err)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	t.Parallel()
	cfg := makeValidConfig()
	cfg.LogLevel = "verbose"
	if !errors.Is(cfg.Validate(), config.ErrInvalidLogLevel) {
		t.Errorf("Expected ErrInvalidLogLevel, got %v", cfg.Validate())
	}
}

func TestWSValidateEmptyHost(t *testing.T) {
	t.Parallel()
	ws := config.WS{Host: "", Port: 5003}
	if !errors.Is(ws.Validate(), config.ErrInvalidWSHost) {
		t.Errorf("Expected ErrInvalidWSHost, got %v", ws.Validate())
	}
}

func TestWSValidateInvalidPort(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		port int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too large", 65536},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ws := config.WS{Host: "0.0.0.0", Port: tt.port}
			if !errors.Is(ws.Validate(), config.ErrInvalidWSPort) {
				t.Errorf("Expected ErrInvalidWSPort, got %v", ws.Validate())
			}
		})
	}
}

func TestSpotifyValidateDisabled(t *testing.T) {
	t.Parallel()
	s := config.Spotify{}
	if err := s.Validate(); err != nil {
		t.Errorf("Expected nil error for disabled Spotify bridge, got %v", err)
	}
}

func TestSpotifyValidateMissingSecret(t *testing.T) {
	t.Parallel()
	s := config.Spotify{ClientID: "abc", RedirectURI: "http://localhost/callback"}
	if !errors.Is(s.Validate(), config.ErrSpotifySecretRequired) {
		t.Errorf("Expected ErrSpotifySecretRequired, got %v", s.Validate())
	}
}

func TestSpotifyValidateMissingRedirect(t *testing.T) {
	t.Parallel()
	s := config.Spotify{ClientID: "abc", ClientSecret: "def", RedirectURI: ""}
	if !errors.Is(s.Validate(), config.ErrSpotifyRedirectRequired) {
		t.Errorf("Expected ErrSpotifyRedirectRequired, got %v", s.Validate())
	}
}

func TestMetricsValidateDisabled(t *testing.T) {
	t.Parallel()
	m := config.Metrics{Enabled: false}
	if err := m.Validate(); err != nil {
		t.Errorf("Expected nil error for disabled metrics, got %v", err)
	}
}

func TestMetricsValidateEmptyBind(t *testing.T) {
	t.Parallel()
	m := config.Metrics{Enabled: true, Bind: "", Port: 9100}
	if !errors.Is(m.Validate(), config.ErrInvalidMetricsBindAddress) {
		t.Errorf("Expected ErrInvalidMetricsBindAddress, got %v", m.Validate())
	}
}

func TestMetricsValidateInvalidPort(t *testing.T) {
	t.Parallel()
	m := config.Metrics{Enabled: true, Bind: "0.0.0.0", Port: 0}
	if !errors.Is(m.Validate(), config.ErrInvalidMetricsPort) {
		t.Errorf("Expected ErrInvalidMetricsPort, got %v", m.Validate())
	}
}

func TestPProfValidateInvalidPort(t *testing.T) {
	t.Parallel()
	p := config.PProf{Enabled: true, Bind: "127.0.0.1", Port: -1}
	if !errors.Is(p.Validate(), config.ErrInvalidPProfPort) {
		t.Errorf("Expected ErrInvalidPProfPort, got %v", p.Validate())
	}
}
