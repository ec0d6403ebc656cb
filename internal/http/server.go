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

package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/bpijls/grouploop/internal/cdn"
	"github.com/bpijls/grouploop/internal/config"
	"github.com/bpijls/grouploop/internal/http/api"
	"github.com/bpijls/grouploop/internal/http/websocket"
	"github.com/bpijls/grouploop/internal/hub"
	"github.com/bpijls/grouploop/internal/spotifyauth"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// One listener carries everything: the WebSocket hub at /ws, health, the
// REST API, the CDN tree, and the Spotify auth bridge.

type Server struct {
	*http.Server
	shutdownChannel chan bool
}

const readHeaderTimeout = 10 * time.Second
const rateLimitRate = time.Second
const rateLimitLimit = 10

func MakeServer(cfg *config.Config, h *hub.Hub, cdnFiles *cdn.CDN, bridge *spotifyauth.Bridge, version, commit string) Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := createRouter(cfg, h, cdnFiles, bridge, version, commit)

	s := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.WS.Host, cfg.WS.Port),
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return Server{
		s,
		make(chan bool),
	}
}

func createRouter(cfg *config.Config, h *hub.Hub, cdnFiles *cdn.CDN, bridge *spotifyauth.Bridge, version, commit string) *gin.Engine {
	r := gin.New()
	if cfg.Debug {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		slog.Error("Failed setting trusted proxies", "error", err)
	}

	// Tracing
	if cfg.Metrics.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("grouploop"))
	}

	// CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	if len(cfg.HTTP.CORSHosts) == 1 && cfg.HTTP.CORSHosts[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.HTTP.CORSHosts
	}
	r.Use(cors.New(corsConfig))

	// Sessions back the Spotify bridge's sid cookie.
	sessionStore := cookie.NewStore([]byte(cfg.Spotify.SessionSecret))
	r.Use(sessions.Sessions("sessions", sessionStore))

	// Debug
	if cfg.Debug {
		pprof.Register(r)
	}

	ratelimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  rateLimitRate,
		Limit: rateLimitLimit,
	})
	ratelimitMW := ratelimit.RateLimiter(ratelimitStore, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			c.String(http.StatusTooManyRequests, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": fmt.Sprintf("%s-%s", version, commit),
		})
	})

	wsHandler := websocket.CreateHandler(cfg, h)
	r.GET("/ws", func(c *gin.Context) {
		wsHandler.Serve(c.Writer, c.Request)
	})

	api.ApplyRoutes(r, h, cdnFiles)
	cdnFiles.ApplyRoutes(r)

	if bridge.Enabled() {
		bridge.ApplyRoutes(r, ratelimitMW)
	}

	return r
}

// Start binds the listener and serves in the background. A bind failure is
// returned synchronously; serve errors after that are only logged.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.Addr, err)
	}
	// Reflect the resolved address so callers see the real port when the
	// configured one was 0.
	s.Addr = listener.Addr().String()
	slog.Info("HTTP server listening", "address", s.Addr)
	go func() {
		err := s.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
		s.shutdownChannel <- true
	}()
	return nil
}

// Stop closes the listener first, then waits for the serve loop to exit.
func (s *Server) Stop(ctx context.Context) {
	if err := s.Shutdown(ctx); err != nil {
		slog.Error("Failed to shutdown HTTP server", "error", err)
	}
	select {
	case <-s.shutdownChannel:
	case <-ctx.Done():
	}
}
