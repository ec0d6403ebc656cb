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

// Package spotifyauth bridges the web player to the Spotify accounts API.
// Tokens never reach the browser's JS except through /auth/access_token,
// which is origin-checked against the configured frontend.
package spotifyauth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bpijls/grouploop/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v4"
)

const (
	authURL  = "https://accounts.spotify.com/authorize"
	tokenURL = "https://accounts.spotify.com/api/token"

	requestTimeout = 10 * time.Second
	// Tokens are treated as expired slightly early so a token handed to the
	// player is never already stale.
	expirySlack = 30 * time.Second
)

var requiredScopes = strings.Join([]string{
	"streaming",
	"user-read-email",
	"user-read-private",
	"user-modify-playback-state",
	"user-read-playback-state",
}, " ")

// session is the server-side record behind one sid cookie.
type session struct {
	State        string
	RefreshToken string
	AccessToken  string
	ExpiresAt    time.Time
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Bridge implements the OAuth authorization-code flow for the web player.
type Bridge struct {
	cfg      config.Spotify
	store    *xsync.Map[string, *session]
	client   *http.Client
	tokenURL string
	authURL  string
}

// NewBridge creates a Bridge from config. The bridge is inert (no routes)
// when no client id is configured.
func NewBridge(cfg *config.Config) *Bridge {
	return &Bridge{
		cfg:      cfg.Spotify,
		store:    xsync.NewMap[string, *session](),
		client:   &http.Client{Timeout: requestTimeout},
		tokenURL: tokenURL,
		authURL:  authURL,
	}
}

// Enabled reports whether the bridge has credentials to run with.
func (b *Bridge) Enabled() bool {
	return b.cfg.ClientID != ""
}

// ApplyRoutes registers the /auth routes on the shared router.
func (b *Bridge) ApplyRoutes(r *gin.Engine, ratelimit gin.HandlerFunc) {
	grp := r.Group("/auth")
	grp.Use(ratelimit)
	grp.GET("/login", b.login)
	grp.GET("/callback", b.callback)
	grp.GET("/access_token", b.accessToken)
	grp.POST("/logout", b.logout)
}

func randomToken(bytes int) string {
	buf := make([]byte, bytes)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func (b *Bridge) login(c *gin.Context) {
	state := randomToken(16)
	sid := randomToken(12)
	b.store.Store(sid, &session{State: state})

	sess := sessions.Default(c)
	sess.Set("sid", sid)
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_save_failed"})
		return
	}

	params := url.Values{
		"client_id":     {b.cfg.ClientID},
		"response_type": {"code"},
		"redirect_uri":  {b.cfg.RedirectURI},
		"scope":         {requiredScopes},
		"state":         {state},
		"show_dialog":   {"false"},
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s?%s", b.authURL, params.Encode()))
}

func (b *Bridge) callback(c *gin.Context) {
	sid, rec := b.currentSession(c)
	state := c.Query("state")
	if rec == nil || state == "" || state != rec.State {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	tok, err := b.exchange(url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {c.Query("code")},
		"redirect_uri":  {b.cfg.RedirectURI},
		"client_id":     {b.cfg.ClientID},
		"client_secret": {b.cfg.ClientSecret},
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token_exchange_failed"})
		return
	}

	b.store.Store(sid, &session{
		RefreshToken: tok.RefreshToken,
		AccessToken:  tok.AccessToken,
		ExpiresAt:    expiryFrom(tok),
	})

	c.Redirect(http.StatusFound, strings.TrimRight(b.cfg.FrontendOrigin, "/")+"/")
}

func (b *Bridge) accessToken(c *gin.Context) {
	if c.GetHeader("Origin") != b.cfg.FrontendOrigin {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	sid, rec := b.currentSession(c)
	if rec == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
		return
	}
	if rec.AccessToken == "" || !time.Now().Before(rec.ExpiresAt) {
		refreshed, err := b.refresh(sid, rec)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh_failed"})
			return
		}
		rec = refreshed
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": rec.AccessToken,
		"expires_at":   rec.ExpiresAt.Unix(),
	})
}

func (b *Bridge) logout(c *gin.Context) {
	sess := sessions.Default(c)
	if sid, ok := sess.Get("sid").(string); ok {
		b.store.Delete(sid)
	}
	sess.Delete("sid")
	_ = sess.Save()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// currentSession resolves the sid cookie to its server-side record.
func (b *Bridge) currentSession(c *gin.Context) (string, *session) {
	sid, ok := sessions.Default(c).Get("sid").(string)
	if !ok {
		return "", nil
	}
	rec, ok := b.store.Load(sid)
	if !ok {
		return sid, nil
	}
	return sid, rec
}

// refresh trades the stored refresh token for a fresh access token.
func (b *Bridge) refresh(sid string, rec *session) (*session, error) {
	if rec.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token for session")
	}
	tok, err := b.exchange(url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {rec.RefreshToken},
		"client_id":     {b.cfg.ClientID},
		"client_secret": {b.cfg.ClientSecret},
	})
	if err != nil {
		return nil, err
	}
	updated := &session{
		RefreshToken: rec.RefreshToken,
		AccessToken:  tok.AccessToken,
		ExpiresAt:    expiryFrom(tok),
	}
	b.store.Store(sid, updated)
	return updated, nil
}

func (b *Bridge) exchange(form url.Values) (*tokenResponse, error) {
	resp, err := b.client.PostForm(b.tokenURL, form)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tok, nil
}

func expiryFrom(tok *tokenResponse) time.Time {
	expiresIn := tok.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second).Add(-expirySlack)
}
