package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/tunegate/internal/shared"
)

// FeaturedPlaylistsJSON is a trimmed featured-playlists payload.
const FeaturedPlaylistsJSON = `{
  "message": "Popular Playlists",
  "playlists": {
    "href": "https://api.spotify.com/v1/browse/featured-playlists?country=CO&offset=0&limit=20",
    "items": [
      {
        "id": "37i9dQZF1DXcBWIGoYBM5M",
        "name": "Today's Top Hits",
        "description": "The hottest tracks right now.",
        "owner": {"id": "spotify", "display_name": "Spotify"},
        "public": true,
        "tracks": {"href": "https://api.spotify.com/v1/playlists/37i9dQZF1DXcBWIGoYBM5M/tracks", "total": 50},
        "images": [{"url": "https://i.scdn.co/image/top-hits", "height": 640, "width": 640}],
        "uri": "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
        "external_urls": {"spotify": "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"}
      },
      {
        "id": "37i9dQZF1DX10zKzsJ2jva",
        "name": "Viva Latino",
        "description": "Today's top Latin hits, elevando nuestra música.",
        "owner": {"id": "spotify", "display_name": "Spotify"},
        "public": true,
        "tracks": {"href": "https://api.spotify.com/v1/playlists/37i9dQZF1DX10zKzsJ2jva/tracks", "total": 50},
        "images": [{"url": "https://i.scdn.co/image/viva-latino", "height": null, "width": null}],
        "uri": "spotify:playlist:37i9dQZF1DX10zKzsJ2jva",
        "external_urls": {"spotify": "https://open.spotify.com/playlist/37i9dQZF1DX10zKzsJ2jva"}
      },
      {
        "id": "37i9dQZF1DWY7IeIP1cdjF",
        "name": "Baila Reggaeton",
        "description": "Los éxitos más HOT del reggaeton.",
        "owner": {"id": "spotify", "display_name": "Spotify"},
        "public": null,
        "tracks": {"href": "https://api.spotify.com/v1/playlists/37i9dQZF1DWY7IeIP1cdjF/tracks", "total": 100},
        "images": [],
        "uri": "spotify:playlist:37i9dQZF1DWY7IeIP1cdjF",
        "external_urls": {"spotify": "https://open.spotify.com/playlist/37i9dQZF1DWY7IeIP1cdjF"}
      }
    ],
    "limit": 20,
    "next": null,
    "offset": 0,
    "previous": null,
    "total": 3
  }
}`

// FakeProvider is an in-process authorization server and catalog API.
//
// Token requests must carry Basic credentials for ClientID and ClientSecret.
// Catalog requests must carry a bearer token the provider issued.
type FakeProvider struct {
	*httptest.Server

	ClientID     string
	ClientSecret string
	// ExpiresIn is reported with every issued token. Zero omits the field.
	ExpiresIn int
	// RotateRefresh issues a new refresh token on every refresh grant.
	RotateRefresh bool
	// CatalogBody replaces [FeaturedPlaylistsJSON] when set.
	CatalogBody string

	mu           sync.Mutex
	codes        map[string]string // code -> redirect_uri it was issued for
	refresh      map[string]bool
	access       map[string]bool
	tokenFails   []int
	catalogFails []int
	calls        map[string]int
	lastQuery    url.Values
	issued       int
}

// NewFakeProvider starts a provider that is shut down when the test ends.
func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()

	p := &FakeProvider{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		ExpiresIn:    3600,
		codes:        make(map[string]string),
		refresh:      make(map[string]bool),
		access:       make(map[string]bool),
		calls:        make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", p.handleToken)
	mux.HandleFunc("GET /v1/browse/featured-playlists", p.handleFeatured)
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

// Config returns a configuration whose endpoints point at the provider.
func (p *FakeProvider) Config() *shared.Config {
	cfg := shared.DefaultConfig()
	cfg.Credentials.Spotify = shared.SpotifyConfig{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURI:  "http://localhost:3000/auth/callback",
	}
	cfg.Provider.AuthURL = p.URL + "/authorize"
	cfg.Provider.TokenURL = p.URL + "/api/token"
	cfg.Provider.APIURL = p.URL + "/v1"
	cfg.Provider.RateLimit = 0
	return cfg
}

// IssueCode registers an authorization code valid for redirectURI.
func (p *FakeProvider) IssueCode(code, redirectURI string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[code] = redirectURI
}

// IssueRefreshToken registers a refresh token the provider will honour.
func (p *FakeProvider) IssueRefreshToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refresh[token] = true
}

// IssueAccessToken registers a bearer token the catalog will accept.
func (p *FakeProvider) IssueAccessToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.access[token] = true
}

// RevokeRefreshToken makes token fail with invalid_grant.
func (p *FakeProvider) RevokeRefreshToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.refresh, token)
}

// FailToken queues statuses returned by the token endpoint before it serves normally.
func (p *FakeProvider) FailToken(statuses ...int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenFails = append(p.tokenFails, statuses...)
}

// FailCatalog queues statuses returned by the catalog before it serves normally.
func (p *FakeProvider) FailCatalog(statuses ...int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.catalogFails = append(p.catalogFails, statuses...)
}

// Calls returns how many requests hit the named endpoint: "authorization_code", "refresh_token" or "catalog".
func (p *FakeProvider) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

// LastCatalogQuery returns the query string of the most recent catalog request.
func (p *FakeProvider) LastCatalogQuery() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastQuery
}

func (p *FakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeProviderError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	grant := r.PostForm.Get("grant_type")

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[grant]++

	if len(p.tokenFails) > 0 {
		status := p.tokenFails[0]
		p.tokenFails = p.tokenFails[1:]
		writeProviderError(w, status, "server_error", http.StatusText(status))
		return
	}

	id, secret, ok := r.BasicAuth()
	if !ok || id != p.ClientID || secret != p.ClientSecret {
		writeProviderError(w, http.StatusUnauthorized, "invalid_client", "Invalid client")
		return
	}

	switch grant {
	case "authorization_code":
		code := r.PostForm.Get("code")
		redirectURI, ok := p.codes[code]
		if !ok || redirectURI != r.PostForm.Get("redirect_uri") {
			writeProviderError(w, http.StatusBadRequest, "invalid_grant", "Invalid authorization code")
			return
		}
		delete(p.codes, code)
		p.writeTokens(w, true)
	case "refresh_token":
		if !p.refresh[r.PostForm.Get("refresh_token")] {
			writeProviderError(w, http.StatusBadRequest, "invalid_grant", "Invalid refresh token")
			return
		}
		if p.RotateRefresh {
			delete(p.refresh, r.PostForm.Get("refresh_token"))
		}
		p.writeTokens(w, p.RotateRefresh)
	default:
		writeProviderError(w, http.StatusBadRequest, "unsupported_grant_type", grant)
	}
}

// writeTokens must be called with p.mu held.
func (p *FakeProvider) writeTokens(w http.ResponseWriter, withRefresh bool) {
	p.issued++
	body := map[string]any{
		"access_token": fmt.Sprintf("access-%d", p.issued),
		"token_type":   "Bearer",
		"scope":        "user-read-private user-read-email",
	}
	p.access[body["access_token"].(string)] = true

	if p.ExpiresIn > 0 {
		body["expires_in"] = p.ExpiresIn
	}
	if withRefresh {
		rt := fmt.Sprintf("refresh-%d", p.issued)
		p.refresh[rt] = true
		body["refresh_token"] = rt
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (p *FakeProvider) handleFeatured(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["catalog"]++
	p.lastQuery = r.URL.Query()

	if len(p.catalogFails) > 0 {
		status := p.catalogFails[0]
		p.catalogFails = p.catalogFails[1:]
		writeAPIError(w, status, http.StatusText(status))
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !p.access[token] {
		writeAPIError(w, http.StatusUnauthorized, "The access token expired")
		return
	}

	body := p.CatalogBody
	if body == "" {
		body = FeaturedPlaylistsJSON
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func writeProviderError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "error_description": description})
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"status": status, "message": message}})
}
