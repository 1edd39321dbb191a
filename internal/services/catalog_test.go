package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/session"
	"github.com/desertthunder/tunegate/internal/shared"
	tt "github.com/desertthunder/tunegate/internal/testing"
)

func newCatalogClient(p *tt.FakeProvider) *CatalogClient {
	return NewCatalogClient(p.Config().Provider, p.Client(), discardLogger())
}

func TestCatalogClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Endpoint", func(t *testing.T) {
		c := NewCatalogClient(shared.ProviderConfig{APIURL: "https://api.example.com/v1/"}, nil, discardLogger())
		want := "https://api.example.com/v1/browse/featured-playlists?country=CO&limit=20"
		if got := c.Endpoint(); got != want {
			t.Errorf("Endpoint() = %s, want %s", got, want)
		}
	})

	t.Run("FeaturedPlaylists", func(t *testing.T) {
		p := tt.NewFakeProvider(t)
		p.IssueAccessToken("tok")

		result, err := newCatalogClient(p).FeaturedPlaylists(ctx, "tok")
		if err != nil {
			t.Fatalf("FeaturedPlaylists() error = %v", err)
		}

		if result.Message != "Popular Playlists" {
			t.Errorf("Message = %q", result.Message)
		}
		if len(result.Playlists.Items) != 3 || result.Playlists.Total != 3 {
			t.Errorf("expected 3 playlists, got %d (total %d)", len(result.Playlists.Items), result.Playlists.Total)
		}
		first := result.Playlists.Items[0]
		if first.Owner.DisplayName != "Spotify" || first.Tracks.Total != 50 || first.Public == nil || !*first.Public {
			t.Errorf("unexpected first playlist %+v", first)
		}
		if result.Playlists.Items[1].Images[0].Height != nil {
			t.Error("expected null image height to decode as nil")
		}

		q := p.LastCatalogQuery()
		if q.Get("country") != "CO" || q.Get("limit") != "20" {
			t.Errorf("unexpected query %v", q)
		}
	})

	t.Run("Failures", func(t *testing.T) {
		tests := []struct {
			name       string
			token      string
			failures   []int
			body       string
			wantCalls  int
			wantStatus int
			wantErr    error
		}{
			{name: "Unauthorized", token: "unknown", wantCalls: 1, wantStatus: http.StatusUnauthorized, wantErr: shared.ErrUpstreamRejected},
			{name: "RetriedOnce", token: "tok", failures: []int{http.StatusServiceUnavailable}, wantCalls: 2},
			{name: "TwoTransients", token: "tok", failures: []int{500, 502}, wantCalls: 2, wantStatus: 502, wantErr: shared.ErrUpstreamRejected},
			{name: "RateLimitedNotRetried", token: "tok", failures: []int{http.StatusTooManyRequests}, wantCalls: 1, wantStatus: 429, wantErr: shared.ErrUpstreamRejected},
			{name: "Malformed", token: "tok", body: `{"playlists": [`, wantCalls: 1, wantErr: shared.ErrUpstreamUnavailable},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				p := tt.NewFakeProvider(t)
				p.IssueAccessToken("tok")
				p.FailCatalog(tc.failures...)
				p.CatalogBody = tc.body

				result, err := newCatalogClient(p).FeaturedPlaylists(ctx, tc.token)
				if tc.wantErr == nil {
					if err != nil {
						t.Fatalf("FeaturedPlaylists() error = %v", err)
					}
				} else {
					if !errors.Is(err, tc.wantErr) {
						t.Fatalf("error = %v, want %v", err, tc.wantErr)
					}
					if result != nil {
						t.Error("expected no partial result on failure")
					}
				}
				if got := shared.StatusOf(err); got != tc.wantStatus {
					t.Errorf("status = %d, want %d", got, tc.wantStatus)
				}
				if got := p.Calls("catalog"); got != tc.wantCalls {
					t.Errorf("calls = %d, want %d", got, tc.wantCalls)
				}
			})
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		p := tt.NewFakeProvider(t)
		c := newCatalogClient(p)
		p.Close()

		if _, err := c.FeaturedPlaylists(ctx, "tok"); !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})

	t.Run("BodyReadFailure", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tt.FCloser{}, Header: http.Header{}}
		client := &http.Client{Transport: tt.NewMockRoundTripper(resp, nil)}
		c := NewCatalogClient(shared.ProviderConfig{APIURL: "https://api.example.com/v1"}, client, discardLogger())

		if _, err := c.FeaturedPlaylists(ctx, "tok"); !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})

	t.Run("RateLimiter", func(t *testing.T) {
		p := tt.NewFakeProvider(t)
		p.IssueAccessToken("tok")
		cfg := p.Config().Provider
		cfg.RateLimit = 0.01
		c := NewCatalogClient(cfg, p.Client(), discardLogger())

		if _, err := c.FeaturedPlaylists(ctx, "tok"); err != nil {
			t.Fatalf("first request error = %v", err)
		}

		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		if _, err := c.FeaturedPlaylists(ctx, "tok"); !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected limiter to refuse a request it cannot serve in time, got %v", err)
		}
		if got := p.Calls("catalog"); got != 1 {
			t.Errorf("expected one upstream call, got %d", got)
		}
	})
}

func TestCatalogProxy(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, tokens *models.TokenSet) (*tt.FakeProvider, *CatalogProxy, string) {
		t.Helper()
		p := tt.NewFakeProvider(t)
		store := session.NewMemoryStore(session.Options{})
		id := newSession(t, store)
		if tokens != nil {
			if err := store.StoreTokens(ctx, id, *tokens); err != nil {
				t.Fatalf("failed to store tokens: %v", err)
			}
		}
		logger := discardLogger()
		manager := NewTokenManager(store, newOAuthClient(p), logger)
		return p, NewCatalogProxy(manager, newCatalogClient(p), logger), id
	}

	valid := func(p *tt.FakeProvider) *models.TokenSet {
		p.IssueAccessToken("tok")
		return &models.TokenSet{AccessToken: "tok", RefreshToken: "r0", ExpiresAt: time.Now().Add(time.Hour)}
	}

	t.Run("Filters", func(t *testing.T) {
		tests := []struct {
			filter string
			want   []string
		}{
			{"", []string{"Today's Top Hits", "Viva Latino", "Baila Reggaeton"}},
			{"LATIN", []string{"Viva Latino"}},
			{"hits", []string{"Today's Top Hits", "Viva Latino"}},
			{"jazz", []string{}},
		}

		for _, tc := range tests {
			t.Run("filter="+tc.filter, func(t *testing.T) {
				p, proxy, id := setup(t, nil)
				proxy.tokens.store.StoreTokens(ctx, id, *valid(p))

				result, err := proxy.Query(ctx, id, tc.filter)
				if err != nil {
					t.Fatalf("Query() error = %v", err)
				}

				var names []string
				for _, pl := range result.Playlists.Items {
					names = append(names, pl.Name)
				}
				if strings.Join(names, "|") != strings.Join(tc.want, "|") {
					t.Errorf("got %v, want %v", names, tc.want)
				}
				if result.Playlists.Total != 3 {
					t.Errorf("expected upstream total to pass through, got %d", result.Playlists.Total)
				}
			})
		}
	})

	t.Run("RefreshesExpiredToken", func(t *testing.T) {
		p, proxy, id := setup(t, &models.TokenSet{AccessToken: "stale", RefreshToken: "r0", ExpiresAt: time.Now().Add(-time.Second)})
		p.IssueRefreshToken("r0")

		if _, err := proxy.Query(ctx, id, ""); err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if p.Calls("refresh_token") != 1 || p.Calls("catalog") != 1 {
			t.Errorf("expected one refresh and one catalog call, got %d and %d", p.Calls("refresh_token"), p.Calls("catalog"))
		}
	})

	t.Run("RefreshFailureSkipsCatalog", func(t *testing.T) {
		tests := []struct {
			name      string
			statuses  []int
			wantErr   error
			wantCalls int
		}{
			{"Rejected", []int{http.StatusBadRequest}, shared.ErrUnauthenticated, 1},
			{"Revoked", []int{http.StatusUnauthorized}, shared.ErrUnauthenticated, 1},
			{"ProviderDown", []int{http.StatusBadGateway, http.StatusBadGateway}, shared.ErrUpstreamRejected, 2},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				p, proxy, id := setup(t, &models.TokenSet{AccessToken: "stale", RefreshToken: "r0", ExpiresAt: time.Now().Add(-time.Second)})
				p.IssueRefreshToken("r0")
				p.FailToken(tc.statuses...)

				result, err := proxy.Query(ctx, id, "")
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Query() error = %v, want %v", err, tc.wantErr)
				}
				if result != nil {
					t.Error("expected no result")
				}
				if got := p.Calls("refresh_token"); got != tc.wantCalls {
					t.Errorf("refresh calls = %d, want %d", got, tc.wantCalls)
				}
				if got := p.Calls("catalog"); got != 0 {
					t.Errorf("catalog calls = %d, want 0", got)
				}
			})
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		p, proxy, id := setup(t, nil)

		if _, err := proxy.Query(ctx, id, ""); !errors.Is(err, shared.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
		if p.Calls("catalog") != 0 || p.Calls("refresh_token") != 0 {
			t.Error("expected no upstream calls")
		}
	})

	t.Run("UpstreamFailure", func(t *testing.T) {
		p, proxy, id := setup(t, nil)
		proxy.tokens.store.StoreTokens(ctx, id, *valid(p))
		p.FailCatalog(http.StatusInternalServerError, http.StatusInternalServerError)

		result, err := proxy.Query(ctx, id, "")
		if !errors.Is(err, shared.ErrUpstreamRejected) {
			t.Errorf("expected ErrUpstreamRejected, got %v", err)
		}
		if result != nil {
			t.Error("expected no partial result")
		}
	})
}
