package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultMarket   = "CO"
	defaultPageSize = 20
	maxCatalogBody  = 4 << 20
)

// CatalogClient reads the provider's featured playlists.
type CatalogClient struct {
	baseURL    string
	market     string
	pageSize   int
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewCatalogClient creates a [CatalogClient]. A non-positive provider.RateLimit disables the limiter.
func NewCatalogClient(provider shared.ProviderConfig, httpClient *http.Client, logger *log.Logger) *CatalogClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &CatalogClient{
		baseURL:    strings.TrimRight(provider.APIURL, "/"),
		market:     provider.Market,
		pageSize:   provider.PageSize,
		timeout:    provider.Timeout.Duration,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     logger,
	}
	if c.market == "" {
		c.market = defaultMarket
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if provider.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(provider.RateLimit), 1)
	}
	return c
}

// Endpoint returns the featured playlists URL including its fixed query.
func (c *CatalogClient) Endpoint() string {
	query := url.Values{
		"country": {c.market},
		"limit":   {strconv.Itoa(c.pageSize)},
	}
	return c.baseURL + "/browse/featured-playlists?" + query.Encode()
}

// FeaturedPlaylists fetches one page of featured playlists, retrying once on a provider 5xx.
func (c *CatalogClient) FeaturedPlaylists(ctx context.Context, accessToken string) (*models.ResultSet, error) {
	result, err := retryTransient(ctx, c.logger, "featured playlists", func() (*models.ResultSet, error) {
		return c.fetch(ctx, accessToken)
	})
	if err != nil {
		c.logger.Error("catalog request failed", "status", shared.StatusOf(err), "error", err)
		return nil, err
	}
	return result, nil
}

func (c *CatalogClient) fetch(ctx context.Context, accessToken string) (*models.ResultSet, error) {
	const op = "featured playlists"

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, shared.Unavailable(op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shared.Unavailable(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBody))
	if err != nil {
		return nil, shared.Unavailable(op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &shared.RejectedError{Op: op, Status: resp.StatusCode, Body: shared.Truncate(string(body))}
	}

	var result models.ResultSet
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, shared.Unavailable(op, fmt.Errorf("failed to decode response: %w", err))
	}
	if result.Playlists.Items == nil {
		result.Playlists.Items = []models.Playlist{}
	}
	return &result, nil
}

// CatalogProxy answers catalog queries on behalf of a session.
type CatalogProxy struct {
	tokens  *TokenManager
	catalog Catalog
	logger  *log.Logger
}

// NewCatalogProxy creates a [CatalogProxy].
func NewCatalogProxy(tokens *TokenManager, catalog Catalog, logger *log.Logger) *CatalogProxy {
	return &CatalogProxy{tokens: tokens, catalog: catalog, logger: logger}
}

// Query returns the featured playlists for sessionID, filtered by filter when it is non-empty.
//
// It either returns the complete filtered listing or an error, never partial data.
func (p *CatalogProxy) Query(ctx context.Context, sessionID, filter string) (*models.ResultSet, error) {
	token, err := p.tokens.ValidAccessToken(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := p.catalog.FeaturedPlaylists(ctx, token)
	if err != nil {
		return nil, err
	}

	filtered := FilterPlaylists(result, filter)
	p.logger.Debug("catalog query",
		"session", shared.Redact(sessionID),
		"filter", filter,
		"matched", len(filtered.Playlists.Items),
		"of", len(result.Playlists.Items),
	)
	return filtered, nil
}
