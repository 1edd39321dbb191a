package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/shared"
	"golang.org/x/oauth2"
)

const defaultTimeout = 5 * time.Second

// BuildAuthorizationURL returns the provider authorization URL for one flow.
//
// Query values are percent-encoded with spaces as %20, so the scope list reads
// "a%20b" rather than the form-encoded "a+b".
func BuildAuthorizationURL(authURL, clientID, redirectURI string, scopes []string, state string) string {
	config := oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: authURL},
	}
	return strings.ReplaceAll(config.AuthCodeURL(state), "+", "%20")
}

// OAuthClient talks to the provider's authorization server.
//
// Credentials are checked on every call rather than at construction so the
// server can start and report missing configuration per request.
type OAuthClient struct {
	config     *oauth2.Config
	creds      shared.SpotifyConfig
	httpClient *http.Client
	timeout    time.Duration
	logger     *log.Logger
	now        func() time.Time
}

// NewOAuthClient creates an [OAuthClient]. A nil httpClient means [http.DefaultClient].
func NewOAuthClient(creds shared.SpotifyConfig, provider shared.ProviderConfig, httpClient *http.Client, logger *log.Logger) *OAuthClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := provider.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OAuthClient{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       provider.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   provider.AuthURL,
				TokenURL:  provider.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		creds:      creds,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
}

func (c *OAuthClient) RedirectURI() string { return c.creds.RedirectURI }

func (c *OAuthClient) Scopes() []string { return c.config.Scopes }

// AuthorizationURL builds the redirect for state from the configured credentials.
func (c *OAuthClient) AuthorizationURL(state string) (string, error) {
	if err := c.creds.Validate(); err != nil {
		return "", err
	}
	return BuildAuthorizationURL(c.config.Endpoint.AuthURL, c.config.ClientID, c.config.RedirectURL, c.config.Scopes, state), nil
}

// Exchange redeems an authorization code. It is attempted exactly once.
func (c *OAuthClient) Exchange(ctx context.Context, code, redirectURI string) (*models.TokenSet, error) {
	if err := c.creds.Validate(); err != nil {
		return nil, err
	}

	config := *c.config
	if redirectURI != "" {
		config.RedirectURL = redirectURI
	}

	ctx, cancel := c.context(ctx)
	defer cancel()

	token, err := config.Exchange(ctx, code)
	if err != nil {
		err = c.classify("exchange", err)
		c.logFailure("exchange", err)
		return nil, err
	}

	return c.tokenSet(token), nil
}

// Refresh trades refreshToken for new tokens, retrying once on a provider 5xx.
//
// The returned set has an empty RefreshToken unless the provider rotated it.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenSet, error) {
	if err := c.creds.Validate(); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, shared.ErrUnauthenticated
	}

	tokens, err := retryTransient(ctx, c.logger, "refresh", func() (*models.TokenSet, error) {
		ctx, cancel := c.context(ctx)
		defer cancel()

		token, err := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		if err != nil {
			return nil, c.classify("refresh", err)
		}

		tokens := c.tokenSet(token)
		if tokens.RefreshToken == refreshToken {
			tokens.RefreshToken = ""
		}
		return tokens, nil
	})
	if err != nil {
		c.logFailure("refresh", err)
		return nil, err
	}
	return tokens, nil
}

func (c *OAuthClient) context(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return context.WithTimeout(ctx, c.timeout)
}

// classify maps an oauth2 failure to a [shared.RejectedError] or an unavailable error.
func (c *OAuthClient) classify(op string, err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) && retrieve.Response != nil {
		return &shared.RejectedError{
			Op:     op,
			Status: retrieve.Response.StatusCode,
			Body:   shared.Truncate(string(retrieve.Body)),
		}
	}
	return shared.Unavailable(op, err)
}

func (c *OAuthClient) logFailure(op string, err error) {
	var rejected *shared.RejectedError
	if errors.As(err, &rejected) {
		c.logger.Error("provider rejected token request", "op", op, "status", rejected.Status, "body", rejected.Body)
		return
	}
	c.logger.Error("token request failed", "op", op, "error", err)
}

func (c *OAuthClient) tokenSet(token *oauth2.Token) *models.TokenSet {
	tokens := &models.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		ExpiresIn:    expiresIn(token),
	}
	if scope, ok := token.Extra("scope").(string); ok {
		tokens.Scope = scope
	}
	if tokens.ExpiresIn > 0 {
		tokens.ExpiresAt = c.now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	}
	return tokens
}

// expiresIn reads the raw expires_in value, which is a JSON number or a form string.
func expiresIn(token *oauth2.Token) int64 {
	switch v := token.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
