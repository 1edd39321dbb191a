package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/session"
	"github.com/desertthunder/tunegate/internal/shared"
	"golang.org/x/sync/singleflight"
)

// TokenManager hands out usable access tokens for a session, refreshing them when needed.
//
// Concurrent refreshes for one session share a single provider call.
type TokenManager struct {
	store     session.Store
	refresher Refresher
	group     singleflight.Group
	logger    *log.Logger
}

// NewTokenManager creates a [TokenManager].
func NewTokenManager(store session.Store, refresher Refresher, logger *log.Logger) *TokenManager {
	return &TokenManager{store: store, refresher: refresher, logger: logger}
}

// ValidAccessToken returns the stored access token while it is unexpired, and a refreshed one otherwise.
func (m *TokenManager) ValidAccessToken(ctx context.Context, sessionID string) (string, error) {
	expired, err := m.store.IsExpired(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if !expired {
		token, ok, err := m.store.AccessToken(ctx, sessionID)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
	}

	tokens, err := m.Refresh(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

// Refresh exchanges the session's refresh token and persists the result before returning it.
//
// Without a refresh token, or when the provider rejects it with 400 or 401, the
// error matches [shared.ErrUnauthenticated] and the user must authorize again.
func (m *TokenManager) Refresh(ctx context.Context, sessionID string) (*models.TokenSet, error) {
	v, err, _ := m.group.Do(sessionID, func() (any, error) {
		refreshToken, ok, err := m.store.RefreshToken(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, shared.ErrUnauthenticated
		}

		tokens, err := m.refresher.Refresh(ctx, refreshToken)
		if err != nil {
			switch shared.StatusOf(err) {
			case http.StatusBadRequest, http.StatusUnauthorized:
				return nil, fmt.Errorf("%w: %w", shared.ErrUnauthenticated, err)
			}
			return nil, err
		}

		if err := m.store.StoreTokens(ctx, sessionID, *tokens); err != nil {
			if errors.Is(err, shared.ErrSessionNotFound) {
				return nil, fmt.Errorf("%w: %w", shared.ErrUnauthenticated, err)
			}
			return nil, err
		}

		m.logger.Debug("access token refreshed",
			"session", shared.Redact(sessionID),
			"rotated", tokens.RefreshToken != "",
		)
		return tokens, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.TokenSet), nil
}
