package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/session"
	"github.com/desertthunder/tunegate/internal/shared"
)

// CallbackParams are the query parameters the provider appends to the redirect URI.
type CallbackParams struct {
	Code  string
	State string
	Error string
}

// AuthService runs the authorization code flow for browser sessions.
type AuthService struct {
	store  session.Store
	oauth  Authorizer
	logger *log.Logger
}

// NewAuthService creates an [AuthService].
func NewAuthService(store session.Store, oauth Authorizer, logger *log.Logger) *AuthService {
	return &AuthService{store: store, oauth: oauth, logger: logger}
}

// Start issues a fresh CSRF state for sessionID and returns the provider redirect URL.
//
// A state issued earlier for the same session is replaced.
func (a *AuthService) Start(ctx context.Context, sessionID string) (*models.AuthorizationRequest, string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, "", err
	}

	redirect, err := a.oauth.AuthorizationURL(state)
	if err != nil {
		return nil, "", err
	}

	if err := a.store.SetPendingState(ctx, sessionID, state); err != nil {
		return nil, "", fmt.Errorf("failed to store pending state: %w", err)
	}

	a.logger.Debug("authorization started", "session", shared.Redact(sessionID))

	req := &models.AuthorizationRequest{
		State:       state,
		Scopes:      a.oauth.Scopes(),
		RedirectURI: a.oauth.RedirectURI(),
	}
	return req, redirect, nil
}

// Callback validates the provider redirect and, when it is genuine, exchanges the code.
//
// The pending state is consumed before anything else, so a state can be used once
// whatever the outcome. Tokens are stored only after the state matched.
func (a *AuthService) Callback(ctx context.Context, sessionID string, params CallbackParams) (*Flow, error) {
	pending, ok, err := a.store.ConsumePendingState(ctx, sessionID)
	if err != nil {
		return FailedFlow(sessionID, err), fmt.Errorf("failed to consume pending state: %w", err)
	}
	if !ok {
		err := fmt.Errorf("%w: %w", shared.ErrCSRFMismatch, shared.ErrNoPendingRequest)
		a.logger.Warn("callback without pending authorization", "session", shared.Redact(sessionID))
		return FailedFlow(sessionID, err), err
	}

	flow := NewFlow(sessionID)
	if err := flow.ReceiveCode(); err != nil {
		return flow, err
	}

	switch {
	case params.State == "":
		return a.fail(flow, fmt.Errorf("%w: state", shared.ErrMissingParams))
	case subtle.ConstantTimeCompare([]byte(params.State), []byte(pending)) != 1:
		return a.fail(flow, shared.ErrCSRFMismatch)
	case params.Error != "":
		return a.fail(flow, fmt.Errorf("%w: %s", shared.ErrAuthorizationDenied, params.Error))
	case params.Code == "":
		return a.fail(flow, fmt.Errorf("%w: code", shared.ErrMissingParams))
	}

	tokens, err := a.oauth.Exchange(ctx, params.Code, a.oauth.RedirectURI())
	if err != nil {
		return a.fail(flow, err)
	}

	if err := a.store.StoreTokens(ctx, sessionID, *tokens); err != nil {
		return a.fail(flow, fmt.Errorf("failed to store tokens: %w", err))
	}

	if err := flow.Complete(); err != nil {
		return flow, err
	}

	a.logger.Info("authorization complete",
		"session", shared.Redact(sessionID),
		"access_token", shared.Redact(tokens.AccessToken),
		"expires_in", tokens.ExpiresIn,
	)
	return flow, nil
}

func (a *AuthService) fail(flow *Flow, err error) (*Flow, error) {
	if ferr := flow.Fail(err); ferr != nil {
		return flow, errors.Join(err, ferr)
	}
	a.logger.Warn("authorization failed", "session", shared.Redact(flow.SessionID), "error", err)
	return flow, err
}
