package models

import (
	"time"
)

// Session is the state held for one browser. Empty strings and zero times mean "absent".
type Session struct {
	ID            string
	CSRFState     string
	AccessToken   string
	RefreshToken  string
	TokenType     string
	Scope         string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	LastTouchedAt time.Time
}

// Expired reports whether the session has no usable access token at now.
//
// A token without an expiry never expires.
func (s Session) Expired(now time.Time) bool {
	if s.AccessToken == "" {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Idle reports whether the session has gone untouched for at least ttl.
func (s Session) Idle(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastTouchedAt) >= ttl
}

// Apply writes tokens into the session. A present refresh token is never replaced by an absent one.
func (s *Session) Apply(tokens TokenSet) {
	s.AccessToken = tokens.AccessToken
	s.ExpiresAt = tokens.ExpiresAt
	s.TokenType = tokens.TokenType
	s.Scope = tokens.Scope
	if tokens.RefreshToken != "" {
		s.RefreshToken = tokens.RefreshToken
	}
}

// TokenSet holds the credentials returned by a code exchange or a refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string // only guaranteed on the first exchange
	TokenType    string
	Scope        string
	ExpiresIn    int64     // seconds, as reported by the provider
	ExpiresAt    time.Time // issue time + ExpiresIn; zero when the provider sent no expiry
}

// AuthorizationRequest is the ephemeral half of the flow kept between /auth/start and /auth/callback.
type AuthorizationRequest struct {
	State       string
	Scopes      []string
	RedirectURI string
}

// FlowStatus is the position of one authorization flow.
type FlowStatus int

const (
	FlowStarted FlowStatus = iota
	FlowCodeReceived
	FlowTokenExchanged
	FlowFailed
)

func (s FlowStatus) String() string {
	switch s {
	case FlowStarted:
		return "STARTED"
	case FlowCodeReceived:
		return "CODE_RECEIVED"
	case FlowTokenExchanged:
		return "TOKEN_EXCHANGED"
	case FlowFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is possible.
func (s FlowStatus) Terminal() bool {
	return s == FlowTokenExchanged || s == FlowFailed
}
