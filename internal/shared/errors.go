package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Configuration errors
	ErrConfig = fmt.Errorf("invalid configuration")

	// Authorization flow errors
	ErrCSRFMismatch        = fmt.Errorf("state parameter does not match pending state")
	ErrMissingParams       = fmt.Errorf("missing callback parameters")
	ErrAuthorizationDenied = fmt.Errorf("authorization denied by provider")
	ErrInvalidTransition   = fmt.Errorf("invalid flow transition")

	// Session errors
	ErrUnauthenticated  = fmt.Errorf("not authenticated")
	ErrSessionNotFound  = fmt.Errorf("session not found")
	ErrUnknownBackend   = fmt.Errorf("unknown session backend")
	ErrNoPendingRequest = fmt.Errorf("no pending authorization request")

	// Provider errors
	ErrUpstreamRejected    = fmt.Errorf("provider rejected request")
	ErrUpstreamUnavailable = fmt.Errorf("provider unavailable")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ConfigError reports credentials or settings that are required but unset.
//
// It matches [ErrConfig] with [errors.Is].
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: missing %s", ErrConfig, strings.Join(e.Missing, ", "))
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// RejectedError carries a non-2xx provider response.
//
// Body is truncated with [Truncate] before it is stored so it is safe to log.
// It matches [ErrUpstreamRejected] with [errors.Is].
type RejectedError struct {
	Op     string
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %v: status %d", e.Op, ErrUpstreamRejected, e.Status)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrUpstreamRejected
}

// Transient reports whether the provider failed on its side (5xx) and one retry is acceptable.
func (e *RejectedError) Transient() bool {
	return e.Status >= 500
}

// Unavailable wraps err as an [ErrUpstreamUnavailable] for op.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}

// StatusOf returns the provider status carried by err, or 0.
func StatusOf(err error) int {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Status
	}
	return 0
}
