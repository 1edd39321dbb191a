package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/shared"
)

// Authorizer builds authorization redirects and redeems authorization codes.
type Authorizer interface {
	AuthorizationURL(state string) (string, error)
	Exchange(ctx context.Context, code, redirectURI string) (*models.TokenSet, error)
	RedirectURI() string
	Scopes() []string
}

// Refresher trades a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.TokenSet, error)
}

// Catalog reads the featured playlists listing with a bearer token.
type Catalog interface {
	FeaturedPlaylists(ctx context.Context, accessToken string) (*models.ResultSet, error)
}

// retryInterval is the base delay before the single retry of a transient failure.
var retryInterval = 200 * time.Millisecond

// retryTransient runs fn and, when it fails with a provider 5xx, runs it exactly once more.
//
// Any other failure is returned immediately.
func retryTransient[T any](ctx context.Context, logger *log.Logger, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInterval
	b.Reset()

	result, err := backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !isTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(2),
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Warn("retrying after transient provider failure", "op", op, "delay", d, "status", shared.StatusOf(err))
		}),
	)
	if err == nil {
		return result, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if !errors.Is(err, shared.ErrUpstreamRejected) && !errors.Is(err, shared.ErrUpstreamUnavailable) {
		err = shared.Unavailable(op, err)
	}
	return result, err
}

func isTransient(err error) bool {
	var rejected *shared.RejectedError
	return errors.As(err, &rejected) && rejected.Transient()
}
