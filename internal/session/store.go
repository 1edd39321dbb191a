// package session keeps per-browser OAuth state behind an opaque cookie id.
//
// Three backends implement [Store]: [MemoryStore] for a single process, the SQLite
// repository in internal/repositories for durable single-node deployments, and
// [RedisStore] when several proxy instances share sessions.
package session

import (
	"context"
	"time"

	"github.com/desertthunder/tunegate/internal/models"
)

// DefaultTTL is how long a session survives without being touched.
const DefaultTTL = 24 * time.Hour

// Store is the contract every session backend satisfies.
//
// Reads on an unknown or idle session report "absent" rather than an error.
// Writes on an unknown session return [shared.ErrSessionNotFound].
// Every operation on a live session refreshes its idle deadline.
type Store interface {
	Create(ctx context.Context) (string, error)
	Touch(ctx context.Context, id string) (bool, error)

	SetPendingState(ctx context.Context, id, state string) error
	// ConsumePendingState returns and clears the pending state in one atomic step.
	ConsumePendingState(ctx context.Context, id string) (string, bool, error)

	StoreTokens(ctx context.Context, id string, tokens models.TokenSet) error
	AccessToken(ctx context.Context, id string) (string, bool, error)
	RefreshToken(ctx context.Context, id string) (string, bool, error)
	IsExpired(ctx context.Context, id string) (bool, error)

	Destroy(ctx context.Context, id string) error
	// Prune removes idle sessions and reports how many were dropped.
	Prune(ctx context.Context) (int, error)
	Close() error
}

// Options tune a backend. Zero values fall back to defaults.
type Options struct {
	TTL           time.Duration
	PruneInterval time.Duration
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.PruneInterval <= 0 {
		o.PruneInterval = o.TTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
