package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/shared"
	"github.com/patrickmn/go-cache"
)

type entry struct {
	mu        sync.Mutex
	session   models.Session
	destroyed bool
}

// MemoryStore keeps sessions in a process-local [cache.Cache].
//
// Each entry carries its own mutex so consume-and-clear and refresh-token
// preservation are atomic per session without a global lock.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates a [MemoryStore]. The cache janitor runs every opts.PruneInterval.
func NewMemoryStore(opts Options) *MemoryStore {
	opts = opts.withDefaults()
	return &MemoryStore{
		cache: cache.New(opts.TTL, opts.PruneInterval),
		ttl:   opts.TTL,
		now:   opts.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context) (string, error) {
	now := m.now()
	id := shared.GenerateID()
	e := &entry{session: models.Session{ID: id, CreatedAt: now, LastTouchedAt: now}}
	if err := m.cache.Add(id, e, cache.DefaultExpiration); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// with runs fn on the live session under its lock and touches it.
// It reports false when the session is unknown, destroyed or idle.
func (m *MemoryStore) with(id string, fn func(*models.Session)) bool {
	v, ok := m.cache.Get(id)
	if !ok {
		return false
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return false
	}

	now := m.now()
	if e.session.Idle(now, m.ttl) {
		e.destroyed = true
		m.cache.Delete(id)
		return false
	}

	if fn != nil {
		fn(&e.session)
	}
	e.session.LastTouchedAt = now
	m.cache.Set(id, e, cache.DefaultExpiration)
	return true
}

func (m *MemoryStore) Touch(ctx context.Context, id string) (bool, error) {
	return m.with(id, nil), nil
}

func (m *MemoryStore) SetPendingState(ctx context.Context, id, state string) error {
	if !m.with(id, func(s *models.Session) { s.CSRFState = state }) {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}

func (m *MemoryStore) ConsumePendingState(ctx context.Context, id string) (string, bool, error) {
	var state string
	m.with(id, func(s *models.Session) {
		state = s.CSRFState
		s.CSRFState = ""
	})
	return state, state != "", nil
}

func (m *MemoryStore) StoreTokens(ctx context.Context, id string, tokens models.TokenSet) error {
	if !m.with(id, func(s *models.Session) { s.Apply(tokens) }) {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}

func (m *MemoryStore) AccessToken(ctx context.Context, id string) (string, bool, error) {
	var token string
	m.with(id, func(s *models.Session) { token = s.AccessToken })
	return token, token != "", nil
}

func (m *MemoryStore) RefreshToken(ctx context.Context, id string) (string, bool, error) {
	var token string
	m.with(id, func(s *models.Session) { token = s.RefreshToken })
	return token, token != "", nil
}

func (m *MemoryStore) IsExpired(ctx context.Context, id string) (bool, error) {
	expired := true
	now := m.now()
	m.with(id, func(s *models.Session) { expired = s.Expired(now) })
	return expired, nil
}

func (m *MemoryStore) Destroy(ctx context.Context, id string) error {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil
	}
	e := v.(*entry)
	e.mu.Lock()
	e.destroyed = true
	m.cache.Delete(id)
	e.mu.Unlock()
	return nil
}

// Prune drops idle sessions by the store clock, then lets the cache clear anything past its own deadline.
func (m *MemoryStore) Prune(ctx context.Context) (int, error) {
	now := m.now()
	before := m.cache.ItemCount()
	for id, item := range m.cache.Items() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		e := item.Object.(*entry)
		e.mu.Lock()
		if !e.destroyed && e.session.Idle(now, m.ttl) {
			e.destroyed = true
			m.cache.Delete(id)
		}
		e.mu.Unlock()
	}
	m.cache.DeleteExpired()

	pruned := before - m.cache.ItemCount()
	if pruned < 0 {
		pruned = 0
	}
	return pruned, nil
}

// Close is a no-op; the janitor goroutine stops when the store is garbage collected.
func (m *MemoryStore) Close() error { return nil }

// Len returns the number of sessions currently held, including ones awaiting pruning.
func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}
