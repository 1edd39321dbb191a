package testing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/session"
	"github.com/desertthunder/tunegate/internal/shared"
)

// ContractTTL is the idle lifetime every store under contract test is built with.
const ContractTTL = 24 * time.Hour

// StoreFactory builds a fresh store for one subtest.
//
// The returned hook, when non-nil, is called with every clock advance so backends
// with their own notion of time (key TTLs) can follow.
type StoreFactory func(t *testing.T, opts session.Options) (session.Store, func(time.Duration))

type storeHarness struct {
	store   session.Store
	clock   *Clock
	advance func(time.Duration)
}

func (h storeHarness) Advance(d time.Duration) {
	h.clock.Advance(d)
	if h.advance != nil {
		h.advance(d)
	}
}

// RunStoreContract exercises the behaviour every [session.Store] must share.
func RunStoreContract(t *testing.T, factory StoreFactory) {
	ctx := context.Background()

	setup := func(t *testing.T) storeHarness {
		t.Helper()
		clock := NewClock()
		store, advance := factory(t, session.Options{TTL: ContractTTL, Now: clock.Now})
		t.Cleanup(func() { store.Close() })
		return storeHarness{store: store, clock: clock, advance: advance}
	}

	create := func(t *testing.T, store session.Store) string {
		t.Helper()
		id, err := store.Create(ctx)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		return id
	}

	t.Run("Create", func(t *testing.T) {
		h := setup(t)
		a := create(t, h.store)
		b := create(t, h.store)

		if a == "" || b == "" {
			t.Fatal("expected non-empty session ids")
		}
		if a == b {
			t.Errorf("expected distinct ids, got %s twice", a)
		}

		ok, err := h.store.Touch(ctx, a)
		if err != nil || !ok {
			t.Errorf("Touch() = %v, %v; want true, nil", ok, err)
		}
	})

	t.Run("UnknownSessionReadsAreAbsent", func(t *testing.T) {
		h := setup(t)
		const id = "no-such-session"

		if ok, err := h.store.Touch(ctx, id); err != nil || ok {
			t.Errorf("Touch() = %v, %v; want false, nil", ok, err)
		}
		if _, ok, err := h.store.AccessToken(ctx, id); err != nil || ok {
			t.Errorf("AccessToken() present = %v, err = %v", ok, err)
		}
		if _, ok, err := h.store.RefreshToken(ctx, id); err != nil || ok {
			t.Errorf("RefreshToken() present = %v, err = %v", ok, err)
		}
		if _, ok, err := h.store.ConsumePendingState(ctx, id); err != nil || ok {
			t.Errorf("ConsumePendingState() present = %v, err = %v", ok, err)
		}
		if expired, err := h.store.IsExpired(ctx, id); err != nil || !expired {
			t.Errorf("IsExpired() = %v, %v; want true, nil", expired, err)
		}
	})

	t.Run("UnknownSessionWritesFail", func(t *testing.T) {
		h := setup(t)
		const id = "no-such-session"

		if err := h.store.SetPendingState(ctx, id, "state"); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("SetPendingState() error = %v, want %v", err, shared.ErrSessionNotFound)
		}
		if err := h.store.StoreTokens(ctx, id, models.TokenSet{AccessToken: "a"}); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("StoreTokens() error = %v, want %v", err, shared.ErrSessionNotFound)
		}
	})

	t.Run("PendingStateIsConsumedOnce", func(t *testing.T) {
		h := setup(t)
		id := create(t, h.store)

		if err := h.store.SetPendingState(ctx, id, "first"); err != nil {
			t.Fatalf("SetPendingState() error = %v", err)
		}
		if err := h.store.SetPendingState(ctx, id, "second"); err != nil {
			t.Fatalf("SetPendingState() error = %v", err)
		}

		state, ok, err := h.store.ConsumePendingState(ctx, id)
		if err != nil || !ok || state != "second" {
			t.Errorf("ConsumePendingState() = %q, %v, %v; want second, true, nil", state, ok, err)
		}

		state, ok, err = h.store.ConsumePendingState(ctx, id)
		if err != nil || ok || state != "" {
			t.Errorf("second ConsumePendingState() = %q, %v, %v; want absent", state, ok, err)
		}
	})

	t.Run("ConcurrentConsumeYieldsOneWinner", func(t *testing.T) {
		h := setup(t)
		id := create(t, h.store)
		if err := h.store.SetPendingState(ctx, id, "only-once"); err != nil {
			t.Fatalf("SetPendingState() error = %v", err)
		}

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, err := h.store.ConsumePendingState(ctx, id); err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if got := wins.Load(); got != 1 {
			t.Errorf("expected exactly one consumer to win, got %d", got)
		}
	})

	t.Run("StoreTokens", func(t *testing.T) {
		h := setup(t)
		id := create(t, h.store)
		expiresAt := h.clock.Now().Add(time.Hour)

		initial := models.TokenSet{AccessToken: "access-1", RefreshToken: "refresh-1", TokenType: "Bearer", ExpiresAt: expiresAt}
		if err := h.store.StoreTokens(ctx, id, initial); err != nil {
			t.Fatalf("StoreTokens() error = %v", err)
		}

		if got, ok, _ := h.store.AccessToken(ctx, id); !ok || got != "access-1" {
			t.Errorf("AccessToken() = %q, %v; want access-1", got, ok)
		}
		if got, ok, _ := h.store.RefreshToken(ctx, id); !ok || got != "refresh-1" {
			t.Errorf("RefreshToken() = %q, %v; want refresh-1", got, ok)
		}

		t.Run("AbsentRefreshTokenIsKept", func(t *testing.T) {
			refreshed := models.TokenSet{AccessToken: "access-2", ExpiresAt: expiresAt}
			if err := h.store.StoreTokens(ctx, id, refreshed); err != nil {
				t.Fatalf("StoreTokens() error = %v", err)
			}
			if got, _, _ := h.store.AccessToken(ctx, id); got != "access-2" {
				t.Errorf("AccessToken() = %q, want access-2", got)
			}
			if got, ok, _ := h.store.RefreshToken(ctx, id); !ok || got != "refresh-1" {
				t.Errorf("RefreshToken() = %q, %v; want refresh-1 kept", got, ok)
			}
		})

		t.Run("RotatedRefreshTokenReplaces", func(t *testing.T) {
			rotated := models.TokenSet{AccessToken: "access-3", RefreshToken: "refresh-2", ExpiresAt: expiresAt}
			if err := h.store.StoreTokens(ctx, id, rotated); err != nil {
				t.Fatalf("StoreTokens() error = %v", err)
			}
			if got, _, _ := h.store.RefreshToken(ctx, id); got != "refresh-2" {
				t.Errorf("RefreshToken() = %q, want refresh-2", got)
			}
		})
	})

	t.Run("IsExpired", func(t *testing.T) {
		h := setup(t)
		id := create(t, h.store)

		if expired, _ := h.store.IsExpired(ctx, id); !expired {
			t.Error("a session without tokens should be expired")
		}

		tokens := models.TokenSet{AccessToken: "a", RefreshToken: "r", ExpiresAt: h.clock.Now().Add(time.Hour)}
		if err := h.store.StoreTokens(ctx, id, tokens); err != nil {
			t.Fatalf("StoreTokens() error = %v", err)
		}
		if expired, _ := h.store.IsExpired(ctx, id); expired {
			t.Error("expected a fresh token to be valid")
		}

		h.Advance(time.Hour)
		if expired, _ := h.store.IsExpired(ctx, id); !expired {
			t.Error("expected the token to expire at its deadline")
		}

		if err := h.store.StoreTokens(ctx, id, models.TokenSet{AccessToken: "b"}); err != nil {
			t.Fatalf("StoreTokens() error = %v", err)
		}
		if expired, _ := h.store.IsExpired(ctx, id); expired {
			t.Error("a token without an expiry should never expire")
		}
	})

	t.Run("IdleSessionsDisappear", func(t *testing.T) {
		h := setup(t)
		id := create(t, h.store)
		if err := h.store.StoreTokens(ctx, id, models.TokenSet{AccessToken: "a", RefreshToken: "r"}); err != nil {
			t.Fatalf("StoreTokens() error = %v", err)
		}

		h.Advance(ContractTTL + time.Second)

		if ok, _ := h.store.Touch(ctx, id); ok {
			t.Error("expected idle session to be gone")
		}
		if _, ok, _ := h.store.RefreshToken(ctx, id); ok {
			t.Error("expected idle session tokens to be gone")
		}
	})

	t.Run("TouchExtendsLifetime", func(t *testing.T) {
		h := setup(t)
		id := create(t, h.store)

		h.Advance(ContractTTL - time.Minute)
		if ok, _ := h.store.Touch(ctx, id); !ok {
			t.Fatal("expected session to be alive before its deadline")
		}

		h.Advance(ContractTTL - time.Minute)
		if ok, _ := h.store.Touch(ctx, id); !ok {
			t.Error("expected touch to push the deadline forward")
		}
	})

	t.Run("Destroy", func(t *testing.T) {
		h := setup(t)
		id := create(t, h.store)
		if err := h.store.StoreTokens(ctx, id, models.TokenSet{AccessToken: "a", RefreshToken: "r"}); err != nil {
			t.Fatalf("StoreTokens() error = %v", err)
		}
		if err := h.store.SetPendingState(ctx, id, "s"); err != nil {
			t.Fatalf("SetPendingState() error = %v", err)
		}

		if err := h.store.Destroy(ctx, id); err != nil {
			t.Fatalf("Destroy() error = %v", err)
		}

		if ok, _ := h.store.Touch(ctx, id); ok {
			t.Error("expected destroyed session to be gone")
		}
		if _, ok, _ := h.store.ConsumePendingState(ctx, id); ok {
			t.Error("expected pending state to be destroyed with the session")
		}
		if err := h.store.StoreTokens(ctx, id, models.TokenSet{AccessToken: "x"}); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("StoreTokens() after Destroy error = %v, want %v", err, shared.ErrSessionNotFound)
		}
		if err := h.store.Destroy(ctx, "no-such-session"); err != nil {
			t.Errorf("Destroy() of unknown session error = %v", err)
		}
	})

	t.Run("Prune", func(t *testing.T) {
		h := setup(t)
		stale := create(t, h.store)
		h.Advance(ContractTTL / 2)
		fresh := create(t, h.store)
		h.Advance(ContractTTL/2 + time.Second)

		if _, err := h.store.Prune(ctx); err != nil {
			t.Fatalf("Prune() error = %v", err)
		}

		if ok, _ := h.store.Touch(ctx, stale); ok {
			t.Error("expected stale session to be pruned")
		}
		if ok, _ := h.store.Touch(ctx, fresh); !ok {
			t.Error("expected fresh session to survive pruning")
		}
	})
}
