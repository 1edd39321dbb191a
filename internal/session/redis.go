package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/shared"
	"github.com/redis/go-redis/v9"
)

// Every script takes KEYS[1] = session hash, KEYS[2] = pending state,
// ARGV[1] = now (unix ms), ARGV[2] = ttl (ms), and is a no-op when the hash is gone.
var (
	touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], 'last_touched_at', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
if redis.call('EXISTS', KEYS[2]) == 1 then redis.call('PEXPIRE', KEYS[2], ARGV[2]) end
return 1
`)

	loadScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return false end
redis.call('HSET', KEYS[1], 'last_touched_at', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
if redis.call('EXISTS', KEYS[2]) == 1 then redis.call('PEXPIRE', KEYS[2], ARGV[2]) end
return redis.call('HGETALL', KEYS[1])
`)

	setStateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], 'last_touched_at', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
redis.call('SET', KEYS[2], ARGV[3], 'PX', ARGV[2])
return 1
`)

	consumeStateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  redis.call('DEL', KEYS[2])
  return false
end
redis.call('HSET', KEYS[1], 'last_touched_at', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
local state = redis.call('GET', KEYS[2])
redis.call('DEL', KEYS[2])
return state
`)

	// ARGV[3..7] = access token, refresh token, expires_at, token type, scope.
	storeTokensScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], 'last_touched_at', ARGV[1], 'access_token', ARGV[3], 'expires_at', ARGV[5], 'token_type', ARGV[6], 'scope', ARGV[7])
if ARGV[4] ~= '' then redis.call('HSET', KEYS[1], 'refresh_token', ARGV[4]) end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
if redis.call('EXISTS', KEYS[2]) == 1 then redis.call('PEXPIRE', KEYS[2], ARGV[2]) end
return 1
`)
)

// RedisStore keeps each session in a hash at "<prefix>session:{<id>}" and its pending
// state at "<prefix>state:{<id>}". Idle expiry is delegated to key TTLs.
//
// Both keys share the {<id>} hash tag so the scripts touching them stay in one
// cluster slot.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, cfg shared.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisStore wraps client. Close closes the client.
func NewRedisStore(client redis.UniversalClient, prefix string, opts Options) *RedisStore {
	opts = opts.withDefaults()
	return &RedisStore{client: client, prefix: prefix, ttl: opts.TTL, now: opts.Now}
}

func (r *RedisStore) keys(id string) []string {
	tag := "{" + id + "}"
	return []string{r.prefix + "session:" + tag, r.prefix + "state:" + tag}
}

func (r *RedisStore) args(extra ...any) []any {
	return append([]any{r.now().UnixMilli(), r.ttl.Milliseconds()}, extra...)
}

func (r *RedisStore) Create(ctx context.Context) (string, error) {
	id := shared.GenerateID()
	key := r.keys(id)[0]
	now := r.now().UnixMilli()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "id", id, "created_at", now, "last_touched_at", now)
		pipe.PExpire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

func (r *RedisStore) Touch(ctx context.Context, id string) (bool, error) {
	n, err := touchScript.Run(ctx, r.client, r.keys(id), r.args()...).Int()
	if err != nil {
		return false, fmt.Errorf("failed to touch session: %w", err)
	}
	return n == 1, nil
}

func (r *RedisStore) SetPendingState(ctx context.Context, id, state string) error {
	n, err := setStateScript.Run(ctx, r.client, r.keys(id), r.args(state)...).Int()
	if err != nil {
		return fmt.Errorf("failed to set pending state: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}

func (r *RedisStore) ConsumePendingState(ctx context.Context, id string) (string, bool, error) {
	state, err := consumeStateScript.Run(ctx, r.client, r.keys(id), r.args()...).Text()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to consume pending state: %w", err)
	}
	return state, state != "", nil
}

func (r *RedisStore) StoreTokens(ctx context.Context, id string, tokens models.TokenSet) error {
	var expiresAt int64
	if !tokens.ExpiresAt.IsZero() {
		expiresAt = tokens.ExpiresAt.UnixMilli()
	}
	args := r.args(tokens.AccessToken, tokens.RefreshToken, expiresAt, tokens.TokenType, tokens.Scope)

	n, err := storeTokensScript.Run(ctx, r.client, r.keys(id), args...).Int()
	if err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}

// load touches the session and returns its fields, or nil when it does not exist.
func (r *RedisStore) load(ctx context.Context, id string) (*models.Session, error) {
	fields, err := loadScript.Run(ctx, r.client, r.keys(id), r.args()...).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s := &models.Session{ID: id}
	for i := 0; i+1 < len(fields); i += 2 {
		value := fields[i+1]
		switch fields[i] {
		case "access_token":
			s.AccessToken = value
		case "refresh_token":
			s.RefreshToken = value
		case "token_type":
			s.TokenType = value
		case "scope":
			s.Scope = value
		case "expires_at":
			s.ExpiresAt = parseMillis(value)
		case "created_at":
			s.CreatedAt = parseMillis(value)
		case "last_touched_at":
			s.LastTouchedAt = parseMillis(value)
		}
	}
	return s, nil
}

func (r *RedisStore) AccessToken(ctx context.Context, id string) (string, bool, error) {
	s, err := r.load(ctx, id)
	if err != nil || s == nil {
		return "", false, err
	}
	return s.AccessToken, s.AccessToken != "", nil
}

func (r *RedisStore) RefreshToken(ctx context.Context, id string) (string, bool, error) {
	s, err := r.load(ctx, id)
	if err != nil || s == nil {
		return "", false, err
	}
	return s.RefreshToken, s.RefreshToken != "", nil
}

func (r *RedisStore) IsExpired(ctx context.Context, id string) (bool, error) {
	s, err := r.load(ctx, id)
	if err != nil {
		return true, err
	}
	if s == nil {
		return true, nil
	}
	return s.Expired(r.now()), nil
}

func (r *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.keys(id)...).Err(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// Prune is a no-op: redis expires idle keys itself.
func (r *RedisStore) Prune(ctx context.Context) (int, error) {
	return 0, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
