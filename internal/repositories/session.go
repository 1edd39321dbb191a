package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/session"
	"github.com/desertthunder/tunegate/internal/shared"
)

var _ session.Store = (*SessionRepository)(nil)

// SessionRepository implements [session.Store] on the sessions table.
//
// A row is live while last_touched_at is newer than now - ttl. Idle rows are
// invisible to every operation and removed by [SessionRepository.Prune].
type SessionRepository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSessionRepository creates a [SessionRepository]. Close closes db.
func NewSessionRepository(db *sql.DB, opts session.Options) *SessionRepository {
	if opts.TTL <= 0 {
		opts.TTL = session.DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionRepository{db: db, ttl: opts.TTL, now: opts.Now}
}

// clock returns now and the idle cutoff, both in unix milliseconds.
func (r *SessionRepository) clock() (now, cutoff int64) {
	t := r.now()
	return t.UnixMilli(), t.Add(-r.ttl).UnixMilli()
}

// Create inserts an empty session with a generated ID
func (r *SessionRepository) Create(ctx context.Context) (string, error) {
	id := shared.GenerateID()
	now, _ := r.clock()

	query := `INSERT INTO sessions (id, created_at, last_touched_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, id, now, now); err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return id, nil
}

func (r *SessionRepository) Touch(ctx context.Context, id string) (bool, error) {
	now, cutoff := r.clock()
	query := `UPDATE sessions SET last_touched_at = ? WHERE id = ? AND last_touched_at > ?`
	return r.update(ctx, query, now, id, cutoff)
}

func (r *SessionRepository) SetPendingState(ctx context.Context, id, state string) error {
	now, cutoff := r.clock()
	query := `
		UPDATE sessions
		SET csrf_state = ?, last_touched_at = ?
		WHERE id = ? AND last_touched_at > ?
	`
	ok, err := r.update(ctx, query, state, now, id, cutoff)
	if err != nil {
		return fmt.Errorf("failed to set pending state: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}

// ConsumePendingState reads the state and clears it with a compare-and-clear
// update, so of several concurrent callers only one observes the value.
func (r *SessionRepository) ConsumePendingState(ctx context.Context, id string) (string, bool, error) {
	s, err := r.load(ctx, id)
	if err != nil || s == nil || s.CSRFState == "" {
		return "", false, err
	}

	query := `UPDATE sessions SET csrf_state = NULL WHERE id = ? AND csrf_state = ?`
	ok, err := r.update(ctx, query, id, s.CSRFState)
	if err != nil {
		return "", false, fmt.Errorf("failed to consume pending state: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return s.CSRFState, true, nil
}

// StoreTokens writes tokens, keeping the stored refresh token when none is supplied.
func (r *SessionRepository) StoreTokens(ctx context.Context, id string, tokens models.TokenSet) error {
	now, cutoff := r.clock()
	query := `
		UPDATE sessions
		SET access_token = ?,
			refresh_token = COALESCE(NULLIF(?, ''), refresh_token),
			expires_at = ?,
			token_type = ?,
			scope = ?,
			last_touched_at = ?
		WHERE id = ? AND last_touched_at > ?
	`
	ok, err := r.update(ctx, query,
		tokens.AccessToken, tokens.RefreshToken, millis(tokens.ExpiresAt), tokens.TokenType, tokens.Scope,
		now, id, cutoff)
	if err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}

func (r *SessionRepository) AccessToken(ctx context.Context, id string) (string, bool, error) {
	s, err := r.load(ctx, id)
	if err != nil || s == nil {
		return "", false, err
	}
	return s.AccessToken, s.AccessToken != "", nil
}

func (r *SessionRepository) RefreshToken(ctx context.Context, id string) (string, bool, error) {
	s, err := r.load(ctx, id)
	if err != nil || s == nil {
		return "", false, err
	}
	return s.RefreshToken, s.RefreshToken != "", nil
}

func (r *SessionRepository) IsExpired(ctx context.Context, id string) (bool, error) {
	s, err := r.load(ctx, id)
	if err != nil || s == nil {
		return true, err
	}
	return s.Expired(r.now()), nil
}

// Get returns the live session with the given ID without touching it.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	_, cutoff := r.clock()
	query := `
		SELECT id, csrf_state, access_token, refresh_token, token_type, scope, expires_at, created_at, last_touched_at
		FROM sessions
		WHERE id = ? AND last_touched_at > ?
	`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, id, cutoff))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) Destroy(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Prune deletes every idle session
func (r *SessionRepository) Prune(ctx context.Context) (int, error) {
	_, cutoff := r.clock()
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_touched_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

// Count returns the number of rows in the sessions table, idle ones included.
func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

func (r *SessionRepository) Close() error {
	return r.db.Close()
}

// load touches a live session and returns it, or nil when it is unknown or idle.
func (r *SessionRepository) load(ctx context.Context, id string) (*models.Session, error) {
	now, cutoff := r.clock()
	query := `
		UPDATE sessions
		SET last_touched_at = ?
		WHERE id = ? AND last_touched_at > ?
		RETURNING id, csrf_state, access_token, refresh_token, token_type, scope, expires_at, created_at, last_touched_at
	`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, now, id, cutoff))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) update(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var (
		s                                        models.Session
		state, access, refresh, tokenType, scope sql.NullString
		expiresAt, createdAt, lastTouchedAt      sql.NullInt64
	)

	err := row.Scan(&s.ID, &state, &access, &refresh, &tokenType, &scope, &expiresAt, &createdAt, &lastTouchedAt)
	if err != nil {
		return nil, err
	}

	s.CSRFState = state.String
	s.AccessToken = access.String
	s.RefreshToken = refresh.String
	s.TokenType = tokenType.String
	s.Scope = scope.String
	s.ExpiresAt = fromMillis(expiresAt)
	s.CreatedAt = fromMillis(createdAt)
	s.LastTouchedAt = fromMillis(lastTouchedAt)
	return &s, nil
}
