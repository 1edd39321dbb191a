// Package repositories implements SQLite persistence for proxy sessions.
//
// Key Implementations:
//   - [SessionRepository] : a [session.Store] backed by the sessions table
//
// A session row is live while last_touched_at is newer than now minus the idle TTL.
// Idle rows are ignored by every read and write and removed by [SessionRepository.Prune].
// Timestamps are unix milliseconds, and a NULL expires_at means the access token never expires.
//
// Pending-state consumption uses a compare-and-clear UPDATE so concurrent callbacks
// for one session cannot both observe the state.
package repositories
