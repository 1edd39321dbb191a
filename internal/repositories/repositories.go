// Package repositories provides SQLite persistence for proxy sessions.
//
// Timestamps are stored as unix milliseconds so comparisons happen in SQL
// without depending on the driver's time formatting.
package repositories

import (
	"database/sql"
	"time"
)

// millis converts t to unix milliseconds, mapping the zero time to NULL.
func millis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

// fromMillis is the inverse of [millis].
func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid || v.Int64 == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64)
}
