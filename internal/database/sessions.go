package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRecord is a stored server-side session.
// Data is opaque to this package; the session store encodes it.
type SessionRecord struct {
	ID        string
	Name      string
	Data      []byte
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r *SessionRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// SaveSession inserts or replaces a session record.
func (d *DB) SaveSession(ctx context.Context, record *SessionRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	query := d.rebind(`
	INSERT INTO sessions (id, name, data, expires_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		data = excluded.data,
		expires_at = excluded.expires_at,
		updated_at = excluded.updated_at
	`)
	_, err := d.db.ExecContext(ctx, query,
		record.ID, record.Name, record.Data,
		record.ExpiresAt.Unix(), record.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession loads a session by ID.
// It returns nil, nil if the session does not exist.
func (d *DB) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	query := d.rebind(`SELECT id, name, data, expires_at, updated_at FROM sessions WHERE id = ?`)

	var (
		rec                  SessionRecord
		expiresAt, updatedAt int64
	)
	err := d.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Name, &rec.Data, &expiresAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	rec.ExpiresAt = time.Unix(expiresAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (d *DB) DeleteSession(ctx context.Context, id string) error {
	query := d.rebind(`DELETE FROM sessions WHERE id = ?`)
	if _, err := d.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired at or before now
// and returns how many were removed.
func (d *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	query := d.rebind(`DELETE FROM sessions WHERE expires_at <= ?`)
	result, err := d.db.ExecContext(ctx, query, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// CountSessions returns the number of stored sessions, expired or not.
func (d *DB) CountSessions(ctx context.Context) (int64, error) {
	var n int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}
