package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// User is a credential record.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser stores a new user with an already hashed password.
// It returns ErrUserExists when the username is taken.
func (d *DB) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}

	existing, err := d.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}

	now := time.Now().UTC().Truncate(time.Second)
	user := &User{Username: username, PasswordHash: passwordHash, CreatedAt: now}

	if d.driver == DriverPostgres {
		query := d.rebind(`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`)
		if err := d.db.QueryRowContext(ctx, query, username, passwordHash, now.Unix()).Scan(&user.ID); err != nil {
			return nil, fmt.Errorf("failed to insert user: %w", err)
		}
		return user, nil
	}

	result, err := d.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	user.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}
	return user, nil
}

// FindUserByUsername looks up a user by exact username.
// It returns nil, nil if no such user exists.
func (d *DB) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	query := d.rebind(`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`)

	var (
		user      User
		createdAt int64
	)
	err := d.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &user, nil
}

// ListUsers returns every user ordered by username.
// Password hashes are not loaded.
func (d *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, username, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			u         User
			createdAt int64
		)
		if err := rows.Scan(&u.ID, &u.Username, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.CreatedAt = time.Unix(createdAt, 0).UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// UpdatePassword replaces a user's password hash.
func (d *DB) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	query := d.rebind(`UPDATE users SET password_hash = ? WHERE username = ?`)
	result, err := d.db.ExecContext(ctx, query, passwordHash, username)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(result, username)
}

// DeleteUser removes a user. Existing sessions of that user expire normally.
func (d *DB) DeleteUser(ctx context.Context, username string) error {
	query := d.rebind(`DELETE FROM users WHERE username = ?`)
	result, err := d.db.ExecContext(ctx, query, username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(result, username)
}

func requireAffected(result sql.Result, username string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return nil
}
