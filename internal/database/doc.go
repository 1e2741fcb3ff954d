// Package database provides the credential and session store for failsight.
//
// Two tables are managed:
//   - users: login names and bcrypt password hashes
//   - sessions: server-side session payloads keyed by an opaque ID
//
// SQLite (modernc.org/sqlite, CGO-free) is the default backend and lives in a
// single file under the XDG data directory. Postgres is available through
// pgx's database/sql driver for deployments that share a credential store.
// Queries are written with '?' placeholders and rebound for Postgres.
package database
