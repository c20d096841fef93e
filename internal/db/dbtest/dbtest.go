// Package dbtest opens throwaway migrated databases for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AdamOzgary/blog/internal/db"
)

// Open returns a migrated database living in t.TempDir.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	conn, err := db.Open(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.Migrate(context.Background(), conn))
	return conn
}

// InsertUser adds a bare user row and returns its id. The password hash is not
// a valid bcrypt hash; use identity.Service when authentication matters.
func InsertUser(t testing.TB, conn *sql.DB, username string) int64 {
	t.Helper()

	res, err := conn.Exec(`INSERT INTO users(name, username, email, password_hash, created_at)
		VALUES(?, ?, ?, 'x', CURRENT_TIMESTAMP)`, username, username, username+"@example.com")
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func InsertCategory(t testing.TB, conn *sql.DB, name string) int64 {
	t.Helper()

	res, err := conn.Exec(`INSERT INTO categories(name) VALUES(?)`, name)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}
