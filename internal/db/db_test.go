package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenForTestingAppliesMigrations(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	var tableName string

	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='users'").Scan(&tableName)
	assert.NoError(t, err)
	assert.Equal(t, "users", tableName)

	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='places'").Scan(&tableName)
	assert.NoError(t, err)
	assert.Equal(t, "places", tableName)
}

func TestOpenForTestingIsolated(t *testing.T) {
	first, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	second, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	_, err = first.Exec("INSERT INTO users (username, password_hash) VALUES ('ann', 'x')")
	require.NoError(t, err)

	var n int
	require.NoError(t, second.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Zero(t, n)
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec("INSERT INTO places (user_id, name) VALUES (999, 'Nowhere')")
	assert.Error(t, err)
}

func TestOpenFileReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wishlist.db")

	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO users (username, password_hash) VALUES ('ann', 'x')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(t, 1, n)
}
