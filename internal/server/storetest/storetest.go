// Package storetest opens migrated in-memory SQLite databases for tests that
// need real transactions instead of mocks.
package storetest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/gophcredits/internal/dbx"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Open returns a fresh migrated database private to the test together with
// its repository manager. The database is closed on test cleanup.
func Open(t testing.TB) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, dialect, err := dbx.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewRepositoryManager(dialect)
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	return db, rm
}

// MustExec runs a raw statement, for tests that corrupt state on purpose.
func MustExec(t testing.TB, db *sql.DB, query string, args ...any) {
	t.Helper()
	_, err := db.Exec(query, args...)
	require.NoError(t, err)
}

// CountRows returns the number of rows matching a raw COUNT(*) query.
func CountRows(t testing.TB, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}
