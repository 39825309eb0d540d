package dbx

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const sqliteScheme = "sqlite://"

// Open opens a database handle for dsn and reports its dialect.
//
// postgres:// and postgresql:// DSNs are served by pgx. sqlite://<path> and
// file: URIs are served by modernc SQLite with a single connection, which
// serializes transactions the same way row locks do on PostgreSQL.
func Open(dsn string) (*sql.DB, Dialect, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		return db, DialectPostgres, nil

	case strings.HasPrefix(dsn, sqliteScheme), strings.HasPrefix(dsn, "file:"):
		name := strings.TrimPrefix(dsn, sqliteScheme)
		db, err := sql.Open("sqlite", withSQLitePragmas(name))
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		return db, DialectSQLite, nil
	}

	return nil, "", fmt.Errorf("unsupported database dsn scheme: %q", dsn)
}

func withSQLitePragmas(name string) string {
	sep := "?"
	if strings.Contains(name, "?") {
		sep = "&"
	}
	return name + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
