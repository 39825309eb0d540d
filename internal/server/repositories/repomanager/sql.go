// Package repomanager provides the concrete RepositoryManager for the SQL
// backends, wiring together repository constructors and schema migrations
// (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/gophcredits/internal/dbx"
	"github.com/dmitrijs2005/gophcredits/internal/server/migrations"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/packages"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/transactions"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager vends repositories for one SQL dialect and exposes a
// schema migration hook.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

// NewRepositoryManager constructs a RepositoryManager for the given dialect.
func NewRepositoryManager(dialect dbx.Dialect) RepositoryManager {
	return &SQLRepositoryManager{dialect: dialect}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect { return m.dialect }

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewSQLRepository(db, m.dialect)
}

// Sessions returns a sessions.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(db, m.dialect)
}

// Packages returns a packages.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Packages(db dbx.DBTX) packages.Repository {
	return packages.NewSQLRepository(db, m.dialect)
}

// Transactions returns a transactions.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Transactions(db dbx.DBTX) transactions.Repository {
	return transactions.NewSQLRepository(db, m.dialect)
}

type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

// newMigrator is a seam for testing goose.NewProvider.
var newMigrator = func(dialect goose.Dialect, db *sql.DB, fsys fs.FS) (migrator, error) {
	return goose.NewProvider(dialect, db, fsys)
}

// RunMigrations applies the embedded migrations of the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	var dialect goose.Dialect
	switch m.dialect {
	case dbx.DialectPostgres:
		dialect = goose.DialectPostgres
	case dbx.DialectSQLite:
		dialect = goose.DialectSQLite3
	default:
		return fmt.Errorf("no migrations for dialect %q", m.dialect)
	}

	fsys, err := fs.Sub(migrations.Migrations, string(m.dialect))
	if err != nil {
		return err
	}

	p, err := newMigrator(dialect, db, fsys)
	if err != nil {
		return err
	}
	if _, err := p.Up(ctx); err != nil {
		return err
	}
	return nil
}
