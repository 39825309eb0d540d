package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophcredits/internal/dbx"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/packages"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/transactions"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Packages(db dbx.DBTX) packages.Repository
	Transactions(db dbx.DBTX) transactions.Repository
}
