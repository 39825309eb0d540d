// Package packages reads the credit package catalog.
package packages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/dbx"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// Get returns the package regardless of its active flag.
func (r *SQLRepository) Get(ctx context.Context, packageID string) (*models.CreditPackage, error) {
	query :=
		`SELECT id, name, credits, amount_due, currency, active, sort_order
		 FROM credit_packages
		 WHERE id = $1`

	var p models.CreditPackage
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), packageID).
		Scan(&p.ID, &p.Name, &p.Credits, &p.AmountDue, &p.Currency, &p.Active, &p.SortOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &p, nil
}

func (r *SQLRepository) ListActive(ctx context.Context) ([]models.CreditPackage, error) {
	query :=
		`SELECT id, name, credits, amount_due, currency, active, sort_order
		 FROM credit_packages
		 WHERE active
		 ORDER BY sort_order, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.CreditPackage, 0)
	for rows.Next() {
		var p models.CreditPackage
		if err := rows.Scan(&p.ID, &p.Name, &p.Credits, &p.AmountDue, &p.Currency, &p.Active, &p.SortOrder); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
