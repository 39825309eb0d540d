// Package transactions provides read access to the credit transaction log.
package transactions

import (
	"context"
	"fmt"

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

// ListByUser returns up to limit transactions of userID, newest first.
// A non-empty beforeID restricts the page to rows older than that id.
func (r *SQLRepository) ListByUser(ctx context.Context, userID, beforeID string, limit int) ([]models.Transaction, error) {
	query :=
		`SELECT id, user_id, type, credits, balance_before, balance_after, description,
		        package_id, session_id, feature_ref, bonus_reason, created_at
		 FROM credit_transactions
		 WHERE user_id = $1`
	args := []any{userID}

	if beforeID != "" {
		query += ` AND id < $2 ORDER BY id DESC LIMIT $3`
		args = append(args, beforeID, limit)
	} else {
		query += ` ORDER BY id DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Transaction, 0, limit)
	for rows.Next() {
		var t models.Transaction
		var cols models.MetadataColumns
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Type, &t.Credits, &t.BalanceBefore, &t.BalanceAfter, &t.Description,
			&cols.PackageID, &cols.SessionID, &cols.FeatureRef, &cols.BonusReason, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		if t.Metadata, err = cols.Metadata(t.Type); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// FindDivergences recomputes every account's balance and lifetime-earned
// counter from the log and returns the accounts where they differ.
func (r *SQLRepository) FindDivergences(ctx context.Context) ([]models.Divergence, error) {
	query :=
		`SELECT a.user_id,
		        a.credits, CAST(COALESCE(SUM(t.credits), 0) AS BIGINT),
		        a.total_credits_earned, CAST(COALESCE(SUM(CASE WHEN t.credits > 0 THEN t.credits ELSE 0 END), 0) AS BIGINT)
		 FROM accounts a
		 LEFT JOIN credit_transactions t ON t.user_id = a.user_id
		 GROUP BY a.user_id, a.credits, a.total_credits_earned
		 HAVING a.credits <> COALESCE(SUM(t.credits), 0)
		     OR a.total_credits_earned <> COALESCE(SUM(CASE WHEN t.credits > 0 THEN t.credits ELSE 0 END), 0)
		 ORDER BY a.user_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Divergence, 0)
	for rows.Next() {
		var d models.Divergence
		if err := rows.Scan(&d.UserID, &d.CachedCredits, &d.LedgerCredits, &d.CachedTotalEarned, &d.LedgerTotalEarned); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
