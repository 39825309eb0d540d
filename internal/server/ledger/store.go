package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/dbx"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
)

func (l *Ledger) lockBalance(ctx context.Context, tx dbx.DBTX, userID string) (int64, error) {
	query := `SELECT credits FROM accounts WHERE user_id = $1` + l.dialect.ForUpdate()

	var credits int64
	if err := tx.QueryRowContext(ctx, l.dialect.Rebind(query), userID).Scan(&credits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return credits, nil
}

func (l *Ledger) writeBalance(ctx context.Context, tx dbx.DBTX, userID string, credits, earned int64, now time.Time) error {
	query :=
		`UPDATE accounts
		 SET credits = $1, total_credits_earned = total_credits_earned + $2, updated_at = $3
		 WHERE user_id = $4`

	res, err := tx.ExecContext(ctx, l.dialect.Rebind(query), credits, earned, now, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (l *Ledger) appendTransaction(ctx context.Context, tx dbx.DBTX, t *models.Transaction) error {
	query :=
		`INSERT INTO credit_transactions
		    (id, user_id, type, credits, balance_before, balance_after, description,
		     package_id, session_id, feature_ref, bonus_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	cols := models.FlattenMetadata(t.Metadata)
	_, err := tx.ExecContext(ctx, l.dialect.Rebind(query),
		t.ID, t.UserID, string(t.Type), t.Credits, t.BalanceBefore, t.BalanceAfter, t.Description,
		cols.PackageID, cols.SessionID, cols.FeatureRef, cols.BonusReason, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
