// Package accounts provides the SQL-backed account store for PostgreSQL
// and SQLite.
package accounts

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

// SQLRepository implements account storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// Create inserts an empty account. A concurrent insert for the same user
// surfaces as a unique violation, which dbx.IsConflict recognizes.
func (r *SQLRepository) Create(ctx context.Context, userID string, now time.Time) error {
	query :=
		`INSERT INTO accounts (user_id, credits, total_credits_earned, created_at, updated_at)
		 VALUES ($1, 0, 0, $2, $3)`

	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), userID, now, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, userID string) (*models.Account, error) {
	query :=
		`SELECT user_id, credits, total_credits_earned, payment_customer_ref, created_at, updated_at
		 FROM accounts
		 WHERE user_id = $1`

	var a models.Account
	var ref sql.NullString
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), userID).
		Scan(&a.UserID, &a.Credits, &a.TotalCreditsEarned, &ref, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if ref.Valid {
		a.PaymentCustomerRef = &ref.String
	}
	return &a, nil
}

// SetPaymentCustomerRef stores ref only if the account has none yet and
// reports whether it was stored.
func (r *SQLRepository) SetPaymentCustomerRef(ctx context.Context, userID, ref string, now time.Time) (bool, error) {
	query :=
		`UPDATE accounts SET payment_customer_ref = $1, updated_at = $2
		 WHERE user_id = $3 AND payment_customer_ref IS NULL`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), ref, now, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *SQLRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
