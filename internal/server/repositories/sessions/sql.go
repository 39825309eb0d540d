// Package sessions stores checkout sessions and performs their guarded
// status transitions.
package sessions

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

const selectColumns = `SELECT session_id, user_id, package_id, credits, amount_due, currency, status,
		        created_at, completed_at, expired_at
		 FROM checkout_sessions
		 WHERE session_id = $1`

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, s *models.CheckoutSession) error {
	query :=
		`INSERT INTO checkout_sessions (session_id, user_id, package_id, credits, amount_due, currency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		s.ID, s.UserID, s.PackageID, s.Credits, s.AmountDue, s.Currency, string(s.Status), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	return r.get(ctx, selectColumns, sessionID)
}

// GetForUpdate reads the session and, on PostgreSQL, locks the row until the
// surrounding transaction ends.
func (r *SQLRepository) GetForUpdate(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	return r.get(ctx, selectColumns+r.dialect.ForUpdate(), sessionID)
}

func (r *SQLRepository) get(ctx context.Context, query, sessionID string) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	var completedAt, expiredAt sql.NullTime

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), sessionID).Scan(
		&s.ID, &s.UserID, &s.PackageID, &s.Credits, &s.AmountDue, &s.Currency, &s.Status,
		&s.CreatedAt, &completedAt, &expiredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	if expiredAt.Valid {
		s.ExpiredAt = &expiredAt.Time
	}
	return &s, nil
}

// MarkCompleted moves a pending session to completed. It reports false when
// the session was not pending.
func (r *SQLRepository) MarkCompleted(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	query :=
		`UPDATE checkout_sessions SET status = 'completed', completed_at = $1
		 WHERE session_id = $2 AND status = 'pending'`

	return r.transition(ctx, query, at, sessionID)
}

// MarkExpired moves a pending session to expired. It reports false when the
// session was not pending.
func (r *SQLRepository) MarkExpired(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	query :=
		`UPDATE checkout_sessions SET status = 'expired', expired_at = $1
		 WHERE session_id = $2 AND status = 'pending'`

	return r.transition(ctx, query, at, sessionID)
}

func (r *SQLRepository) transition(ctx context.Context, query string, at time.Time, sessionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), at, sessionID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}
