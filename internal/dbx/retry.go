package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// PostgreSQL SQLSTATE codes treated as write contention.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// RetryPolicy bounds how many times a conflicting transaction is re-run.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration

	// OnRetry is called before every re-run with the conflict that caused it.
	OnRetry func(ctx context.Context, attempt uint64, err error)
}

// DefaultRetryPolicy is used when the caller has no configuration at hand.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 5, BaseDelay: 10 * time.Millisecond}

// WithRetryTx runs fn in a transaction like WithTx and re-runs the whole
// transaction with exponential backoff while it fails with a write conflict.
// Once retries are exhausted the conflict is returned wrapped in
// common.ErrPersistenceConflict. Non-conflict errors are returned at once.
func WithRetryTx(ctx context.Context, db *sql.DB, p RetryPolicy, fn func(ctx context.Context, tx DBTX) error) error {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	backoff := retry.WithMaxRetries(p.MaxRetries, retry.WithJitterPercent(20, retry.NewExponential(base)))

	var attempt uint64
	var lastErr error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if attempt > 0 && p.OnRetry != nil {
			p.OnRetry(ctx, attempt, lastErr)
		}
		attempt++

		err := WithTx(ctx, db, nil, fn)
		if err != nil && IsConflict(err) {
			lastErr = err
			return retry.RetryableError(err)
		}
		return err
	})

	if err != nil && IsConflict(err) {
		return fmt.Errorf("%w after %d attempts: %w", common.ErrPersistenceConflict, attempt, err)
	}
	return err
}

// IsConflict reports whether err is transient write contention that is safe
// to resolve by re-running the transaction from scratch.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
			return true
		}
		return false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch code {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}

	return false
}
