// Package ledger is the only writer of account balances. Every change to
// accounts.credits goes through Ledger.ApplyDelta, which appends the
// matching immutable transaction in the same database transaction.
//
// The SQL that mutates balances is unexported; no other package can issue it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/dbx"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
	"github.com/google/uuid"
)

// Entry describes one balance change.
type Entry struct {
	UserID      string
	Delta       int64
	Type        models.TransactionType
	Description string
	Metadata    models.Metadata
}

type Ledger struct {
	dialect dbx.Dialect
	now     func() time.Time
	newID   func() (uuid.UUID, error)
}

func New(dialect dbx.Dialect) *Ledger {
	return &Ledger{
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:   uuid.NewV7,
	}
}

// ApplyDelta changes the balance of e.UserID by e.Delta and appends the
// transaction record, both through tx. The caller owns the transaction and
// must roll it back on any error so that neither write becomes visible.
//
// The account row is locked before it is read, so concurrent callers on the
// same account are serialized. A usage entry that would take the balance
// below zero fails with common.ErrInsufficientCredits before anything is
// written. A missing account yields common.ErrorNotFound.
func (l *Ledger) ApplyDelta(ctx context.Context, tx dbx.DBTX, e Entry) (*models.Transaction, error) {
	if err := e.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	before, err := l.lockBalance(ctx, tx, e.UserID)
	if err != nil {
		return nil, err
	}

	after := before + e.Delta
	if e.Type == models.TransactionUsage && after < 0 {
		return nil, common.ErrInsufficientCredits
	}

	var earned int64
	if e.Delta > 0 {
		earned = e.Delta
	}

	now := l.now()
	if err := l.writeBalance(ctx, tx, e.UserID, after, earned, now); err != nil {
		return nil, err
	}

	id, err := l.newID()
	if err != nil {
		return nil, fmt.Errorf("transaction id: %w", err)
	}

	t := &models.Transaction{
		ID:            id.String(),
		UserID:        e.UserID,
		Type:          e.Type,
		Credits:       e.Delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   e.Description,
		Metadata:      e.Metadata,
		CreatedAt:     now,
	}
	if err := l.appendTransaction(ctx, tx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (e Entry) validate() error {
	if e.UserID == "" {
		return errors.New("missing user id")
	}
	switch e.Type {
	case models.TransactionUsage:
		if e.Delta >= 0 {
			return errors.New("usage must debit")
		}
	case models.TransactionPurchase, models.TransactionBonus:
		if e.Delta <= 0 {
			return fmt.Errorf("%s must credit", e.Type)
		}
	default:
		return fmt.Errorf("unknown transaction type %q", e.Type)
	}
	return models.ValidateMetadata(e.Type, e.Metadata)
}
