package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/server/models"
)

// Repository reads and provisions accounts. It deliberately has no method that
// changes the balance: balances are written by the ledger package only.
type Repository interface {
	Create(ctx context.Context, userID string, now time.Time) error
	Get(ctx context.Context, userID string) (*models.Account, error)
	SetPaymentCustomerRef(ctx context.Context, userID, ref string, now time.Time) (bool, error)
	Count(ctx context.Context) (int64, error)
}
