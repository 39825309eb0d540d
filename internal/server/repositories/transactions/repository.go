package transactions

import (
	"context"

	"github.com/dmitrijs2005/gophcredits/internal/server/models"
)

// Repository is the read side of the transaction log. Appends happen in the
// ledger package.
type Repository interface {
	ListByUser(ctx context.Context, userID, beforeID string, limit int) ([]models.Transaction, error)
	FindDivergences(ctx context.Context) ([]models.Divergence, error)
}
