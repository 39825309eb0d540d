package packages

import (
	"context"

	"github.com/dmitrijs2005/gophcredits/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, packageID string) (*models.CreditPackage, error)
	ListActive(ctx context.Context) ([]models.CreditPackage, error)
}
