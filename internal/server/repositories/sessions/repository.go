package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/server/models"
)

// Repository persists checkout sessions. Transitions are guarded by the
// current status so a session leaves pending at most once.
type Repository interface {
	Create(ctx context.Context, s *models.CheckoutSession) error
	Get(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	GetForUpdate(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	MarkCompleted(ctx context.Context, sessionID string, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, sessionID string, at time.Time) (bool, error)
}
