package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// TransactionPage is one page of history. Cursor is set when HasMore is and
// is passed back to fetch the next, older page.
type TransactionPage struct {
	Items   []models.Transaction
	HasMore bool
	Cursor  string
}

type HistoryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewHistoryService(db *sql.DB, m repomanager.RepositoryManager) *HistoryService {
	return &HistoryService{db: db, repomanager: m}
}

// ListTransactions returns the transactions of userID newest first. A limit
// outside 1..MaxHistoryLimit is clamped, zero meaning DefaultHistoryLimit.
func (s *HistoryService) ListTransactions(ctx context.Context, userID string, limit int, cursor string) (*TransactionPage, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	if cursor != "" {
		id, err := uuid.Parse(cursor)
		if err != nil {
			return nil, common.ErrInvalidCursor
		}
		cursor = id.String()
	}

	items, err := s.repomanager.Transactions(s.db).ListByUser(ctx, userID, cursor, limit+1)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}

	page := &TransactionPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
		page.Cursor = page.Items[limit-1].ID
	}
	return page, nil
}
