package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/dbx"
	"github.com/dmitrijs2005/gophcredits/internal/logging"
	"github.com/dmitrijs2005/gophcredits/internal/server/config"
	"github.com/dmitrijs2005/gophcredits/internal/server/ledger"
	"github.com/dmitrijs2005/gophcredits/internal/server/metrics"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/repomanager"
)

// UsageService charges credits for feature usage.
type UsageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ledger      *ledger.Ledger
	accounts    *AccountService
	retry       dbx.RetryPolicy
	log         logging.Logger
	metrics     *metrics.Metrics
}

func NewUsageService(db *sql.DB, m repomanager.RepositoryManager, accounts *AccountService, cfg *config.Config,
	log logging.Logger, mt *metrics.Metrics) *UsageService {
	log = log.With("module", "usage")
	return &UsageService{
		db:          db,
		repomanager: m,
		ledger:      ledger.New(m.Dialect()),
		accounts:    accounts,
		retry:       retryPolicy(cfg, log, mt, "usage"),
		log:         log,
		metrics:     mt,
	}
}

// Debit takes amount credits from userID for featureRef. It fails with
// common.ErrInsufficientCredits, leaving the ledger untouched, when the
// balance does not cover amount.
func (s *UsageService) Debit(ctx context.Context, userID string, amount int64, featureRef string) (*models.Transaction, error) {
	switch {
	case userID == "":
		return nil, fmt.Errorf("%w: missing user id", common.ErrorValidation)
	case amount <= 0:
		return nil, fmt.Errorf("%w: amount must be positive", common.ErrorValidation)
	case featureRef == "":
		return nil, fmt.Errorf("%w: missing feature reference", common.ErrorValidation)
	}

	var provisioned *models.Account
	var debited *models.Transaction
	err := dbx.WithRetryTx(ctx, s.db, s.retry, func(ctx context.Context, tx dbx.DBTX) error {
		provisioned, debited = nil, nil

		acct, created, err := s.accounts.GetOrCreateTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if created {
			provisioned = acct
		}

		debited, err = s.ledger.ApplyDelta(ctx, tx, ledger.Entry{
			UserID:      userID,
			Delta:       -amount,
			Type:        models.TransactionUsage,
			Description: fmt.Sprintf("Used %s", featureRef),
			Metadata:    models.UsageMetadata{FeatureRef: featureRef},
		})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrInsufficientCredits) {
			s.metrics.InsufficientCredits.Inc()
			s.log.Info(ctx, "debit rejected", "user_id", userID, "amount", amount, "feature_ref", featureRef)
		}
		return nil, err
	}

	if provisioned != nil {
		s.accounts.RecordProvisioned(ctx, provisioned)
	}
	s.metrics.LedgerEntries.WithLabelValues(string(models.TransactionUsage)).Inc()
	s.log.Debug(ctx, "debit applied", "user_id", userID, "amount", amount, "feature_ref", featureRef,
		"balance_after", debited.BalanceAfter)
	return debited, nil
}
