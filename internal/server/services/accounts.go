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
	"github.com/dmitrijs2005/gophcredits/internal/server/payments"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/repomanager"
)

const welcomeBonusReason = "welcome"

// AccountService provisions accounts and reads balances.
//
// The first access for a user creates the account with zero credits and
// applies the welcome bonus through the ledger in the same transaction, so
// the existence of the account row is what makes the bonus one-time.
type AccountService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	ledger       *ledger.Ledger
	gateway      payments.Gateway
	welcomeBonus int64
	retry        dbx.RetryPolicy
	log          logging.Logger
	metrics      *metrics.Metrics
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, gw payments.Gateway, cfg *config.Config,
	log logging.Logger, mt *metrics.Metrics) *AccountService {
	log = log.With("module", "accounts")
	return &AccountService{
		db:           db,
		repomanager:  m,
		ledger:       ledger.New(m.Dialect()),
		gateway:      gw,
		welcomeBonus: cfg.WelcomeBonusCredits,
		retry:        retryPolicy(cfg, log, mt, "get_or_create"),
		log:          log,
		metrics:      mt,
	}
}

// GetOrCreate returns the account of userID, provisioning it on first use.
// Concurrent first calls race on the primary key; the loser is re-run and
// finds the winner's account.
func (s *AccountService) GetOrCreate(ctx context.Context, userID string) (*models.Account, error) {
	var acct *models.Account
	var created bool
	err := dbx.WithRetryTx(ctx, s.db, s.retry, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		acct, created, err = s.GetOrCreateTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.RecordProvisioned(ctx, acct)
	}
	return acct, nil
}

// GetOrCreateTx is GetOrCreate joined to the caller's transaction. It reports
// whether the account was created by this call. The caller should pass the
// account to RecordProvisioned after committing.
func (s *AccountService) GetOrCreateTx(ctx context.Context, tx dbx.DBTX, userID string) (*models.Account, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("%w: missing user id", common.ErrorValidation)
	}

	repo := s.repomanager.Accounts(tx)
	acct, err := repo.Get(ctx, userID)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, fmt.Errorf("error reading account: %w", err)
	}

	if err := repo.Create(ctx, userID, now()); err != nil {
		return nil, false, fmt.Errorf("error creating account: %w", err)
	}

	if s.welcomeBonus > 0 {
		if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.Entry{
			UserID:      userID,
			Delta:       s.welcomeBonus,
			Type:        models.TransactionBonus,
			Description: "Welcome bonus",
			Metadata:    models.BonusMetadata{Reason: welcomeBonusReason},
		}); err != nil {
			return nil, false, fmt.Errorf("error applying welcome bonus: %w", err)
		}
	}

	acct, err = repo.Get(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("error reading account: %w", err)
	}
	return acct, true, nil
}

// RecordProvisioned logs and counts an account created by GetOrCreateTx once
// its transaction has committed.
func (s *AccountService) RecordProvisioned(ctx context.Context, acct *models.Account) {
	if s.welcomeBonus > 0 {
		s.metrics.LedgerEntries.WithLabelValues(string(models.TransactionBonus)).Inc()
	}
	s.log.Info(ctx, "account provisioned", "user_id", acct.UserID, "credits", acct.Credits)
}

// GetBalance returns the cached balance of userID. The first call for a user
// provisions the account.
func (s *AccountService) GetBalance(ctx context.Context, userID string) (*models.Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", common.ErrorValidation)
	}

	acct, err := s.repomanager.Accounts(s.db).Get(ctx, userID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error reading account: %w", err)
	}
	return s.GetOrCreate(ctx, userID)
}

// EnsurePaymentCustomer returns the processor customer reference of userID,
// creating it at the processor on first use. No transaction is held while the
// processor is called. If another request stored a reference in the meantime,
// that one wins and the freshly created customer is left unused.
func (s *AccountService) EnsurePaymentCustomer(ctx context.Context, userID string) (string, error) {
	acct, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return "", err
	}
	if acct.PaymentCustomerRef != nil {
		return *acct.PaymentCustomerRef, nil
	}

	ref, err := s.gateway.CreateCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	repo := s.repomanager.Accounts(s.db)
	stored, err := repo.SetPaymentCustomerRef(ctx, userID, ref, now())
	if err != nil {
		return "", fmt.Errorf("error storing customer reference: %w", err)
	}
	if stored {
		return ref, nil
	}

	acct, err = repo.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("error reading account: %w", err)
	}
	if acct.PaymentCustomerRef == nil {
		return "", fmt.Errorf("%w: customer reference vanished", common.ErrorInternal)
	}
	s.log.Debug(ctx, "customer reference created concurrently", "user_id", userID, "discarded", ref)
	return *acct.PaymentCustomerRef, nil
}
