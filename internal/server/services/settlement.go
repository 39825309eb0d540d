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

// Outcome is what handling one webhook event amounted to. All outcomes are
// acknowledged to the processor; only errors make it redeliver.
type Outcome string

const (
	OutcomeSettled         Outcome = "settled"
	OutcomeAlreadySettled  Outcome = "already_settled"
	OutcomeUnknownSession  Outcome = "unknown_session"
	OutcomeSessionExpired  Outcome = "session_expired"
	OutcomeAwaitingPayment Outcome = "awaiting_payment"
	OutcomeExpired         Outcome = "expired"
	OutcomeAlreadyTerminal Outcome = "already_terminal"
	OutcomeIgnored         Outcome = "ignored"
)

// SettlementService applies processor events to checkout sessions and the
// ledger. A completion is credited at most once: the session status is read
// under lock and flipped in the same transaction as the balance write.
type SettlementService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ledger      *ledger.Ledger
	accounts    *AccountService
	verifier    payments.Verifier
	retry       dbx.RetryPolicy
	log         logging.Logger
	metrics     *metrics.Metrics
}

func NewSettlementService(db *sql.DB, m repomanager.RepositoryManager, accounts *AccountService, v payments.Verifier,
	cfg *config.Config, log logging.Logger, mt *metrics.Metrics) *SettlementService {
	log = log.With("module", "settlement")
	return &SettlementService{
		db:          db,
		repomanager: m,
		ledger:      ledger.New(m.Dialect()),
		accounts:    accounts,
		verifier:    v,
		retry:       retryPolicy(cfg, log, mt, "settlement"),
		log:         log,
		metrics:     mt,
	}
}

// HandleEvent authenticates a raw webhook body and applies it. Signature
// failures return common.ErrSignatureVerification before anything is read.
// Exhausted transaction retries return common.ErrPersistenceConflict with
// state unchanged, so the processor can redeliver.
func (s *SettlementService) HandleEvent(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	ev, err := s.verifier.Verify(payload, signature)
	if err != nil {
		s.log.Warn(ctx, "webhook rejected", "error", err)
		return "", err
	}

	var outcome Outcome
	switch ev.Type {
	case payments.EventCheckoutCompleted:
		if ev.PaymentStatus == payments.PaymentStatusUnpaid {
			outcome = OutcomeAwaitingPayment
			break
		}
		outcome, err = s.Settle(ctx, ev.SessionID)
	case payments.EventAsyncPaymentSucceeded:
		outcome, err = s.Settle(ctx, ev.SessionID)
	case payments.EventCheckoutExpired, payments.EventAsyncPaymentFailed:
		outcome, err = s.Expire(ctx, ev.SessionID)
	default:
		outcome = OutcomeIgnored
	}

	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues(ev.Type, "error").Inc()
		s.log.Error(ctx, "webhook event failed", "event_id", ev.ID, "type", ev.Type, "session_id", ev.SessionID, "error", err)
		return "", err
	}

	s.metrics.WebhookEvents.WithLabelValues(ev.Type, string(outcome)).Inc()
	s.log.Info(ctx, "webhook event handled", "event_id", ev.ID, "type", ev.Type, "session_id", ev.SessionID, "outcome", outcome)
	return outcome, nil
}

// Settle credits a completed checkout session exactly once.
func (s *SettlementService) Settle(ctx context.Context, sessionID string) (Outcome, error) {
	var outcome Outcome
	var provisioned *models.Account
	var credited *models.Transaction

	err := dbx.WithRetryTx(ctx, s.db, s.retry, func(ctx context.Context, tx dbx.DBTX) error {
		outcome, provisioned, credited = "", nil, nil

		sessions := s.repomanager.Sessions(tx)
		session, err := sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				outcome = OutcomeUnknownSession
				return nil
			}
			return fmt.Errorf("error reading session: %w", err)
		}

		switch session.Status {
		case models.SessionCompleted:
			outcome = OutcomeAlreadySettled
			return nil
		case models.SessionExpired:
			outcome = OutcomeSessionExpired
			return nil
		}

		acct, created, err := s.accounts.GetOrCreateTx(ctx, tx, session.UserID)
		if err != nil {
			return err
		}
		if created {
			provisioned = acct
		}

		t, err := s.ledger.ApplyDelta(ctx, tx, ledger.Entry{
			UserID:      session.UserID,
			Delta:       session.Credits,
			Type:        models.TransactionPurchase,
			Description: fmt.Sprintf("Purchased %s package", session.PackageID),
			Metadata:    models.PurchaseMetadata{PackageID: session.PackageID, SessionID: session.ID},
		})
		if err != nil {
			return err
		}

		ok, err := sessions.MarkCompleted(ctx, session.ID, now())
		if err != nil {
			return fmt.Errorf("error completing session: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: session %s left pending concurrently", common.ErrorInternal, session.ID)
		}

		outcome, credited = OutcomeSettled, t
		return nil
	})
	if err != nil {
		return "", err
	}

	if provisioned != nil {
		s.accounts.RecordProvisioned(ctx, provisioned)
	}
	switch outcome {
	case OutcomeSettled:
		s.metrics.LedgerEntries.WithLabelValues(string(models.TransactionPurchase)).Inc()
		s.log.Info(ctx, "checkout settled", "session_id", sessionID, "user_id", credited.UserID,
			"credits", credited.Credits, "balance_after", credited.BalanceAfter, "transaction_id", credited.ID)
	case OutcomeUnknownSession:
		s.log.Warn(ctx, "completion for unknown session", "session_id", sessionID)
	case OutcomeSessionExpired:
		s.log.Warn(ctx, "completion for expired session ignored", "session_id", sessionID)
	}
	return outcome, nil
}

// Expire moves a pending session to expired. Completed and expired sessions
// are left as they are. Expiry never touches a balance.
func (s *SettlementService) Expire(ctx context.Context, sessionID string) (Outcome, error) {
	var outcome Outcome
	err := dbx.WithRetryTx(ctx, s.db, s.retry, func(ctx context.Context, tx dbx.DBTX) error {
		sessions := s.repomanager.Sessions(tx)
		session, err := sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				outcome = OutcomeUnknownSession
				return nil
			}
			return fmt.Errorf("error reading session: %w", err)
		}
		if session.Status.Terminal() {
			outcome = OutcomeAlreadyTerminal
			return nil
		}

		ok, err := sessions.MarkExpired(ctx, session.ID, now())
		if err != nil {
			return fmt.Errorf("error expiring session: %w", err)
		}
		if !ok {
			outcome = OutcomeAlreadyTerminal
			return nil
		}
		outcome = OutcomeExpired
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}
