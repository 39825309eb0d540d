package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/logging"
	"github.com/dmitrijs2005/gophcredits/internal/server/config"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
	"github.com/dmitrijs2005/gophcredits/internal/server/payments"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/repomanager"
)

// CheckoutResult is returned to the buyer, who is sent to RedirectURL.
type CheckoutResult struct {
	SessionID   string
	RedirectURL string
}

// CheckoutService opens purchase attempts for catalog packages.
type CheckoutService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	accounts    *AccountService
	gateway     payments.Gateway
	currency    string
	log         logging.Logger
}

func NewCheckoutService(db *sql.DB, m repomanager.RepositoryManager, accounts *AccountService, gw payments.Gateway,
	cfg *config.Config, log logging.Logger) *CheckoutService {
	return &CheckoutService{
		db:          db,
		repomanager: m,
		accounts:    accounts,
		gateway:     gw,
		currency:    cfg.Currency,
		log:         log.With("module", "checkout"),
	}
}

// ListPackages returns the active catalog in display order.
func (s *CheckoutService) ListPackages(ctx context.Context) ([]models.CreditPackage, error) {
	pkgs, err := s.repomanager.Packages(s.db).ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing packages: %w", err)
	}
	return pkgs, nil
}

// CreateSession starts a purchase of packageID for userID. The package's
// current credits and price are copied into the session so later catalog
// edits do not change what a pending purchase settles for.
func (s *CheckoutService) CreateSession(ctx context.Context, userID, packageID string) (*CheckoutResult, error) {
	if packageID == "" {
		return nil, fmt.Errorf("%w: missing package id", common.ErrorValidation)
	}

	pkg, err := s.repomanager.Packages(s.db).Get(ctx, packageID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrPackageNotFound
		}
		return nil, fmt.Errorf("error reading package: %w", err)
	}
	if !pkg.Active {
		return nil, common.ErrPackageInactive
	}

	currency := pkg.Currency
	if currency == "" {
		currency = s.currency
	}

	customerRef, err := s.accounts.EnsurePaymentCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	ps, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		UserID:      userID,
		CustomerRef: customerRef,
		PackageID:   pkg.ID,
		PackageName: pkg.Name,
		Credits:     pkg.Credits,
		AmountDue:   pkg.AmountDue,
		Currency:    currency,
	})
	if err != nil {
		return nil, err
	}

	session := &models.CheckoutSession{
		ID:        ps.ID,
		UserID:    userID,
		PackageID: pkg.ID,
		Credits:   pkg.Credits,
		AmountDue: pkg.AmountDue,
		Currency:  currency,
		Status:    models.SessionPending,
		CreatedAt: now(),
	}
	if err := s.repomanager.Sessions(s.db).Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error storing checkout session: %w", err)
	}

	s.log.Info(ctx, "checkout session created",
		"user_id", userID, "session_id", session.ID, "package_id", pkg.ID, "credits", pkg.Credits)

	return &CheckoutResult{SessionID: ps.ID, RedirectURL: ps.RedirectURL}, nil
}
