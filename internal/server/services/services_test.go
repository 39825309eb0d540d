package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/logging"
	"github.com/dmitrijs2005/gophcredits/internal/server/config"
	"github.com/dmitrijs2005/gophcredits/internal/server/metrics"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
	"github.com/dmitrijs2005/gophcredits/internal/server/payments"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophcredits/internal/server/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// fakeGateway wraps the local gateway with call counting and injectable
// failures.
type fakeGateway struct {
	mu            sync.Mutex
	local         *payments.LocalGateway
	customerCalls int
	sessionCalls  int
	lastRequest   payments.CheckoutRequest
	customerErr   error
	sessionErr    error
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, userID string) (string, error) {
	g.mu.Lock()
	g.customerCalls++
	err := g.customerErr
	g.mu.Unlock()
	if err != nil {
		return "", err
	}
	return g.local.CreateCustomer(ctx, userID)
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	g.mu.Lock()
	g.sessionCalls++
	g.lastRequest = req
	err := g.sessionErr
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return g.local.CreateCheckoutSession(ctx, req)
}

type testEnv struct {
	db         *sql.DB
	rm         repomanager.RepositoryManager
	cfg        *config.Config
	metrics    *metrics.Metrics
	gateway    *fakeGateway
	accounts   *AccountService
	checkout   *CheckoutService
	settlement *SettlementService
	usage      *UsageService
	history    *HistoryService
}

func newTestEnv(t *testing.T, opts ...func(*config.Config)) *testEnv {
	t.Helper()
	db, rm := storetest.Open(t)
	return newTestEnvOn(t, db, rm, opts...)
}

// newTestEnvOn builds the services over an already migrated database.
func newTestEnvOn(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager, opts ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StripeWebhookSecret = testWebhookSecret
	cfg.TxRetryBaseDelay = time.Millisecond
	for _, o := range opts {
		o(cfg)
	}

	m := metrics.New()
	gw := &fakeGateway{local: payments.NewLocalGateway(cfg.CheckoutSuccessURL)}
	log := nopLogger{}

	accounts := NewAccountService(db, rm, gw, cfg, log, m)
	return &testEnv{
		db:         db,
		rm:         rm,
		cfg:        cfg,
		metrics:    m,
		gateway:    gw,
		accounts:   accounts,
		checkout:   NewCheckoutService(db, rm, accounts, gw, cfg, log),
		settlement: NewSettlementService(db, rm, accounts, payments.NewStripeVerifier(cfg.StripeWebhookSecret), cfg, log, m),
		usage:      NewUsageService(db, rm, accounts, cfg, log, m),
		history:    NewHistoryService(db, rm),
	}
}

func withWelcomeBonus(n int64) func(*config.Config) {
	return func(c *config.Config) { c.WelcomeBonusCredits = n }
}

func (e *testEnv) account(t *testing.T, userID string) *models.Account {
	t.Helper()
	acct, err := e.rm.Accounts(e.db).Get(context.Background(), userID)
	require.NoError(t, err)
	return acct
}

func (e *testEnv) session(t *testing.T, sessionID string) *models.CheckoutSession {
	t.Helper()
	s, err := e.rm.Sessions(e.db).Get(context.Background(), sessionID)
	require.NoError(t, err)
	return s
}

func (e *testEnv) countTransactions(t *testing.T, userID string, typ models.TransactionType) int {
	t.Helper()
	return storetest.CountRows(t, e.db,
		`SELECT COUNT(*) FROM credit_transactions WHERE user_id = ? AND type = ?`, userID, string(typ))
}

// deliver signs an event with the webhook secret and hands it to settlement.
func (e *testEnv) deliver(t *testing.T, eventType, sessionID, paymentStatus string) (Outcome, error) {
	t.Helper()
	payload, header, err := payments.SignEvent(testWebhookSecret, eventType, sessionID, paymentStatus)
	require.NoError(t, err)
	return e.settlement.HandleEvent(context.Background(), payload, header)
}

// assertConsistent checks that every account's cached counters equal the
// sums of its transaction log.
func (e *testEnv) assertConsistent(t *testing.T) {
	t.Helper()
	divergences, err := e.rm.Transactions(e.db).FindDivergences(context.Background())
	require.NoError(t, err)
	assert.Empty(t, divergences)
}

var errBoom = errors.New("boom")
