// Package server wires the credit ledger together: storage, payment
// processor, services and the HTTP and gRPC servers.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophcredits/internal/dbx"
	"github.com/dmitrijs2005/gophcredits/internal/logging"
	"github.com/dmitrijs2005/gophcredits/internal/server/config"
	"github.com/dmitrijs2005/gophcredits/internal/server/httpapi"
	"github.com/dmitrijs2005/gophcredits/internal/server/metrics"
	"github.com/dmitrijs2005/gophcredits/internal/server/payments"
	"github.com/dmitrijs2005/gophcredits/internal/server/reports"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophcredits/internal/server/services"

	gs "github.com/dmitrijs2005/gophcredits/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	metrics    *metrics.Metrics
	accounts   *services.AccountService
	usage      *services.UsageService
	handler    *httpapi.Handler
	reconciler *services.Reconciler
}

// NewApp opens the database, applies migrations and builds every service.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, dialect, err := dbx.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewRepositoryManager(dialect)
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var sink services.ReportSink
	if c.S3Bucket != "" {
		s3sink, err := reports.NewS3Sink(ctx, c)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("report storage init error: %w", err)
		}
		sink = s3sink
	}

	m := metrics.New()
	gw := payments.NewGateway(c)
	if c.UsesLocalGateway() {
		logger.Warn(ctx, "no processor key configured, using local checkout gateway")
		if c.StripeWebhookSecret == config.DevWebhookSecret {
			logger.Warn(ctx, "webhook secret is the public development default")
		}
	}

	accounts := services.NewAccountService(db, rm, gw, c, logger, m)
	usage := services.NewUsageService(db, rm, accounts, c, logger, m)
	handler := httpapi.NewHandler(db,
		accounts,
		services.NewCheckoutService(db, rm, accounts, gw, c, logger),
		services.NewSettlementService(db, rm, accounts, payments.NewStripeVerifier(c.StripeWebhookSecret), c, logger, m),
		services.NewHistoryService(db, rm),
		m, c.SecretKey, logger)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		metrics:    m,
		accounts:   accounts,
		usage:      usage,
		handler:    handler,
		reconciler: services.NewReconciler(db, rm, sink, logger, m),
	}, nil
}

// Reconciler exposes the reconciliation pass for one-off runs.
func (app *App) Reconciler() *services.Reconciler {
	return app.reconciler
}

func (app *App) Close() error {
	return app.db.Close()
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, httpapi.NewRouter(app.handler), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.usage, app.accounts, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or either
// server fails, then closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.ReconcileInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.reconciler.RunEvery(ctx, app.config.ReconcileInterval)
		}()
	}

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
