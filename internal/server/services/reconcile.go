package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/logging"
	"github.com/dmitrijs2005/gophcredits/internal/server/metrics"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
	"github.com/dmitrijs2005/gophcredits/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ReportSink stores a finished reconciliation report and returns where.
type ReportSink interface {
	Upload(ctx context.Context, report *models.ReconcileReport) (string, error)
}

// Reconciler recomputes every account's counters from the transaction log
// and reports accounts whose cached values disagree. It never repairs.
type Reconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sink        ReportSink
	log         logging.Logger
	metrics     *metrics.Metrics
}

// NewReconciler builds a Reconciler. sink may be nil.
func NewReconciler(db *sql.DB, m repomanager.RepositoryManager, sink ReportSink, log logging.Logger, mt *metrics.Metrics) *Reconciler {
	return &Reconciler{
		db:          db,
		repomanager: m,
		sink:        sink,
		log:         log.With("module", "reconciler"),
		metrics:     mt,
	}
}

// Run performs one pass. The report is returned even when uploading it
// fails.
func (r *Reconciler) Run(ctx context.Context) (*models.ReconcileReport, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	count, err := r.repomanager.Accounts(r.db).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting accounts: %w", err)
	}
	divergences, err := r.repomanager.Transactions(r.db).FindDivergences(ctx)
	if err != nil {
		return nil, fmt.Errorf("error finding divergences: %w", err)
	}

	report := &models.ReconcileReport{
		RunID:           runID.String(),
		CheckedAt:       time.Now().UTC(),
		AccountsChecked: count,
		Divergences:     divergences,
	}
	if report.Divergences == nil {
		report.Divergences = []models.Divergence{}
	}

	for _, d := range report.Divergences {
		r.log.Warn(ctx, "ledger divergence",
			"run_id", report.RunID, "user_id", d.UserID,
			"cached_credits", d.CachedCredits, "ledger_credits", d.LedgerCredits,
			"cached_total_earned", d.CachedTotalEarned, "ledger_total_earned", d.LedgerTotalEarned)
	}

	r.metrics.ReconcileAccountsChecked.Set(float64(count))
	r.metrics.ReconcileDivergences.Set(float64(len(report.Divergences)))
	r.metrics.ReconcileLastRun.Set(float64(report.CheckedAt.Unix()))

	r.log.Info(ctx, "reconciliation finished",
		"run_id", report.RunID, "accounts_checked", count, "divergences", len(report.Divergences))

	if r.sink != nil {
		location, err := r.sink.Upload(ctx, report)
		if err != nil {
			return report, fmt.Errorf("error uploading report: %w", err)
		}
		r.log.Info(ctx, "reconciliation report uploaded", "run_id", report.RunID, "location", location)
	}
	return report, nil
}

// RunEvery runs a pass every interval until ctx is done. Failed passes are
// logged and do not stop the loop.
func (r *Reconciler) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				r.log.Error(ctx, "reconciliation failed", "error", err)
			}
		}
	}
}
