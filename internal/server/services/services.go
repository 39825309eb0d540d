// Package services contains the business operations of the credits server:
// account provisioning, checkout, webhook settlement, usage debits, history
// and reconciliation. Every balance change goes through ledger.Ledger inside a
// transaction run by dbx.WithRetryTx.
package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/dbx"
	"github.com/dmitrijs2005/gophcredits/internal/logging"
	"github.com/dmitrijs2005/gophcredits/internal/server/config"
	"github.com/dmitrijs2005/gophcredits/internal/server/metrics"
)

// retryPolicy builds the transaction retry policy for one operation from
// config. Every re-run is counted and logged at debug level.
func retryPolicy(cfg *config.Config, log logging.Logger, m *metrics.Metrics, operation string) dbx.RetryPolicy {
	return dbx.RetryPolicy{
		MaxRetries: cfg.TxMaxRetries,
		BaseDelay:  cfg.TxRetryBaseDelay,
		OnRetry: func(ctx context.Context, attempt uint64, err error) {
			m.TxRetries.WithLabelValues(operation).Inc()
			log.Debug(ctx, "retrying transaction", "operation", operation, "attempt", attempt, "error", err)
		},
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
