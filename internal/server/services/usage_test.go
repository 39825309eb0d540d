package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
	"github.com/dmitrijs2005/gophcredits/internal/server/storetest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebit_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t, withWelcomeBonus(5))
	mustProvision(t, env, "u-1")

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.usage.Debit(context.Background(), "u-1", 1, "export")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrInsufficientCredits):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 5, ok)
	assert.Equal(t, 3, insufficient)
	assert.Equal(t, int64(0), env.account(t, "u-1").Credits)
	assert.Equal(t, 5, env.countTransactions(t, "u-1", models.TransactionUsage))
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.InsufficientCredits))
	env.assertConsistent(t)
}

func TestDebit_OverdraftRejectedAndNothingWritten(t *testing.T) {
	env := newTestEnv(t, withWelcomeBonus(100))
	mustProvision(t, env, "u-1")
	txBefore := storetest.CountRows(t, env.db, `SELECT COUNT(*) FROM credit_transactions`)

	_, err := env.usage.Debit(context.Background(), "u-1", 150, "render")
	require.ErrorIs(t, err, common.ErrInsufficientCredits)

	assert.Equal(t, int64(100), env.account(t, "u-1").Credits)
	assert.Equal(t, txBefore, storetest.CountRows(t, env.db, `SELECT COUNT(*) FROM credit_transactions`))
	assert.Equal(t, 0, env.countTransactions(t, "u-1", models.TransactionUsage))
}

func TestDebit_ProvisionsUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	tx, err := env.usage.Debit(context.Background(), "u-new", 3, "export")
	require.NoError(t, err)
	assert.Equal(t, int64(10), tx.BalanceBefore)
	assert.Equal(t, int64(7), tx.BalanceAfter)
	assert.Equal(t, int64(-3), tx.Credits)
	assert.Equal(t, models.UsageMetadata{FeatureRef: "export"}, tx.Metadata)

	acct := env.account(t, "u-new")
	assert.Equal(t, int64(7), acct.Credits)
	assert.Equal(t, int64(10), acct.TotalCreditsEarned)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.LedgerEntries.WithLabelValues("bonus")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.LedgerEntries.WithLabelValues("usage")))
}

func TestDebit_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		userID     string
		amount     int64
		featureRef string
	}{
		{name: "no user", userID: "", amount: 1, featureRef: "export"},
		{name: "zero amount", userID: "u-1", amount: 0, featureRef: "export"},
		{name: "negative amount", userID: "u-1", amount: -4, featureRef: "export"},
		{name: "no feature", userID: "u-1", amount: 1, featureRef: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.usage.Debit(context.Background(), tt.userID, tt.amount, tt.featureRef)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
	assert.Equal(t, 0, storetest.CountRows(t, env.db, `SELECT COUNT(*) FROM accounts`))
}

func TestLedger_SumInvariantAcrossMixedOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, u := range []string{"u-1", "u-2", "u-3"} {
		mustProvision(t, env, u)
	}
	s1 := newPendingSession(t, env, "u-1", "starter")
	s2 := newPendingSession(t, env, "u-2", "studio")

	_, err := env.deliver(t, "checkout.session.completed", s1, "paid")
	require.NoError(t, err)
	_, err = env.usage.Debit(ctx, "u-1", 37, "export")
	require.NoError(t, err)
	_, err = env.usage.Debit(ctx, "u-3", 11, "export")
	require.ErrorIs(t, err, common.ErrInsufficientCredits)
	_, err = env.deliver(t, "checkout.session.expired", s2, "unpaid")
	require.NoError(t, err)
	_, err = env.usage.Debit(ctx, "u-2", 10, "export")
	require.NoError(t, err)

	env.assertConsistent(t)
	assert.Equal(t, int64(473), env.account(t, "u-1").Credits)
	assert.Equal(t, int64(0), env.account(t, "u-2").Credits)
	assert.Equal(t, int64(10), env.account(t, "u-3").Credits)
}
