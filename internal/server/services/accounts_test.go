package services

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/server/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBalance_NewUserReceivesWelcomeBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct, err := env.accounts.GetBalance(ctx, "u-new")
	require.NoError(t, err)
	assert.Equal(t, "u-new", acct.UserID)
	assert.Equal(t, int64(10), acct.Credits)
	assert.Equal(t, int64(10), acct.TotalCreditsEarned)

	page, err := env.history.ListTransactions(ctx, "u-new", 0, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	bonus := page.Items[0]
	assert.Equal(t, models.TransactionBonus, bonus.Type)
	assert.Equal(t, int64(10), bonus.Credits)
	assert.Equal(t, int64(0), bonus.BalanceBefore)
	assert.Equal(t, int64(10), bonus.BalanceAfter)
	assert.Equal(t, models.BonusMetadata{Reason: "welcome"}, bonus.Metadata)

	again, err := env.accounts.GetBalance(ctx, "u-new")
	require.NoError(t, err)
	assert.Equal(t, int64(10), again.Credits)
	assert.Equal(t, 1, env.countTransactions(t, "u-new", models.TransactionBonus))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.LedgerEntries.WithLabelValues("bonus")))
}

func TestGetOrCreate_ZeroBonusWritesNoTransaction(t *testing.T) {
	env := newTestEnv(t, withWelcomeBonus(0))

	acct, err := env.accounts.GetOrCreate(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acct.Credits)
	assert.Equal(t, 0, env.countTransactions(t, "u-1", models.TransactionBonus))
}

func TestGetOrCreate_ConcurrentFirstCallsProvisionOnce(t *testing.T) {
	env := newTestEnv(t)

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.accounts.GetOrCreate(context.Background(), "u-race")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(10), env.account(t, "u-race").Credits)
	assert.Equal(t, 1, env.countTransactions(t, "u-race", models.TransactionBonus))
	env.assertConsistent(t)
}

func TestGetBalance_MissingUserID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.GetBalance(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestEnsurePaymentCustomer_CreatedOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ref1, err := env.accounts.EnsurePaymentCustomer(ctx, "u-1")
	require.NoError(t, err)
	ref2, err := env.accounts.EnsurePaymentCustomer(ctx, "u-1")
	require.NoError(t, err)

	assert.Equal(t, ref1, ref2)
	assert.Equal(t, 1, env.gateway.customerCalls)
	require.NotNil(t, env.account(t, "u-1").PaymentCustomerRef)
	assert.Equal(t, ref1, *env.account(t, "u-1").PaymentCustomerRef)
}

func TestEnsurePaymentCustomer_GatewayError(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.customerErr = errBoom

	_, err := env.accounts.EnsurePaymentCustomer(context.Background(), "u-1")
	require.ErrorIs(t, err, errBoom)
	assert.Nil(t, env.account(t, "u-1").PaymentCustomerRef)
}
