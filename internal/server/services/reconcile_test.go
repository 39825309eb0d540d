package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/server/models"
	"github.com/dmitrijs2005/gophcredits/internal/server/storetest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu      sync.Mutex
	reports []*models.ReconcileReport
	err     error
}

func (s *fakeSink) Upload(_ context.Context, r *models.ReconcileReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.reports = append(s.reports, r)
	return "mem://" + r.RunID, nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func TestReconciler_CleanLedger(t *testing.T) {
	env := newTestEnv(t)
	mustProvision(t, env, "u-1")
	mustProvision(t, env, "u-2")
	sink := &fakeSink{}

	r := NewReconciler(env.db, env.rm, sink, nopLogger{}, env.metrics)
	report, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, int64(2), report.AccountsChecked)
	assert.Empty(t, report.Divergences)
	require.Equal(t, 1, sink.count())
	assert.Same(t, report, sink.reports[0])
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.ReconcileAccountsChecked))
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.ReconcileDivergences))
}

func TestReconciler_ReportsButDoesNotRepair(t *testing.T) {
	env := newTestEnv(t)
	mustProvision(t, env, "u-1")
	mustProvision(t, env, "u-2")
	storetest.MustExec(t, env.db, `UPDATE accounts SET credits = credits + 5 WHERE user_id = ?`, "u-2")

	r := NewReconciler(env.db, env.rm, nil, nopLogger{}, env.metrics)
	report, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.Divergence{{
		UserID:            "u-2",
		CachedCredits:     15,
		LedgerCredits:     10,
		CachedTotalEarned: 10,
		LedgerTotalEarned: 10,
	}}, report.Divergences)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ReconcileDivergences))
	assert.Equal(t, int64(15), env.account(t, "u-2").Credits)
}

func TestReconciler_UploadFailureStillReturnsReport(t *testing.T) {
	env := newTestEnv(t)
	mustProvision(t, env, "u-1")

	r := NewReconciler(env.db, env.rm, &fakeSink{err: errBoom}, nopLogger{}, env.metrics)
	report, err := r.Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	require.NotNil(t, report)
	assert.Equal(t, int64(1), report.AccountsChecked)
}

func TestReconciler_RunEveryStopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	sink := &fakeSink{}
	r := NewReconciler(env.db, env.rm, sink, nopLogger{}, env.metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.RunEvery(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return sink.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunEvery did not return after cancel")
	}
}
