package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	a.InsufficientCredits.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.InsufficientCredits))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.InsufficientCredits))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.WebhookEvents.WithLabelValues("checkout.session.completed", "settled").Inc()
	m.LedgerEntries.WithLabelValues("bonus").Add(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `credits_webhook_events_total{outcome="settled",type="checkout.session.completed"} 1`)
	assert.Contains(t, string(body), `credits_ledger_entries_total{type="bonus"} 2`)
	assert.Contains(t, string(body), "go_goroutines")
}
