package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/dmitrijs2005/gophcredits/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

const testSecret = "whsec_test"

func TestStripeVerifier_CheckoutEvent(t *testing.T) {
	payload, header, err := SignEvent(testSecret, EventCheckoutCompleted, "cs_123", "paid")
	require.NoError(t, err)

	ev, err := NewStripeVerifier(testSecret).Verify(payload, header)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "cs_123", ev.SessionID)
	assert.Equal(t, "paid", ev.PaymentStatus)
	assert.True(t, strings.HasPrefix(ev.ID, "evt_local_"))
}

func TestStripeVerifier_RejectsBadSignatures(t *testing.T) {
	payload, header, err := SignEvent(testSecret, EventCheckoutCompleted, "cs_123", "paid")
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload []byte
		header  string
		secret  string
	}{
		{name: "wrong secret", payload: payload, header: header, secret: "whsec_other"},
		{name: "missing header", payload: payload, header: "", secret: testSecret},
		{name: "tampered body", payload: []byte(strings.Replace(string(payload), "cs_123", "cs_999", 1)), header: header, secret: testSecret},
		{name: "garbage header", payload: payload, header: "t=1,v1=deadbeef", secret: testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := NewStripeVerifier(tt.secret).Verify(tt.payload, tt.header)
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, common.ErrSignatureVerification)
		})
	}
}

func TestStripeVerifier_RejectsStaleTimestamp(t *testing.T) {
	body := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    testSecret,
		Timestamp: time.Now().Add(-time.Hour),
		Scheme:    "v1",
	})

	_, err := NewStripeVerifier(testSecret).Verify(signed.Payload, signed.Header)
	assert.ErrorIs(t, err, common.ErrSignatureVerification)
}

func TestStripeVerifier_NonCheckoutEventKeepsTypeOnly(t *testing.T) {
	body := []byte(`{"id":"evt_2","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: body, Secret: testSecret, Timestamp: time.Now(), Scheme: "v1",
	})

	ev, err := NewStripeVerifier(testSecret).Verify(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, &Event{ID: "evt_2", Type: "invoice.paid"}, ev)
}

func TestLocalGateway(t *testing.T) {
	g := NewLocalGateway("http://localhost:3000/ok?session_id={CHECKOUT_SESSION_ID}")

	cus, err := g.CreateCustomer(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cus, "cus_local_"))

	s1, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{UserID: "u-1"})
	require.NoError(t, err)
	s2, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{UserID: "u-1"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(s1.ID, "cs_local_"))
	assert.NotEqual(t, s1.ID, s2.ID)
	assert.Equal(t, "http://localhost:3000/ok?session_id="+s1.ID, s1.RedirectURL)
}

func TestNewGateway_SelectsByKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	_, ok := NewGateway(cfg).(*LocalGateway)
	assert.True(t, ok)

	cfg.StripeSecretKey = "sk_test_123"
	_, ok = NewGateway(cfg).(*StripeGateway)
	assert.True(t, ok)
}

// stripeStub records form posts and answers with canned objects.
type stripeStub struct {
	mu    sync.Mutex
	forms map[string]url.Values
}

func newStripeStub(t *testing.T) (*stripeStub, *stripe.Client) {
	t.Helper()
	stub := &stripeStub{forms: map[string]url.Values{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		stub.mu.Lock()
		stub.forms[r.URL.Path] = r.PostForm
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/customers":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "cus_123", "object": "customer"})
		case "/v1/checkout/sessions":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "cs_test_1", "object": "checkout.session", "url": "https://checkout.stripe.com/c/pay/cs_test_1",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"no such route"}}`))
		}
	}))
	t.Cleanup(srv.Close)

	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return stub, stripe.NewClient("sk_test_123", stripe.WithBackends(backends))
}

func TestStripeGateway_CreateCustomerAndSession(t *testing.T) {
	stub, sc := newStripeStub(t)
	g := NewStripeGateway(sc, "https://app/success", "https://app/cancel")

	cus, err := g.CreateCustomer(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", cus)
	assert.Equal(t, "u-1", stub.forms["/v1/customers"].Get("metadata[user_id]"))

	s, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{
		UserID: "u-1", CustomerRef: cus, PackageID: "creator", PackageName: "Creator",
		Credits: 2200, AmountDue: 1999, Currency: "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, &CheckoutSession{ID: "cs_test_1", RedirectURL: "https://checkout.stripe.com/c/pay/cs_test_1"}, s)

	form := stub.forms["/v1/checkout/sessions"]
	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "cus_123", form.Get("customer"))
	assert.Equal(t, "1999", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "usd", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "creator", form.Get("metadata[package_id]"))
	assert.Equal(t, "2200", form.Get("metadata[credits]"))
}

func TestStripeGateway_ErrorIsWrapped(t *testing.T) {
	g := NewStripeGateway(stripe.NewClient("sk_test_123", stripe.WithBackends(stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		URL:               stripe.String("http://127.0.0.1:1"),
		MaxNetworkRetries: stripe.Int64(0),
	}))), "", "")

	_, err := g.CreateCustomer(context.Background(), "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create customer")
}
