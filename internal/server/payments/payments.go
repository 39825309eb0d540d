// Package payments talks to the external payment processor: it opens hosted
// checkout sessions and authenticates the webhook events the processor sends
// back. Stripe is the production processor; LocalGateway stands in for it
// when no API key is configured.
package payments

import (
	"context"

	"github.com/dmitrijs2005/gophcredits/internal/server/config"
	"github.com/stripe/stripe-go/v84"
)

// Webhook event types the settlement service acts on.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutExpired       = "checkout.session.expired"
	EventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
)

// PaymentStatusUnpaid marks a completed checkout whose delayed payment
// method has not cleared yet.
const PaymentStatusUnpaid = "unpaid"

// CheckoutRequest carries the snapshot of a package being bought.
type CheckoutRequest struct {
	UserID      string
	CustomerRef string
	PackageID   string
	PackageName string
	Credits     int64
	AmountDue   int64
	Currency    string
}

// CheckoutSession is the processor's handle for a purchase attempt.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

type Gateway interface {
	CreateCustomer(ctx context.Context, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// Event is an authenticated webhook event reduced to the fields settlement
// needs. SessionID and PaymentStatus are empty for non-checkout events.
type Event struct {
	ID            string
	Type          string
	SessionID     string
	PaymentStatus string
}

// Verifier authenticates a raw webhook body against its signature header.
type Verifier interface {
	Verify(payload []byte, signature string) (*Event, error)
}

// NewGateway returns the Stripe gateway when a secret key is configured and
// the local gateway otherwise.
func NewGateway(cfg *config.Config) Gateway {
	if cfg.UsesLocalGateway() {
		return NewLocalGateway(cfg.CheckoutSuccessURL)
	}
	return NewStripeGateway(stripe.NewClient(cfg.StripeSecretKey), cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
}
