package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

type StripeGateway struct {
	sc         *stripe.Client
	successURL string
	cancelURL  string
}

func NewStripeGateway(sc *stripe.Client, successURL, cancelURL string) *StripeGateway {
	return &StripeGateway{sc: sc, successURL: successURL, cancelURL: cancelURL}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, userID string) (string, error) {
	params := &stripe.CustomerCreateParams{
		Metadata: map[string]string{"user_id": userID},
	}
	c, err := g.sc.V1Customers.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return c.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionCreateParams{
		Customer:          stripe.String(req.CustomerRef),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.PackageName),
						Description: stripe.String(fmt.Sprintf("%d credits", req.Credits)),
					},
					UnitAmount: stripe.Int64(req.AmountDue),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		Metadata: map[string]string{
			"user_id":    req.UserID,
			"package_id": req.PackageID,
			"credits":    strconv.FormatInt(req.Credits, 10),
		},
	}
	s, err := g.sc.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, RedirectURL: s.URL}, nil
}

// StripeVerifier checks the Stripe-Signature header with the endpoint secret.
type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

type checkoutSessionObject struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
}

// Verify authenticates payload and decodes it. Any signature problem yields
// common.ErrSignatureVerification; nothing in the payload is trusted before
// that check passes.
func (v *StripeVerifier) Verify(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSignatureVerification, err)
	}

	ev := &Event{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(ev.Type, "checkout.session.") {
		return ev, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", common.ErrorValidation, event.ID)
	}
	session, err := parseEventData[checkoutSessionObject](&event)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse checkout session: %v", common.ErrorValidation, err)
	}
	ev.SessionID = session.ID
	ev.PaymentStatus = session.PaymentStatus
	return ev, nil
}

func parseEventData[T any](event *stripe.Event) (*T, error) {
	var data T
	if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
