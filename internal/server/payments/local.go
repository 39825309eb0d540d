package payments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"github.com/stripe/stripe-go/v84/webhook"
)

// LocalGateway fabricates processor ids so the service can run without
// processor credentials. Its sessions are settled by posting events signed
// with the configured webhook secret (see SignEvent).
type LocalGateway struct {
	successURL string
}

func NewLocalGateway(successURL string) *LocalGateway {
	return &LocalGateway{successURL: successURL}
}

func (g *LocalGateway) CreateCustomer(_ context.Context, _ string) (string, error) {
	id, err := common.MakeRandHexString(12)
	if err != nil {
		return "", err
	}
	return "cus_local_" + id, nil
}

func (g *LocalGateway) CreateCheckoutSession(_ context.Context, _ CheckoutRequest) (*CheckoutSession, error) {
	id, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	sessionID := "cs_local_" + id
	return &CheckoutSession{
		ID:          sessionID,
		RedirectURL: strings.ReplaceAll(g.successURL, "{CHECKOUT_SESSION_ID}", sessionID),
	}, nil
}

// SignEvent builds a checkout webhook body for sessionID and signs it with
// secret the way the processor does. It returns the body and the value of
// the signature header.
func SignEvent(secret, eventType, sessionID, paymentStatus string) ([]byte, string, error) {
	eventID, err := common.MakeRandHexString(12)
	if err != nil {
		return nil, "", err
	}

	body, err := json.Marshal(map[string]any{
		"id":     "evt_local_" + eventID,
		"object": "event",
		"type":   eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"object":         "checkout.session",
				"payment_status": paymentStatus,
			},
		},
	})
	if err != nil {
		return nil, "", err
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Payload, signed.Header, nil
}
