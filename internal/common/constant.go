// Package common contains shared constants and sentinel errors used across
// credits server components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName is the HTTP header carrying "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// StripeSignatureHeaderName is the HTTP header carrying the webhook signature.
const StripeSignatureHeaderName = "Stripe-Signature"
