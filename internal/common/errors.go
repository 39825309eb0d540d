// Package common defines shared constants and sentinel errors used across
// the credits server. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Validation errors. Specific causes wrap ErrorValidation.
	ErrorValidation    = errors.New("validation error")
	ErrPackageNotFound = fmt.Errorf("%w: unknown package", ErrorValidation)
	ErrPackageInactive = fmt.Errorf("%w: package is not active", ErrorValidation)
	ErrInvalidCursor   = fmt.Errorf("%w: invalid cursor", ErrorValidation)

	// Ledger errors.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrPersistenceConflict is returned once transactional retries are exhausted.
	// The operation left no partial state and may be retried by the caller.
	ErrPersistenceConflict = errors.New("persistence conflict")

	// Webhook errors.
	ErrSignatureVerification = errors.New("signature verification failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
