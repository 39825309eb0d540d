package models

import "time"

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
)

// Terminal reports whether no further transition is allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionExpired
}

// CheckoutSession is one purchase attempt. Credits, AmountDue and Currency
// are copied from the package when the session is created.
type CheckoutSession struct {
	ID          string
	UserID      string
	PackageID   string
	Credits     int64
	AmountDue   int64
	Currency    string
	Status      SessionStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
	ExpiredAt   *time.Time
}
