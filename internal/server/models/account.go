package models

import "time"

type Account struct {
	UserID             string
	Credits            int64
	TotalCreditsEarned int64
	PaymentCustomerRef *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
