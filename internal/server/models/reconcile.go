package models

import "time"

// Divergence is an account whose cached counters disagree with the sums
// recomputed from its transaction log.
type Divergence struct {
	UserID            string `json:"userId"`
	CachedCredits     int64  `json:"cachedCredits"`
	LedgerCredits     int64  `json:"ledgerCredits"`
	CachedTotalEarned int64  `json:"cachedTotalEarned"`
	LedgerTotalEarned int64  `json:"ledgerTotalEarned"`
}

// ReconcileReport is the result of one reconciliation pass.
type ReconcileReport struct {
	RunID           string       `json:"runId"`
	CheckedAt       time.Time    `json:"checkedAt"`
	AccountsChecked int64        `json:"accountsChecked"`
	Divergences     []Divergence `json:"divergences"`
}
