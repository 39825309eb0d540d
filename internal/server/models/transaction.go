package models

import (
	"database/sql"
	"fmt"
	"time"
)

type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionUsage    TransactionType = "usage"
	TransactionBonus    TransactionType = "bonus"
)

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID            string
	UserID        string
	Type          TransactionType
	Credits       int64
	BalanceBefore int64
	BalanceAfter  int64
	Description   string
	Metadata      Metadata
	CreatedAt     time.Time
}

// Metadata is the typed payload of a transaction. Exactly one implementation
// exists per TransactionType and the set cannot be extended outside this
// package.
type Metadata interface {
	Kind() TransactionType
	sealed()
}

type PurchaseMetadata struct {
	PackageID string `json:"packageId"`
	SessionID string `json:"sessionId"`
}

type UsageMetadata struct {
	FeatureRef string `json:"featureRef"`
}

type BonusMetadata struct {
	Reason string `json:"reason"`
}

func (PurchaseMetadata) Kind() TransactionType { return TransactionPurchase }
func (UsageMetadata) Kind() TransactionType    { return TransactionUsage }
func (BonusMetadata) Kind() TransactionType    { return TransactionBonus }

func (PurchaseMetadata) sealed() {}
func (UsageMetadata) sealed()    {}
func (BonusMetadata) sealed()    {}

// ValidateMetadata checks that m is present, tagged with t, and carries its
// required fields.
func ValidateMetadata(t TransactionType, m Metadata) error {
	if m == nil {
		return fmt.Errorf("missing metadata for %s transaction", t)
	}
	if m.Kind() != t {
		return fmt.Errorf("%s metadata attached to %s transaction", m.Kind(), t)
	}

	switch v := m.(type) {
	case PurchaseMetadata:
		if v.PackageID == "" || v.SessionID == "" {
			return fmt.Errorf("purchase metadata requires package and session")
		}
	case UsageMetadata:
		if v.FeatureRef == "" {
			return fmt.Errorf("usage metadata requires feature reference")
		}
	case BonusMetadata:
		if v.Reason == "" {
			return fmt.Errorf("bonus metadata requires reason")
		}
	}
	return nil
}

// MetadataColumns is the flattened storage form of Metadata: one nullable
// column per field of every variant.
type MetadataColumns struct {
	PackageID   sql.NullString
	SessionID   sql.NullString
	FeatureRef  sql.NullString
	BonusReason sql.NullString
}

// FlattenMetadata maps a metadata variant onto its storage columns.
func FlattenMetadata(m Metadata) MetadataColumns {
	var c MetadataColumns
	switch v := m.(type) {
	case PurchaseMetadata:
		c.PackageID = nullString(v.PackageID)
		c.SessionID = nullString(v.SessionID)
	case UsageMetadata:
		c.FeatureRef = nullString(v.FeatureRef)
	case BonusMetadata:
		c.BonusReason = nullString(v.Reason)
	}
	return c
}

// Metadata rebuilds the variant selected by t.
func (c MetadataColumns) Metadata(t TransactionType) (Metadata, error) {
	switch t {
	case TransactionPurchase:
		return PurchaseMetadata{PackageID: c.PackageID.String, SessionID: c.SessionID.String}, nil
	case TransactionUsage:
		return UsageMetadata{FeatureRef: c.FeatureRef.String}, nil
	case TransactionBonus:
		return BonusMetadata{Reason: c.BonusReason.String}, nil
	}
	return nil, fmt.Errorf("unknown transaction type %q", t)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
