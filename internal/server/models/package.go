package models

// CreditPackage is a purchasable catalog entry. AmountDue is in minor units
// of Currency.
type CreditPackage struct {
	ID        string
	Name      string
	Credits   int64
	AmountDue int64
	Currency  string
	Active    bool
	SortOrder int
}
