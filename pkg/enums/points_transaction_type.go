package enums

import "fmt"

// PointsTransactionType distinguishes accruals from redemptions in the ledger.
type PointsTransactionType string

const (
	PointsTransactionTypeAdd    PointsTransactionType = "add"
	PointsTransactionTypeRedeem PointsTransactionType = "redeem"
)

var validPointsTransactionTypes = []PointsTransactionType{
	PointsTransactionTypeAdd,
	PointsTransactionTypeRedeem,
}

// String implements fmt.Stringer.
func (p PointsTransactionType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PointsTransactionType.
func (p PointsTransactionType) IsValid() bool {
	for _, candidate := range validPointsTransactionTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePointsTransactionType converts raw input into a PointsTransactionType.
func ParsePointsTransactionType(value string) (PointsTransactionType, error) {
	for _, candidate := range validPointsTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid points transaction type %q", value)
}
