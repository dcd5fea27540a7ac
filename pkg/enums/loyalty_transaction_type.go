package enums

import "fmt"

// LoyaltyTransactionType describes why a ledger entry exists.
type LoyaltyTransactionType string

const (
	LoyaltyTransactionTypeOrder        LoyaltyTransactionType = "order"
	LoyaltyTransactionTypeReward       LoyaltyTransactionType = "reward"
	LoyaltyTransactionTypeManual       LoyaltyTransactionType = "manual"
	LoyaltyTransactionTypeExpiration   LoyaltyTransactionType = "expiration"
	LoyaltyTransactionTypeCancellation LoyaltyTransactionType = "cancellation"
)

var validLoyaltyTransactionTypes = []LoyaltyTransactionType{
	LoyaltyTransactionTypeOrder,
	LoyaltyTransactionTypeReward,
	LoyaltyTransactionTypeManual,
	LoyaltyTransactionTypeExpiration,
	LoyaltyTransactionTypeCancellation,
}

// String implements fmt.Stringer.
func (t LoyaltyTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known LoyaltyTransactionType.
func (t LoyaltyTransactionType) IsValid() bool {
	for _, candidate := range validLoyaltyTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLoyaltyTransactionType converts raw input into a LoyaltyTransactionType.
func ParseLoyaltyTransactionType(value string) (LoyaltyTransactionType, error) {
	for _, candidate := range validLoyaltyTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty transaction type %q", value)
}
