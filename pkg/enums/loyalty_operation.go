package enums

import "fmt"

// LoyaltyOperation is the direction of a ledger entry against the available balance.
type LoyaltyOperation string

const (
	LoyaltyOperationCredit LoyaltyOperation = "credit"
	LoyaltyOperationDebit  LoyaltyOperation = "debit"
)

var validLoyaltyOperations = []LoyaltyOperation{
	LoyaltyOperationCredit,
	LoyaltyOperationDebit,
}

// String implements fmt.Stringer.
func (o LoyaltyOperation) String() string {
	return string(o)
}

// IsValid reports whether the value is a known LoyaltyOperation.
func (o LoyaltyOperation) IsValid() bool {
	for _, candidate := range validLoyaltyOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// Inverse returns the opposite operation, used when writing compensating entries.
func (o LoyaltyOperation) Inverse() LoyaltyOperation {
	if o == LoyaltyOperationCredit {
		return LoyaltyOperationDebit
	}
	return LoyaltyOperationCredit
}

// ParseLoyaltyOperation converts raw input into a LoyaltyOperation.
func ParseLoyaltyOperation(value string) (LoyaltyOperation, error) {
	for _, candidate := range validLoyaltyOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty operation %q", value)
}
