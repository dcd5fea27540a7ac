package enums

import "fmt"

// RewardType maps to the kinds of rewards the loyalty catalog offers.
type RewardType string

const (
	RewardTypeDiscount     RewardType = "discount"
	RewardTypeFreeShipping RewardType = "free_shipping"
	RewardTypeGift         RewardType = "gift"
	RewardTypeVoucher      RewardType = "voucher"
)

var validRewardTypes = []RewardType{
	RewardTypeDiscount,
	RewardTypeFreeShipping,
	RewardTypeGift,
	RewardTypeVoucher,
}

// String implements fmt.Stringer.
func (t RewardType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known RewardType.
func (t RewardType) IsValid() bool {
	for _, candidate := range validRewardTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseRewardType converts raw input into a RewardType.
func ParseRewardType(value string) (RewardType, error) {
	for _, candidate := range validRewardTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward type %q", value)
}
