package enums

import "fmt"

// InteractionType classifies a tracked user action on a product.
type InteractionType string

const (
	InteractionTypeView      InteractionType = "view"
	InteractionTypeClick     InteractionType = "click"
	InteractionTypeAddToCart InteractionType = "add_to_cart"
	InteractionTypeWishlist  InteractionType = "wishlist"
	InteractionTypeCompare   InteractionType = "compare"
	InteractionTypePurchase  InteractionType = "purchase"
)

var validInteractionTypes = []InteractionType{
	InteractionTypeView,
	InteractionTypeClick,
	InteractionTypeAddToCart,
	InteractionTypeWishlist,
	InteractionTypeCompare,
	InteractionTypePurchase,
}

// baselineInteractionScore is applied to any type without an explicit weight.
const baselineInteractionScore = 1

var interactionScores = map[InteractionType]int{
	InteractionTypeView:      1,
	InteractionTypeClick:     1,
	InteractionTypeAddToCart: 3,
	InteractionTypeWishlist:  2,
	InteractionTypeCompare:   1,
	InteractionTypePurchase:  10,
}

// String implements fmt.Stringer.
func (t InteractionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known InteractionType.
func (t InteractionType) IsValid() bool {
	for _, candidate := range validInteractionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Score returns the interaction weight used by ranking queries. Types without
// an explicit entry fall back to the baseline weight of 1.
func (t InteractionType) Score() int {
	if score, ok := interactionScores[t]; ok {
		return score
	}
	return baselineInteractionScore
}

// ParseInteractionType converts raw input into an InteractionType.
func ParseInteractionType(value string) (InteractionType, error) {
	for _, candidate := range validInteractionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid interaction type %q", value)
}
