package loyalty

// Tier is a loyalty level derived from lifetime points. Levels are keyed on
// total points earned, not the spendable balance, so redeeming never demotes.
type Tier string

const (
	TierStandard Tier = "Standard"
	TierBronze   Tier = "Bronze"
	TierArgent   Tier = "Argent"
	TierOr       Tier = "Or"
	TierPlatine  Tier = "Platine"
)

const (
	bronzeThreshold  = 500
	argentThreshold  = 2000
	orThreshold      = 5000
	platineThreshold = 10000
)

// TierFor maps lifetime points to a tier.
func TierFor(totalPoints int) Tier {
	switch {
	case totalPoints >= platineThreshold:
		return TierPlatine
	case totalPoints >= orThreshold:
		return TierOr
	case totalPoints >= argentThreshold:
		return TierArgent
	case totalPoints >= bronzeThreshold:
		return TierBronze
	default:
		return TierStandard
	}
}

// Color returns the UI hex color for the tier.
func (t Tier) Color() string {
	switch t {
	case TierPlatine:
		return "#E5E4E2"
	case TierOr:
		return "#FFD700"
	case TierArgent:
		return "#C0C0C0"
	case TierBronze:
		return "#CD7F32"
	default:
		return "#6B7280"
	}
}

// Benefits lists the perks granted at the tier.
func (t Tier) Benefits() []string {
	switch t {
	case TierPlatine:
		return []string{
			"Réduction de 15% sur tous les produits",
			"Livraison gratuite illimitée",
			"Accès prioritaire aux ventes privées",
			"Support client premium 24/7",
			"Points bonus x3 sur tous les achats",
		}
	case TierOr:
		return []string{
			"Réduction de 10% sur tous les produits",
			"Livraison gratuite sur commandes > 50€",
			"Accès anticipé aux ventes privées",
			"Points bonus x2 sur tous les achats",
		}
	case TierArgent:
		return []string{
			"Réduction de 5% sur tous les produits",
			"Livraison gratuite sur commandes > 100€",
			"Points bonus x1.5 sur tous les achats",
		}
	case TierBronze:
		return []string{
			"Réduction de 3% sur tous les produits",
			"Offres exclusives membres",
		}
	default:
		return []string{
			"Accumulez des points sur vos achats",
		}
	}
}

// PointsToNextTier returns how many points are missing for the next level,
// or nil at the top tier.
func PointsToNextTier(totalPoints int) *int {
	var next int
	switch TierFor(totalPoints) {
	case TierStandard:
		next = bronzeThreshold
	case TierBronze:
		next = argentThreshold
	case TierArgent:
		next = orThreshold
	case TierOr:
		next = platineThreshold
	default:
		return nil
	}
	missing := next - totalPoints
	return &missing
}
