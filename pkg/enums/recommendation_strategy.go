package enums

import "fmt"

// RecommendationStrategy names one of the independent ranking strategies.
type RecommendationStrategy string

const (
	StrategyPersonalized             RecommendationStrategy = "personalized"
	StrategyPopular                  RecommendationStrategy = "popular"
	StrategyRecentlyViewed           RecommendationStrategy = "recently_viewed"
	StrategyTrending                 RecommendationStrategy = "trending"
	StrategySimilar                  RecommendationStrategy = "similar"
	StrategyFrequentlyBoughtTogether RecommendationStrategy = "frequently_bought_together"
	StrategyComplementary            RecommendationStrategy = "complementary"
	StrategyJobBased                 RecommendationStrategy = "job_based"
	StrategyNew                      RecommendationStrategy = "new"
)

var validRecommendationStrategies = []RecommendationStrategy{
	StrategyPersonalized,
	StrategyPopular,
	StrategyRecentlyViewed,
	StrategyTrending,
	StrategySimilar,
	StrategyFrequentlyBoughtTogether,
	StrategyComplementary,
	StrategyJobBased,
	StrategyNew,
}

// String implements fmt.Stringer.
func (s RecommendationStrategy) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RecommendationStrategy.
func (s RecommendationStrategy) IsValid() bool {
	for _, candidate := range validRecommendationStrategies {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRecommendationStrategy converts raw input into a RecommendationStrategy.
func ParseRecommendationStrategy(value string) (RecommendationStrategy, error) {
	for _, candidate := range validRecommendationStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recommendation strategy %q", value)
}
