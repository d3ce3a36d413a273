package mealplan

import (
	"context"

	"github.com/google/uuid"
)

// CatalogRepository returns recipes matching a filter, in no guaranteed order.
type CatalogRepository interface {
	FetchCandidates(ctx context.Context, filter CandidateFilter) ([]RecipeCandidate, error)
}

// ProfileRepository resolves member constraint profiles. Unknown ids are absent from the map.
type ProfileRepository interface {
	GetConstraintProfiles(ctx context.Context, memberIDs []uuid.UUID) (map[uuid.UUID]MemberProfile, error)
}

// RatingRepository lists recipes the customer rated poorly.
type RatingRepository interface {
	GetLowRatedRecipeIDs(ctx context.Context, customerID uuid.UUID) ([]uuid.UUID, error)
}

// SwapSuggestion is the cached outcome of a generative swap.
type SwapSuggestion struct {
	RecipeID      uuid.UUID `json:"recipeId"`
	Servings      int       `json:"servings"`
	EstimatedCost *float64  `json:"estimatedCost,omitempty"`
	Reasoning     string    `json:"reasoning"`
}

// SuggestionStore caches swap suggestions by content key.
type SuggestionStore interface {
	Get(ctx context.Context, key string) (SwapSuggestion, bool, error)
	Set(ctx context.Context, key string, suggestion SwapSuggestion) error
}
