package mealplan

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFillFallbackRoundRobinABC(t *testing.T) {
	a := recipe("A", mealTypePtr(Breakfast))
	b := recipe("B", mealTypePtr(Breakfast))
	c := recipe("C", mealTypePtr(Breakfast))
	req := PlanGenerationRequest{
		Candidates:  []RecipeCandidate{a, b, c},
		StartDate:   day(t, "2024-03-01"),
		EndDate:     day(t, "2024-03-03"),
		MealsPerDay: []MealType{Breakfast},
	}

	result := FillFallback(req, "provider down")

	require.Len(t, result.Assignments, 3)
	require.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, []uuid.UUID{
		result.Assignments[0].RecipeID,
		result.Assignments[1].RecipeID,
		result.Assignments[2].RecipeID,
	})
	for i, assignment := range result.Assignments {
		require.Equal(t, Breakfast, assignment.MealType)
		require.Equal(t, 1, assignment.Servings)
		require.Equal(t, req.StartDate.AddDate(0, 0, i), assignment.Date)
		require.NotEmpty(t, assignment.Reasoning)
	}
	require.Equal(t, SourceFallback, result.Source)
	require.Contains(t, result.Summary, "fallback")
	require.Contains(t, result.Summary, "provider down")
	require.Nil(t, result.TotalEstimatedCost)
}

func TestFillFallbackCoversEverySlot(t *testing.T) {
	candidates := []RecipeCandidate{
		recipe("oats", mealTypePtr(Breakfast)),
		recipe("salad", mealTypePtr(Lunch)),
		recipe("stew", nil),
	}
	req := PlanGenerationRequest{
		Candidates:  candidates,
		StartDate:   day(t, "2024-03-01"),
		EndDate:     day(t, "2024-03-07"),
		MealsPerDay: []MealType{Breakfast, Lunch, Dinner, Snack},
	}

	result := FillFallback(req, "timeout")

	require.Len(t, result.Assignments, 7*4)
	catalog := map[uuid.UUID]struct{}{}
	for _, c := range candidates {
		catalog[c.ID] = struct{}{}
	}
	for _, a := range result.Assignments {
		_, ok := catalog[a.RecipeID]
		require.True(t, ok)
		require.Contains(t, AllMealTypes, a.MealType)
	}
}

func TestFillFallbackPoolPrefersExactThenAgnostic(t *testing.T) {
	lunchOnly := recipe("salad", mealTypePtr(Lunch))
	anyMeal := recipe("stew", nil)
	req := PlanGenerationRequest{
		Candidates:  []RecipeCandidate{lunchOnly, anyMeal},
		StartDate:   day(t, "2024-03-01"),
		EndDate:     day(t, "2024-03-01"),
		MealsPerDay: []MealType{Dinner},
	}

	result := FillFallback(req, "")
	require.Len(t, result.Assignments, 1)
	require.Equal(t, anyMeal.ID, result.Assignments[0].RecipeID)
}

func TestFillFallbackUsesWholeCatalogWhenPoolEmpty(t *testing.T) {
	breakfast := recipe("oats", mealTypePtr(Breakfast))
	req := PlanGenerationRequest{
		Candidates:  []RecipeCandidate{breakfast},
		StartDate:   day(t, "2024-03-01"),
		EndDate:     day(t, "2024-03-02"),
		MealsPerDay: []MealType{Dinner},
	}

	result := FillFallback(req, "")
	require.Len(t, result.Assignments, 2)
	require.Equal(t, breakfast.ID, result.Assignments[1].RecipeID)
}

func TestFillFallbackNoRepeatUntilExhausted(t *testing.T) {
	candidates := make([]RecipeCandidate, 0, 10)
	for i := 0; i < 10; i++ {
		candidates = append(candidates, recipe("r", nil))
	}
	req := PlanGenerationRequest{
		Candidates:  candidates,
		StartDate:   day(t, "2024-03-01"),
		EndDate:     day(t, "2024-03-05"),
		MealsPerDay: []MealType{Breakfast, Lunch, Dinner},
	}

	result := FillFallback(req, "")
	require.Len(t, result.Assignments, 15)

	seen := map[uuid.UUID]struct{}{}
	for i, a := range result.Assignments {
		if i < len(candidates) {
			_, dup := seen[a.RecipeID]
			require.False(t, dup, "recipe repeated at slot %d before catalog exhausted", i)
		}
		seen[a.RecipeID] = struct{}{}
	}
	require.Len(t, seen, len(candidates))
}

func TestFillFallbackIsDeterministic(t *testing.T) {
	candidates := []RecipeCandidate{recipe("a", nil), recipe("b", mealTypePtr(Lunch)), recipe("c", nil)}
	req := PlanGenerationRequest{
		Candidates:  candidates,
		StartDate:   day(t, "2024-03-01"),
		EndDate:     day(t, "2024-03-04"),
		MealsPerDay: []MealType{Lunch, Dinner},
	}
	require.Equal(t, FillFallback(req, "x"), FillFallback(req, "x"))
}

func TestFillFallbackEmptyCatalogProducesNothing(t *testing.T) {
	req := PlanGenerationRequest{
		StartDate:   day(t, "2024-03-01"),
		EndDate:     day(t, "2024-03-02"),
		MealsPerDay: []MealType{Lunch},
	}
	result := FillFallback(req, "x")
	require.Empty(t, result.Assignments)
}

func TestFillFallbackSumsKnownCosts(t *testing.T) {
	priced := recipe("priced", nil)
	priced.EstimatedCost = floatPtr(4.5)
	unpriced := recipe("unpriced", nil)
	req := PlanGenerationRequest{
		Candidates:  []RecipeCandidate{priced, unpriced},
		StartDate:   day(t, "2024-03-01"),
		EndDate:     day(t, "2024-03-01"),
		MealsPerDay: []MealType{Lunch, Dinner},
	}

	result := FillFallback(req, "")
	require.NotNil(t, result.TotalEstimatedCost)
	require.InDelta(t, 4.5, *result.TotalEstimatedCost, 0.0001)
	require.NotNil(t, result.Assignments[0].EstimatedCost)
	require.Nil(t, result.Assignments[1].EstimatedCost)
}

func TestFillFallbackDisclosesCuisineRelaxation(t *testing.T) {
	req := PlanGenerationRequest{
		Candidates:             []RecipeCandidate{recipe("a", nil)},
		StartDate:              day(t, "2024-03-01"),
		EndDate:                day(t, "2024-03-01"),
		MealsPerDay:            []MealType{Lunch},
		CuisineFallbackApplied: true,
	}
	result := FillFallback(req, "x")
	require.True(t, result.CuisineFallbackApplied)
	require.Contains(t, result.Summary, "preferred cuisines")
}
