package mealplan

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestValidateAssignmentsFiltersInvalidEntries(t *testing.T) {
	known := recipe("known", nil)
	other := recipe("other", nil)
	start := day(t, "2024-03-01")
	end := day(t, "2024-03-02")

	raw := []MealAssignment{
		{Date: start, MealType: "Breakfast", RecipeID: known.ID, Servings: 2},
		{Date: start, MealType: "lunch", RecipeID: uuid.New(), Servings: 1},
		{Date: start, MealType: "brunch", RecipeID: known.ID, Servings: 1},
		{Date: start, MealType: "breakfast", RecipeID: other.ID, Servings: 1},
		{Date: day(t, "2024-03-05"), MealType: "dinner", RecipeID: known.ID, Servings: 1},
		{Date: end, MealType: " DINNER ", RecipeID: other.ID, Servings: 0},
	}

	valid := ValidateAssignments(raw, []RecipeCandidate{known, other}, AllMealTypes, start, end)

	require.Len(t, valid, 2)
	require.Equal(t, Breakfast, valid[0].MealType)
	require.Equal(t, known.ID, valid[0].RecipeID)
	require.Equal(t, 2, valid[0].Servings)
	require.Equal(t, Dinner, valid[1].MealType)
	require.Equal(t, 1, valid[1].Servings)
}

func TestValidateAssignmentsRespectsAllowedSet(t *testing.T) {
	known := recipe("known", nil)
	start := day(t, "2024-03-01")
	raw := []MealAssignment{{Date: start, MealType: Snack, RecipeID: known.ID, Servings: 1}}

	require.Empty(t, ValidateAssignments(raw, []RecipeCandidate{known}, []MealType{Breakfast}, start, start))
	require.Len(t, ValidateAssignments(raw, []RecipeCandidate{known}, AllMealTypes, start, start), 1)
}
