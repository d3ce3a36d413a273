package mealplan

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/meal-planner/pkg/errors"
)

func TestParsePlanResponseHandlesFencesAndAliases(t *testing.T) {
	id := uuid.New()
	content := "```json\n" + fmt.Sprintf(`{
  "assignments": [
    {"date":"2024-03-01","meal_type":"Lunch","recipe_id":"%s","servings":"2","estimated_cost":3.5,"reasoning":"high protein"},
    {"date":"2024-03-01","mealType":"dinner","recipeId":"%s"}
  ],
  "summary":" balanced week ",
  "total_estimated_cost": 7
}`, id, id) + "\n```"

	plan, err := parsePlanResponse(content, 2)
	require.NoError(t, err)
	require.Len(t, plan.Assignments, 2)
	require.Equal(t, "balanced week", plan.Summary)
	require.InDelta(t, 7, *plan.TotalEstimatedCost, 0.001)

	first := plan.Assignments[0]
	require.Equal(t, id, first.RecipeID)
	require.Equal(t, MealType("lunch"), first.MealType)
	require.Equal(t, 2, first.Servings)
	require.InDelta(t, 3.5, *first.EstimatedCost, 0.001)
	require.Equal(t, "high protein", first.Reasoning)

	second := plan.Assignments[1]
	require.Equal(t, Dinner, second.MealType)
	require.Equal(t, 1, second.Servings)
	require.Nil(t, second.EstimatedCost)
}

func TestParsePlanResponseRejectsMissingIdentity(t *testing.T) {
	content := `{"assignments":[{"date":"2024-03-01","meal_type":"lunch","recipe_id":"` + uuid.NewString() + `"},{"date":"2024-03-01","meal_type":"dinner"}]}`

	_, err := parsePlanResponse(content, 2)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "malformed_response"))
	require.Contains(t, err.Error(), "Invalid meal entry")
}

func TestParsePlanResponseRejectsWrongTypes(t *testing.T) {
	content := `{"assignments":[{"date":"2024-03-01","meal_type":3,"recipe_id":"x"}]}`

	_, err := parsePlanResponse(content, 1)
	require.True(t, apperrors.IsCode(err, "malformed_response"))
	require.Contains(t, err.Error(), "Invalid meal entry")
}

func TestParsePlanResponseRejectsInvalidJSON(t *testing.T) {
	for _, content := range []string{"", "not json", `{"assignments": {"a":1}}`, `{"summary":"none"}`, `{"assignments":[1]}`} {
		_, err := parsePlanResponse(content, 1)
		require.True(t, apperrors.IsCode(err, "malformed_response"), content)
	}
}

func TestParsePlanResponseBoundsEntryCount(t *testing.T) {
	entry := `{"date":"2024-03-01","meal_type":"lunch","recipe_id":"` + uuid.NewString() + `"}`
	entries := make([]string, 5)
	for i := range entries {
		entries[i] = entry
	}
	content := `{"assignments":[` + strings.Join(entries, ",") + `]}`

	_, err := parsePlanResponse(content, 2)
	require.True(t, apperrors.IsCode(err, "malformed_response"))

	_, err = parsePlanResponse(content, 3)
	require.NoError(t, err)
}

func TestParsePlanResponseKeepsUnparseableValuesForValidator(t *testing.T) {
	content := `[{"date":"someday","meal_type":"lunch","recipe_id":"not-a-uuid","servings":-4}]`

	plan, err := parsePlanResponse(content, 1)
	require.NoError(t, err)
	require.Len(t, plan.Assignments, 1)
	require.Equal(t, uuid.Nil, plan.Assignments[0].RecipeID)
	require.True(t, plan.Assignments[0].Date.IsZero())
	require.Equal(t, 1, plan.Assignments[0].Servings)
}

func TestParseSwapResponse(t *testing.T) {
	id := uuid.New()
	suggestion, err := parseSwapResponse(fmt.Sprintf("```\n{\"recipeId\":\"%s\",\"servings\":2,\"reasoning\":\"lighter\"}\n```", id))
	require.NoError(t, err)
	require.Equal(t, id, suggestion.RecipeID)
	require.Equal(t, 2, suggestion.Servings)
	require.Equal(t, "lighter", suggestion.Reasoning)

	_, err = parseSwapResponse(`{"servings":1}`)
	require.True(t, apperrors.IsCode(err, "malformed_response"))

	_, err = parseSwapResponse(`{"recipe_id":"nope"}`)
	require.True(t, apperrors.IsCode(err, "malformed_response"))
}
