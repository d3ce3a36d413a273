package mealplan

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/meal-planner/pkg/errors"
	"github.com/yanqian/meal-planner/pkg/util"
)

const (
	maxResponseBytes = 1 << 20
	maxPlanEntries   = 500
)

const invalidEntryMessage = "Invalid meal entry"

// rawPlan is the loosely validated provider output.
type rawPlan struct {
	Assignments        []MealAssignment
	Summary            string
	TotalEstimatedCost *float64
}

func malformed(message string, err error) error {
	return apperrors.Wrap("malformed_response", message, err)
}

// parsePlanResponse decodes provider output defensively. Any structural
// problem rejects the whole response.
func parsePlanResponse(content string, slots int) (rawPlan, error) {
	body, err := boundedBody(content)
	if err != nil {
		return rawPlan{}, err
	}

	var entries []json.RawMessage
	var plan rawPlan
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &entries); err != nil {
			return rawPlan{}, malformed("plan response is not valid JSON", err)
		}
	} else {
		var top map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &top); err != nil {
			return rawPlan{}, malformed("plan response is not valid JSON", err)
		}
		raw, ok := firstRaw(top, "assignments", "meals", "plan")
		if !ok {
			return rawPlan{}, malformed("plan response has no assignments", nil)
		}
		if err := json.Unmarshal(raw, &entries); err != nil {
			return rawPlan{}, malformed("assignments must be an array", err)
		}
		if raw, ok := firstRaw(top, "summary"); ok {
			var summary string
			if err := json.Unmarshal(raw, &summary); err == nil {
				plan.Summary = strings.TrimSpace(summary)
			}
		}
		if raw, ok := firstRaw(top, "total_estimated_cost", "totalEstimatedCost"); ok {
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				if cost, ok := asNumber(v); ok && cost >= 0 {
					plan.TotalEstimatedCost = &cost
				}
			}
		}
	}

	limit := maxPlanEntries
	if slots > 0 && 2*slots < limit {
		limit = 2 * slots
	}
	if len(entries) > limit {
		return rawPlan{}, malformed(fmt.Sprintf("plan response has %d entries, limit is %d", len(entries), limit), nil)
	}

	plan.Assignments = make([]MealAssignment, 0, len(entries))
	for _, raw := range entries {
		var entry map[string]any
		if err := json.Unmarshal(raw, &entry); err != nil {
			return rawPlan{}, malformed(invalidEntryMessage, err)
		}
		assignment, err := decodeAssignment(entry)
		if err != nil {
			return rawPlan{}, malformed(invalidEntryMessage, err)
		}
		plan.Assignments = append(plan.Assignments, assignment)
	}
	return plan, nil
}

// decodeAssignment requires recipe id, date and meal type to be present as
// strings. Values that do not parse are kept as zero values so the validator
// can drop them.
func decodeAssignment(entry map[string]any) (MealAssignment, error) {
	recipeID, err := requiredString(entry, "recipe_id", "recipeId")
	if err != nil {
		return MealAssignment{}, err
	}
	dateValue, err := requiredString(entry, "date")
	if err != nil {
		return MealAssignment{}, err
	}
	mealType, err := requiredString(entry, "meal_type", "mealType")
	if err != nil {
		return MealAssignment{}, err
	}

	a := MealAssignment{
		MealType: MealType(strings.ToLower(strings.TrimSpace(mealType))),
		Servings: servingsOf(entry),
	}
	if id, err := uuid.Parse(strings.TrimSpace(recipeID)); err == nil {
		a.RecipeID = id
	}
	if date, err := util.ParseDate(strings.TrimSpace(dateValue)); err == nil {
		a.Date = date
	}
	if v, ok := lookup(entry, "estimated_cost", "estimatedCost"); ok {
		if cost, ok := asNumber(v); ok && cost >= 0 {
			a.EstimatedCost = &cost
		}
	}
	if v, ok := lookup(entry, "reasoning", "rationale"); ok {
		if s, ok := v.(string); ok {
			a.Reasoning = strings.TrimSpace(s)
		}
	}
	return a, nil
}

// parseSwapResponse extracts a single replacement from provider output.
func parseSwapResponse(content string) (SwapSuggestion, error) {
	body, err := boundedBody(content)
	if err != nil {
		return SwapSuggestion{}, err
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return SwapSuggestion{}, malformed("swap response is not valid JSON", err)
	}
	entry := make(map[string]any, len(top))
	for key, raw := range top {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return SwapSuggestion{}, malformed("swap response is not valid JSON", err)
		}
		entry[key] = v
	}

	recipeID, err := requiredString(entry, "recipe_id", "recipeId")
	if err != nil {
		return SwapSuggestion{}, malformed("swap response is missing recipe_id", err)
	}
	id, err := uuid.Parse(strings.TrimSpace(recipeID))
	if err != nil {
		return SwapSuggestion{}, malformed("swap response recipe_id is not a uuid", err)
	}
	out := SwapSuggestion{RecipeID: id, Servings: servingsOf(entry)}
	if v, ok := lookup(entry, "estimated_cost", "estimatedCost"); ok {
		if cost, ok := asNumber(v); ok && cost >= 0 {
			out.EstimatedCost = &cost
		}
	}
	if v, ok := lookup(entry, "reasoning", "rationale"); ok {
		if s, ok := v.(string); ok {
			out.Reasoning = strings.TrimSpace(s)
		}
	}
	return out, nil
}

func boundedBody(content string) (string, error) {
	if len(content) > maxResponseBytes {
		return "", malformed("provider response too large", nil)
	}
	body := stripCodeFence(content)
	if body == "" {
		return "", malformed("provider response was empty", nil)
	}
	return body, nil
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// drop the info string such as ```json
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func firstRaw(m map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if raw, ok := m[key]; ok && len(raw) > 0 && string(raw) != "null" {
			return raw, true
		}
	}
	return nil, false
}

func lookup(entry map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := entry[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func requiredString(entry map[string]any, keys ...string) (string, error) {
	v, ok := lookup(entry, keys...)
	if !ok {
		return "", fmt.Errorf("missing %s", keys[0])
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", keys[0])
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s is empty", keys[0])
	}
	return s, nil
}

func servingsOf(entry map[string]any) int {
	v, ok := lookup(entry, "servings")
	if !ok {
		return 1
	}
	n, ok := asNumber(v)
	if !ok || n < 1 {
		return 1
	}
	if n > 100 {
		return 100
	}
	return int(math.Round(n))
}

func asNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return val, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
