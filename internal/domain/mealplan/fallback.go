package mealplan

import (
	"fmt"

	"github.com/google/uuid"
)

const fallbackRationale = "Selected by the rule-based planner because the generative planner was unavailable."

// FillFallback builds a plan without any external call. Slots are filled in
// date then meal order from a pool of exact meal-type matches followed by
// untyped recipes (or the whole catalog when both are empty). A round-robin
// cursor advanced once per filled slot picks within the pool, preferring
// recipes not used yet. Slots with an empty pool are skipped.
func FillFallback(req PlanGenerationRequest, reason string) PlanResult {
	used := make(map[uuid.UUID]struct{}, len(req.Candidates))
	cursor := 0
	assignments := make([]MealAssignment, 0, req.SlotCount())

	var (
		total    float64
		hasTotal bool
	)
	for day := req.StartDate; !day.After(req.EndDate); day = day.AddDate(0, 0, 1) {
		for _, mealType := range req.MealsPerDay {
			pool := slotPool(req.Candidates, mealType)
			if len(pool) == 0 {
				continue
			}
			pick := pickRoundRobin(pool, used, cursor)
			cursor++
			used[pick.ID] = struct{}{}

			var cost *float64
			if pick.EstimatedCost != nil {
				c := *pick.EstimatedCost
				cost = &c
				total += c
				hasTotal = true
			}
			assignments = append(assignments, MealAssignment{
				Date:          day,
				MealType:      mealType,
				RecipeID:      pick.ID,
				Servings:      1,
				EstimatedCost: cost,
				Reasoning:     fallbackRationale,
			})
		}
	}

	result := PlanResult{
		Assignments:            assignments,
		Summary:                fallbackSummary(len(assignments), reason, req.CuisineFallbackApplied),
		Source:                 SourceFallback,
		FallbackReason:         reason,
		CuisineFallbackApplied: req.CuisineFallbackApplied,
	}
	if hasTotal {
		result.TotalEstimatedCost = &total
	}
	return result
}

// slotPool returns exact meal-type matches, then meal-type agnostic recipes.
func slotPool(candidates []RecipeCandidate, mealType MealType) []RecipeCandidate {
	var exact, agnostic []RecipeCandidate
	for _, c := range candidates {
		switch {
		case c.MealType == nil:
			agnostic = append(agnostic, c)
		case *c.MealType == mealType:
			exact = append(exact, c)
		}
	}
	pool := append(exact, agnostic...)
	if len(pool) == 0 {
		return candidates
	}
	return pool
}

// pickRoundRobin starts at cursor%len(pool) and walks forward to the first
// unused recipe, wrapping once. When everything was used it repeats the
// cursor position.
func pickRoundRobin(pool []RecipeCandidate, used map[uuid.UUID]struct{}, cursor int) RecipeCandidate {
	start := cursor % len(pool)
	for i := 0; i < len(pool); i++ {
		c := pool[(start+i)%len(pool)]
		if _, ok := used[c.ID]; !ok {
			return c
		}
	}
	return pool[start]
}

func fallbackSummary(count int, reason string, cuisineRelaxed bool) string {
	summary := fmt.Sprintf("Generated %d meals using the rule-based fallback planner", count)
	if reason != "" {
		summary += fmt.Sprintf(" (reason: %s)", reason)
	}
	summary += "."
	if cuisineRelaxed {
		summary += " " + cuisineRelaxedNote
	}
	return summary
}

const cuisineRelaxedNote = "No recipes matched the preferred cuisines, so all cuisines were considered."
