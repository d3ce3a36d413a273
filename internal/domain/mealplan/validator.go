package mealplan

import (
	"time"

	"github.com/google/uuid"
)

// slotKey identifies a (date, meal type) pair.
type slotKey struct {
	date     string
	mealType MealType
}

// ValidateAssignments keeps only assignments that reference a catalog recipe,
// use an allowed meal type, fall inside [start, end] and do not refill a slot
// already taken by an earlier entry. Meal types are normalised on the way.
func ValidateAssignments(raw []MealAssignment, catalog []RecipeCandidate, allowed []MealType, start, end time.Time) []MealAssignment {
	ids := make(map[uuid.UUID]struct{}, len(catalog))
	for _, c := range catalog {
		ids[c.ID] = struct{}{}
	}
	allowedSet := make(map[MealType]struct{}, len(allowed))
	for _, mt := range allowed {
		allowedSet[mt] = struct{}{}
	}

	filled := make(map[slotKey]struct{}, len(raw))
	valid := make([]MealAssignment, 0, len(raw))
	for _, a := range raw {
		mt, ok := ParseMealType(string(a.MealType))
		if !ok {
			continue
		}
		if _, ok := allowedSet[mt]; !ok {
			continue
		}
		if _, ok := ids[a.RecipeID]; !ok {
			continue
		}
		if !start.IsZero() && a.Date.Before(start) {
			continue
		}
		if !end.IsZero() && a.Date.After(end) {
			continue
		}
		key := slotKey{date: a.Date.Format("2006-01-02"), mealType: mt}
		if _, dup := filled[key]; dup {
			continue
		}
		filled[key] = struct{}{}
		a.MealType = mt
		if a.Servings < 1 {
			a.Servings = 1
		}
		valid = append(valid, a)
	}
	return valid
}
