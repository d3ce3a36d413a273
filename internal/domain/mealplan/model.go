package mealplan

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/meal-planner/pkg/util"
)

// MealType names a meal slot within a day.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// AllMealTypes is the allowed set, in canonical order.
var AllMealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

// DefaultMealsPerDay applies when a request does not name meal types.
var DefaultMealsPerDay = []MealType{Breakfast, Lunch, Dinner}

// ParseMealType normalises casing and whitespace.
func ParseMealType(value string) (MealType, bool) {
	mt := MealType(strings.ToLower(strings.TrimSpace(value)))
	switch mt {
	case Breakfast, Lunch, Dinner, Snack:
		return mt, true
	default:
		return "", false
	}
}

// Source tells callers which path produced a plan or swap.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
)

// MacroTargets are optional daily goals.
type MacroTargets struct {
	Calories *float64 `json:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fat      *float64 `json:"fat,omitempty"`
}

// MemberProfile holds one household member's constraints.
type MemberProfile struct {
	MemberID   uuid.UUID    `json:"memberId"`
	Name       string       `json:"name,omitempty"`
	Age        *int         `json:"age,omitempty"`
	Allergens  []string     `json:"allergens"`
	Diets      []string     `json:"diets"`
	Conditions []string     `json:"conditions"`
	Targets    MacroTargets `json:"targets"`
}

// RecipeCandidate is the flattened projection of a catalog recipe.
type RecipeCandidate struct {
	ID              uuid.UUID  `json:"id" yaml:"id"`
	Title           string     `json:"title" yaml:"title"`
	MealType        *MealType  `json:"mealType,omitempty" yaml:"mealType"`
	CuisineID       *uuid.UUID `json:"cuisineId,omitempty" yaml:"cuisineId"`
	Cuisine         string     `json:"cuisine,omitempty" yaml:"cuisine"`
	Calories        float64    `json:"calories" yaml:"calories"`
	Protein         float64    `json:"protein" yaml:"protein"`
	Carbs           float64    `json:"carbs" yaml:"carbs"`
	Fat             float64    `json:"fat" yaml:"fat"`
	CookTimeMinutes *int       `json:"cookTimeMinutes,omitempty" yaml:"cookTimeMinutes"`
	EstimatedCost   *float64   `json:"estimatedCost,omitempty" yaml:"estimatedCost"`
	Allergens       []string   `json:"allergens" yaml:"allergens"`
	Diets           []string   `json:"diets" yaml:"diets"`
}

// Budget caps spend over the whole horizon.
type Budget struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PlanGenerationRequest is assembled once per call and never mutated.
type PlanGenerationRequest struct {
	Members                []MemberProfile
	Candidates             []RecipeCandidate
	StartDate              time.Time
	EndDate                time.Time
	MealsPerDay            []MealType
	Budget                 *Budget
	MaxCookTimeMinutes     *int
	PreferredCuisines      []string
	ExcludedRecipeIDs      []uuid.UUID
	CuisineFallbackApplied bool
}

// SlotCount returns days × meals.
func (r PlanGenerationRequest) SlotCount() int {
	days := dayCount(r.StartDate, r.EndDate)
	if days < 0 {
		days = 0
	}
	return days * len(r.MealsPerDay)
}

// MealAssignment fills one slot.
type MealAssignment struct {
	Date          time.Time
	MealType      MealType
	RecipeID      uuid.UUID
	Servings      int
	EstimatedCost *float64
	Reasoning     string
}

type mealAssignmentJSON struct {
	Date          string    `json:"date"`
	MealType      MealType  `json:"mealType"`
	RecipeID      uuid.UUID `json:"recipeId"`
	Servings      int       `json:"servings"`
	EstimatedCost *float64  `json:"estimatedCost"`
	Reasoning     string    `json:"reasoning"`
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (a MealAssignment) MarshalJSON() ([]byte, error) {
	return json.Marshal(mealAssignmentJSON{
		Date:          a.Date.Format(util.DateLayout),
		MealType:      a.MealType,
		RecipeID:      a.RecipeID,
		Servings:      a.Servings,
		EstimatedCost: a.EstimatedCost,
		Reasoning:     a.Reasoning,
	})
}

// PlanResult is returned by Generate.
type PlanResult struct {
	Assignments            []MealAssignment `json:"assignments"`
	TotalEstimatedCost     *float64         `json:"totalEstimatedCost"`
	Summary                string           `json:"summary"`
	Source                 Source           `json:"source"`
	FallbackReason         string           `json:"fallbackReason,omitempty"`
	CuisineFallbackApplied bool             `json:"cuisineFallbackApplied"`
}

// GenerateRequest is the caller-facing input for plan generation.
type GenerateRequest struct {
	CustomerID          uuid.UUID   `json:"-"`
	MemberIDs           []uuid.UUID `json:"memberIds"`
	StartDate           string      `json:"startDate"`
	EndDate             string      `json:"endDate"`
	MealsPerDay         []string    `json:"mealsPerDay"`
	Budget              *Budget     `json:"budget"`
	MaxCookTimeMinutes  *int        `json:"maxCookTimeMinutes"`
	PreferredCuisineIDs []uuid.UUID `json:"preferredCuisineIds"`
	ExcludeRecipeIDs    []uuid.UUID `json:"excludeRecipeIds"`
}

// SwapRequest asks for one replacement recipe.
type SwapRequest struct {
	CustomerID         uuid.UUID   `json:"-"`
	MemberIDs          []uuid.UUID `json:"memberIds"`
	CurrentRecipeID    uuid.UUID   `json:"currentRecipeId"`
	CurrentTitle       string      `json:"currentTitle"`
	Date               string      `json:"date"`
	MealType           string      `json:"mealType"`
	Reason             string      `json:"reason"`
	ExcludeRecipeIDs   []uuid.UUID `json:"excludeRecipeIds"`
	MaxCookTimeMinutes *int        `json:"maxCookTimeMinutes"`
}

// SwapResult is the replacement for one assignment.
type SwapResult struct {
	RecipeID      uuid.UUID `json:"recipeId"`
	Servings      int       `json:"servings"`
	EstimatedCost *float64  `json:"estimatedCost"`
	Reasoning     string    `json:"reasoning"`
	Source        Source    `json:"source"`
}

// CandidateFilter bounds a catalog query. No ordering is implied.
type CandidateFilter struct {
	ExcludeIDs         []uuid.UUID
	MaxCookTimeMinutes *int
	CuisineIDs         []uuid.UUID
	Limit              int
	// SampleSeed, when set, makes the sample stable: the same seed over the
	// same catalog yields the same recipes.
	SampleSeed string
}
