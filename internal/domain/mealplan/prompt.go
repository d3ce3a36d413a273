package mealplan

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/meal-planner/internal/infra/llm/tokens"
	"github.com/yanqian/meal-planner/pkg/util"
)

func buildPlanSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a meal planning assistant for a household. ")
	b.WriteString("Assign exactly one recipe to every (date, meal_type) slot using ONLY recipe ids from the provided candidate list. ")
	b.WriteString("Never invent ids. Respect every member's allergens and diets, stay within the budget and cook time ceiling when given, ")
	b.WriteString("prefer the preferred cuisines, keep daily calories and macros close to member targets, and avoid repeating a recipe until variety is exhausted.\n")
	b.WriteString("Respond with a single JSON object and nothing else, shaped as:\n")
	b.WriteString(`{"assignments":[{"date":"YYYY-MM-DD","meal_type":"breakfast|lunch|dinner|snack","recipe_id":"<uuid>","servings":1,"estimated_cost":0,"reasoning":"short reason"}],"summary":"one or two sentences","total_estimated_cost":0}`)
	return b.String()
}

func buildSwapSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You replace one meal in an existing plan. Pick exactly one recipe from the alternatives list; never return the current recipe and never invent ids. ")
	b.WriteString("Respect every member's allergens and diets and honour the user's reason when given.\n")
	b.WriteString("Respond with a single JSON object and nothing else, shaped as:\n")
	b.WriteString(`{"recipe_id":"<uuid>","servings":1,"estimated_cost":0,"reasoning":"short reason"}`)
	return b.String()
}

// buildPlanUserPrompt renders the request. Candidates are trimmed to fit the
// token budget; the returned count says how many were kept.
func buildPlanUserPrompt(req PlanGenerationRequest, counter tokens.Estimator, budget int, system string) (string, int) {
	var head strings.Builder
	fmt.Fprintf(&head, "Plan from %s to %s inclusive.\n", req.StartDate.Format(util.DateLayout), req.EndDate.Format(util.DateLayout))
	fmt.Fprintf(&head, "Meals per day (in order): %s\n", joinMealTypes(req.MealsPerDay))
	if req.Budget != nil {
		fmt.Fprintf(&head, "Budget for the whole plan: %.2f %s\n", req.Budget.Amount, req.Budget.Currency)
	}
	if req.MaxCookTimeMinutes != nil {
		fmt.Fprintf(&head, "Maximum cook time per recipe: %d minutes\n", *req.MaxCookTimeMinutes)
	}
	if len(req.PreferredCuisines) > 0 {
		fmt.Fprintf(&head, "Preferred cuisines: %s\n", strings.Join(req.PreferredCuisines, ", "))
	}
	if len(req.ExcludedRecipeIDs) > 0 {
		ids := make([]string, 0, len(req.ExcludedRecipeIDs))
		for _, id := range req.ExcludedRecipeIDs {
			ids = append(ids, id.String())
		}
		fmt.Fprintf(&head, "Never use these recipe ids: %s\n", strings.Join(ids, ", "))
	}
	head.WriteString("\nHousehold members:\n")
	for i, m := range req.Members {
		head.WriteString(describeMember(i+1, m))
	}
	head.WriteString("\nCandidate recipes:\n")

	lines := make([]string, len(req.Candidates))
	for i, c := range req.Candidates {
		lines[i] = describeCandidate(c)
	}
	overhead := counter.Count(system) + counter.Count(head.String())
	keep := tokens.FitPrefix(counter, budget, overhead, lines)

	var b strings.Builder
	b.WriteString(head.String())
	for _, line := range lines[:keep] {
		b.WriteString(line)
	}
	return b.String(), keep
}

func buildSwapUserPrompt(in swapInput) string {
	var b strings.Builder
	title := in.Title
	if title == "" {
		title = "unknown title"
	}
	fmt.Fprintf(&b, "Current recipe: %s (%s)\n", in.Current, title)
	fmt.Fprintf(&b, "Date: %s, meal type: %s\n", in.Date.Format(util.DateLayout), in.MealType)
	if in.Reason != "" {
		fmt.Fprintf(&b, "Reason for swapping: %s\n", in.Reason)
	}
	b.WriteString("\nHousehold members:\n")
	for i, m := range in.Members {
		b.WriteString(describeMember(i+1, m))
	}
	b.WriteString("\nAlternatives:\n")
	for _, c := range in.Alternatives {
		b.WriteString(describeCandidate(c))
	}
	return b.String()
}

func describeMember(n int, m MemberProfile) string {
	parts := []string{fmt.Sprintf("member %d", n)}
	if m.Age != nil {
		parts = append(parts, fmt.Sprintf("age %d", *m.Age))
	}
	if len(m.Allergens) > 0 {
		parts = append(parts, "allergens: "+strings.Join(m.Allergens, ", "))
	}
	if len(m.Diets) > 0 {
		parts = append(parts, "diets: "+strings.Join(m.Diets, ", "))
	}
	if len(m.Conditions) > 0 {
		parts = append(parts, "conditions: "+strings.Join(m.Conditions, ", "))
	}
	if targets := describeTargets(m.Targets); targets != "" {
		parts = append(parts, "daily targets: "+targets)
	}
	return "- " + strings.Join(parts, " | ") + "\n"
}

func describeTargets(t MacroTargets) string {
	var parts []string
	add := func(label string, v *float64, unit string) {
		if v != nil {
			parts = append(parts, label+" "+strconv.FormatFloat(*v, 'f', -1, 64)+unit)
		}
	}
	add("calories", t.Calories, " kcal")
	add("protein", t.Protein, "g")
	add("carbs", t.Carbs, "g")
	add("fat", t.Fat, "g")
	return strings.Join(parts, ", ")
}

func describeCandidate(c RecipeCandidate) string {
	mealType := "any"
	if c.MealType != nil {
		mealType = string(*c.MealType)
	}
	parts := []string{
		"id=" + c.ID.String(),
		c.Title,
		"meal=" + mealType,
	}
	if c.Cuisine != "" {
		parts = append(parts, "cuisine="+c.Cuisine)
	}
	parts = append(parts, fmt.Sprintf("%.0f kcal, P %.0fg, C %.0fg, F %.0fg", c.Calories, c.Protein, c.Carbs, c.Fat))
	if c.CookTimeMinutes != nil {
		parts = append(parts, fmt.Sprintf("cook %d min", *c.CookTimeMinutes))
	}
	if c.EstimatedCost != nil {
		parts = append(parts, fmt.Sprintf("cost %.2f/serving", *c.EstimatedCost))
	}
	if len(c.Allergens) > 0 {
		parts = append(parts, "allergens: "+strings.Join(c.Allergens, ", "))
	}
	if len(c.Diets) > 0 {
		parts = append(parts, "diets: "+strings.Join(c.Diets, ", "))
	}
	return "- " + strings.Join(parts, " | ") + "\n"
}

func joinMealTypes(meals []MealType) string {
	out := make([]string, len(meals))
	for i, mt := range meals {
		out[i] = string(mt)
	}
	return strings.Join(out, ", ")
}

// dayCount is inclusive of both ends.
func dayCount(start, end time.Time) int {
	return int(util.TruncateDay(end).Sub(util.TruncateDay(start)).Hours()/24) + 1
}
