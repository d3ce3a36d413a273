package analysis

import (
	"slices"
	"time"

	"github.com/yanqian/meal-planner/pkg/metrics"
)

// Request carries free recipe text to analyse.
type Request struct {
	Text string `json:"text"`
}

// Result is the structured projection extracted from recipe text.
type Result struct {
	Title           string             `json:"title"`
	MealType        string             `json:"mealType,omitempty"`
	Servings        int                `json:"servings"`
	Calories        float64            `json:"calories"`
	Protein         float64            `json:"protein"`
	Carbs           float64            `json:"carbs"`
	Fat             float64            `json:"fat"`
	CookTimeMinutes *int               `json:"cookTimeMinutes,omitempty"`
	Allergens       []string           `json:"allergens"`
	Diets           []string           `json:"diets"`
	Source          string             `json:"source"`
	Usage           metrics.TokenUsage `json:"usage"`
}

// clone copies the slices and pointers so cached entries are never aliased.
func (r Result) clone() Result {
	out := r
	out.Allergens = slices.Clone(r.Allergens)
	out.Diets = slices.Clone(r.Diets)
	if r.CookTimeMinutes != nil {
		v := *r.CookTimeMinutes
		out.CookTimeMinutes = &v
	}
	return out
}

// Config wires runtime dependencies for the analysis domain.
type Config struct {
	Timeout         time.Duration
	CacheTTL        time.Duration
	CacheMaxEntries int
	MaxChars        int
}
