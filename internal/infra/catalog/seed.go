package catalog

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yanqian/meal-planner/internal/domain/mealplan"
)

// Seed is the document shape of a catalog seed file.
type Seed struct {
	Recipes []seedRecipe `yaml:"recipes"`
	Members []seedMember `yaml:"members"`
	Ratings []seedRating `yaml:"ratings"`
}

type seedRecipe struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	MealType        string   `yaml:"mealType"`
	CuisineID       string   `yaml:"cuisineId"`
	Cuisine         string   `yaml:"cuisine"`
	Calories        float64  `yaml:"calories"`
	Protein         float64  `yaml:"protein"`
	Carbs           float64  `yaml:"carbs"`
	Fat             float64  `yaml:"fat"`
	CookTimeMinutes *int     `yaml:"cookTimeMinutes"`
	EstimatedCost   *float64 `yaml:"estimatedCost"`
	Allergens       []string `yaml:"allergens"`
	Diets           []string `yaml:"diets"`
}

type seedMember struct {
	ID         string                `yaml:"id"`
	Name       string                `yaml:"name"`
	Age        *int                  `yaml:"age"`
	Allergens  []string              `yaml:"allergens"`
	Diets      []string              `yaml:"diets"`
	Conditions []string              `yaml:"conditions"`
	Targets    mealplan.MacroTargets `yaml:"targets"`
}

type seedRating struct {
	CustomerID string `yaml:"customerId"`
	RecipeID   string `yaml:"recipeId"`
	Rating     int    `yaml:"rating"`
}

type rating struct {
	recipeID uuid.UUID
	score    int
}

// LoadSeedFile reads a YAML seed document.
func LoadSeedFile(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(data []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed file: %w", err)
	}
	return seed, nil
}

func (s Seed) recipes() ([]mealplan.RecipeCandidate, error) {
	out := make([]mealplan.RecipeCandidate, 0, len(s.Recipes))
	for i, r := range s.Recipes {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("recipe %d: invalid id %q: %w", i, r.ID, err)
		}
		c := mealplan.RecipeCandidate{
			ID:              id,
			Title:           r.Title,
			Cuisine:         r.Cuisine,
			Calories:        r.Calories,
			Protein:         r.Protein,
			Carbs:           r.Carbs,
			Fat:             r.Fat,
			CookTimeMinutes: r.CookTimeMinutes,
			EstimatedCost:   r.EstimatedCost,
			Allergens:       r.Allergens,
			Diets:           r.Diets,
		}
		if r.MealType != "" {
			mt, ok := mealplan.ParseMealType(r.MealType)
			if !ok {
				return nil, fmt.Errorf("recipe %d: unknown meal type %q", i, r.MealType)
			}
			c.MealType = &mt
		}
		if r.CuisineID != "" {
			cuisineID, err := uuid.Parse(r.CuisineID)
			if err != nil {
				return nil, fmt.Errorf("recipe %d: invalid cuisine id %q: %w", i, r.CuisineID, err)
			}
			c.CuisineID = &cuisineID
		}
		out = append(out, c)
	}
	return out, nil
}

func (s Seed) members() (map[uuid.UUID]mealplan.MemberProfile, error) {
	out := make(map[uuid.UUID]mealplan.MemberProfile, len(s.Members))
	for i, m := range s.Members {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return nil, fmt.Errorf("member %d: invalid id %q: %w", i, m.ID, err)
		}
		out[id] = mealplan.MemberProfile{
			MemberID:   id,
			Name:       m.Name,
			Age:        m.Age,
			Allergens:  m.Allergens,
			Diets:      m.Diets,
			Conditions: m.Conditions,
			Targets:    m.Targets,
		}
	}
	return out, nil
}

func (s Seed) ratings() (map[uuid.UUID][]rating, error) {
	out := make(map[uuid.UUID][]rating)
	for i, r := range s.Ratings {
		customerID, err := uuid.Parse(r.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("rating %d: invalid customer id %q: %w", i, r.CustomerID, err)
		}
		recipeID, err := uuid.Parse(r.RecipeID)
		if err != nil {
			return nil, fmt.Errorf("rating %d: invalid recipe id %q: %w", i, r.RecipeID, err)
		}
		out[customerID] = append(out[customerID], rating{recipeID: recipeID, score: r.Rating})
	}
	return out, nil
}
