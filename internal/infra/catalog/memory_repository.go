package catalog

import (
	"context"
	"crypto/sha256"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/meal-planner/internal/domain/mealplan"
)

const defaultLowRatingThreshold = 2

// MemoryRepository is an in-process catalog for development and tests.
type MemoryRepository struct {
	mu                 sync.Mutex
	recipes            []mealplan.RecipeCandidate
	members            map[uuid.UUID]mealplan.MemberProfile
	ratings            map[uuid.UUID][]rating
	lowRatingThreshold int
	rng                *rand.Rand
}

// NewMemoryRepository builds a repository from a seed. A nil rng uses a time seeded source.
func NewMemoryRepository(seed Seed, lowRatingThreshold int, rng *rand.Rand) (*MemoryRepository, error) {
	recipes, err := seed.recipes()
	if err != nil {
		return nil, err
	}
	members, err := seed.members()
	if err != nil {
		return nil, err
	}
	ratings, err := seed.ratings()
	if err != nil {
		return nil, err
	}
	if lowRatingThreshold <= 0 {
		lowRatingThreshold = defaultLowRatingThreshold
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MemoryRepository{
		recipes:            recipes,
		members:            members,
		ratings:            ratings,
		lowRatingThreshold: lowRatingThreshold,
		rng:                rng,
	}, nil
}

// FetchCandidates returns matching recipes in shuffled order.
func (r *MemoryRepository) FetchCandidates(_ context.Context, filter mealplan.CandidateFilter) ([]mealplan.RecipeCandidate, error) {
	excluded := make(map[uuid.UUID]struct{}, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = struct{}{}
	}
	cuisines := make(map[uuid.UUID]struct{}, len(filter.CuisineIDs))
	for _, id := range filter.CuisineIDs {
		cuisines[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]mealplan.RecipeCandidate, 0, len(r.recipes))
	for _, c := range r.recipes {
		if _, skip := excluded[c.ID]; skip {
			continue
		}
		if filter.MaxCookTimeMinutes != nil && c.CookTimeMinutes != nil && *c.CookTimeMinutes > *filter.MaxCookTimeMinutes {
			continue
		}
		if len(cuisines) > 0 {
			if c.CuisineID == nil {
				continue
			}
			if _, ok := cuisines[*c.CuisineID]; !ok {
				continue
			}
		}
		out = append(out, c)
	}
	if filter.SampleSeed != "" {
		seededOrder(out, filter.SampleSeed)
	} else {
		r.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// seededOrder sorts by sha256(id || seed), ties broken by id.
func seededOrder(recipes []mealplan.RecipeCandidate, seed string) {
	rank := make(map[uuid.UUID]string, len(recipes))
	for _, c := range recipes {
		sum := sha256.Sum256([]byte(c.ID.String() + seed))
		rank[c.ID] = string(sum[:])
	}
	sort.Slice(recipes, func(i, j int) bool {
		ri, rj := rank[recipes[i].ID], rank[recipes[j].ID]
		if ri != rj {
			return ri < rj
		}
		return recipes[i].ID.String() < recipes[j].ID.String()
	})
}

// GetConstraintProfiles implements mealplan.ProfileRepository.
func (r *MemoryRepository) GetConstraintProfiles(_ context.Context, memberIDs []uuid.UUID) (map[uuid.UUID]mealplan.MemberProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]mealplan.MemberProfile, len(memberIDs))
	for _, id := range memberIDs {
		if p, ok := r.members[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// GetLowRatedRecipeIDs implements mealplan.RatingRepository.
func (r *MemoryRepository) GetLowRatedRecipeIDs(_ context.Context, customerID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, rt := range r.ratings[customerID] {
		if rt.score > r.lowRatingThreshold {
			continue
		}
		if _, dup := seen[rt.recipeID]; dup {
			continue
		}
		seen[rt.recipeID] = struct{}{}
		ids = append(ids, rt.recipeID)
	}
	return ids, nil
}

// AddRating records a customer rating. Used by tooling and tests.
func (r *MemoryRepository) AddRating(customerID, recipeID uuid.UUID, score int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings[customerID] = append(r.ratings[customerID], rating{recipeID: recipeID, score: score})
}

var (
	_ mealplan.CatalogRepository = (*MemoryRepository)(nil)
	_ mealplan.ProfileRepository = (*MemoryRepository)(nil)
	_ mealplan.RatingRepository  = (*MemoryRepository)(nil)
)
