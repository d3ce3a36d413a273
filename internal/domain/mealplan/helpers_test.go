package mealplan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/meal-planner/internal/infra/llm/gateway"
	"github.com/yanqian/meal-planner/internal/infra/llm/tokens"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mealTypePtr(mt MealType) *MealType { return &mt }

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func recipe(title string, mt *MealType) RecipeCandidate {
	return RecipeCandidate{ID: uuid.New(), Title: title, MealType: mt, Calories: 400}
}

type stubCatalog struct {
	mu      sync.Mutex
	recipes []RecipeCandidate
	err     error
	filters []CandidateFilter
}

func (s *stubCatalog) FetchCandidates(_ context.Context, filter CandidateFilter) ([]RecipeCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, filter)
	if s.err != nil {
		return nil, s.err
	}
	excluded := make(map[uuid.UUID]struct{}, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = struct{}{}
	}
	cuisines := make(map[uuid.UUID]struct{}, len(filter.CuisineIDs))
	for _, id := range filter.CuisineIDs {
		cuisines[id] = struct{}{}
	}
	var out []RecipeCandidate
	for _, r := range s.recipes {
		if _, skip := excluded[r.ID]; skip {
			continue
		}
		if len(cuisines) > 0 {
			if r.CuisineID == nil {
				continue
			}
			if _, ok := cuisines[*r.CuisineID]; !ok {
				continue
			}
		}
		if filter.MaxCookTimeMinutes != nil && r.CookTimeMinutes != nil && *r.CookTimeMinutes > *filter.MaxCookTimeMinutes {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

type stubProfiles struct {
	profiles map[uuid.UUID]MemberProfile
	err      error
}

func (s *stubProfiles) GetConstraintProfiles(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]MemberProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[uuid.UUID]MemberProfile, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type stubRatings struct {
	ids []uuid.UUID
	err error
}

func (s *stubRatings) GetLowRatedRecipeIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return s.ids, s.err
}

type stubProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	requests  []gateway.Request
	calls     atomic.Int32
}

func (s *stubProvider) Call(_ context.Context, req gateway.Request, _ time.Duration) (gateway.Response, error) {
	idx := int(s.calls.Add(1)) - 1
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if idx < len(s.errs) && s.errs[idx] != nil {
		return gateway.Response{}, s.errs[idx]
	}
	if idx < len(s.responses) {
		return gateway.Response{Content: s.responses[idx]}, nil
	}
	return gateway.Response{}, errors.New("no stubbed response")
}

type memorySuggestions struct {
	mu    sync.Mutex
	items map[string]SwapSuggestion
	sets  int
}

func newMemorySuggestions() *memorySuggestions {
	return &memorySuggestions{items: make(map[string]SwapSuggestion)}
}

func (m *memorySuggestions) Get(_ context.Context, key string) (SwapSuggestion, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memorySuggestions) Set(_ context.Context, key string, v SwapSuggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = v
	m.sets++
	return nil
}

type fixture struct {
	member   MemberProfile
	catalog  *stubCatalog
	profiles *stubProfiles
	ratings  *stubRatings
	provider *stubProvider
	store    *memorySuggestions
}

func newFixture(recipes ...RecipeCandidate) *fixture {
	member := MemberProfile{MemberID: uuid.New()}
	return &fixture{
		member:   member,
		catalog:  &stubCatalog{recipes: recipes},
		profiles: &stubProfiles{profiles: map[uuid.UUID]MemberProfile{member.MemberID: member}},
		ratings:  &stubRatings{},
		provider: &stubProvider{},
		store:    newMemorySuggestions(),
	}
}

func (f *fixture) service(provider Provider) Service {
	return f.serviceWithCounter(provider, tokens.NewWordCounter())
}

func (f *fixture) serviceWithCounter(provider Provider, counter tokens.Estimator) Service {
	if provider == nil {
		provider = f.provider
	}
	return NewService(Config{}, f.catalog, f.profiles, f.ratings, provider, f.store, counter, discardLogger())
}
