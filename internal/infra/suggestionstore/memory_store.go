package suggestionstore

import (
	"context"

	"github.com/yanqian/meal-planner/internal/domain/mealplan"
	"github.com/yanqian/meal-planner/pkg/ttlcache"
)

// MemoryStore keeps swap suggestions in a bounded process-local cache.
type MemoryStore struct {
	cache *ttlcache.Cache[string, mealplan.SwapSuggestion]
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore(opts ttlcache.Options) *MemoryStore {
	return &MemoryStore{cache: ttlcache.New[string, mealplan.SwapSuggestion](opts)}
}

// Get implements mealplan.SuggestionStore.
func (s *MemoryStore) Get(_ context.Context, key string) (mealplan.SwapSuggestion, bool, error) {
	suggestion, ok := s.cache.Get(key)
	return suggestion, ok, nil
}

// Set implements mealplan.SuggestionStore.
func (s *MemoryStore) Set(_ context.Context, key string, suggestion mealplan.SwapSuggestion) error {
	s.cache.Set(key, suggestion)
	return nil
}

var _ mealplan.SuggestionStore = (*MemoryStore)(nil)
