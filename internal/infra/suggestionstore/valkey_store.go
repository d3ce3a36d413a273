package suggestionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/meal-planner/internal/domain/mealplan"
)

const defaultTTL = 30 * time.Minute

// ValkeyStore shares swap suggestions across instances through Valkey.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "swap"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

// Get implements mealplan.SuggestionStore.
func (s *ValkeyStore) Get(ctx context.Context, key string) (mealplan.SwapSuggestion, bool, error) {
	cmd := s.client.B().Get().Key(s.entryKey(key)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return mealplan.SwapSuggestion{}, false, nil
		}
		return mealplan.SwapSuggestion{}, false, err
	}
	var suggestion mealplan.SwapSuggestion
	if err := json.Unmarshal([]byte(payload), &suggestion); err != nil {
		return mealplan.SwapSuggestion{}, false, fmt.Errorf("decode cached suggestion: %w", err)
	}
	return suggestion, true, nil
}

// Set implements mealplan.SuggestionStore.
func (s *ValkeyStore) Set(ctx context.Context, key string, suggestion mealplan.SwapSuggestion) error {
	payload, err := json.Marshal(suggestion)
	if err != nil {
		return err
	}
	cmd := s.client.B().Set().Key(s.entryKey(key)).Value(string(payload)).Ex(s.ttl).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) entryKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

var _ mealplan.SuggestionStore = (*ValkeyStore)(nil)
