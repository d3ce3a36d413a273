package suggestionstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/meal-planner/internal/domain/mealplan"
	"github.com/yanqian/meal-planner/pkg/ttlcache"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(ttlcache.Options{MaxEntries: 2, TTL: time.Minute, Now: func() time.Time { return now }})
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	suggestion := mealplan.SwapSuggestion{RecipeID: uuid.New(), Servings: 2, Reasoning: "lighter"}
	require.NoError(t, store.Set(ctx, "k1", suggestion))

	got, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, suggestion, got)

	now = now.Add(2 * time.Minute)
	_, ok, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValkeyStoreDefaults(t *testing.T) {
	store := NewValkeyStore(nil, "", 0)
	require.Equal(t, "swap", store.prefix)
	require.Equal(t, defaultTTL, store.ttl)
	require.Equal(t, "swap:abc", store.entryKey("abc"))

	short := NewValkeyStore(nil, "meal", 10*time.Millisecond)
	require.Equal(t, time.Second, short.ttl)
}

func newValkeyStoreUnderTest(t *testing.T, ttl time.Duration) (*ValkeyStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{server.Addr()},
		ForceSingleClient: true,
		DisableCache:      true,
		ClientSetInfo:     valkey.DisableClientSetInfo,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return NewValkeyStore(client, "swap", ttl), server
}

func TestValkeyStoreRoundTrip(t *testing.T) {
	store, server := newValkeyStoreUnderTest(t, 10*time.Minute)
	ctx := context.Background()
	cost := 4.5
	suggestion := mealplan.SwapSuggestion{RecipeID: uuid.New(), Servings: 3, EstimatedCost: &cost, Reasoning: "quicker"}

	_, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "k1", suggestion))
	require.True(t, server.Exists("swap:k1"))
	require.Equal(t, 10*time.Minute, server.TTL("swap:k1"))

	got, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, suggestion, got)

	server.FastForward(11 * time.Minute)
	_, ok, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValkeyStoreRejectsCorruptPayload(t *testing.T) {
	store, server := newValkeyStoreUnderTest(t, time.Minute)
	require.NoError(t, server.Set("swap:bad", "{not json"))

	_, ok, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode cached suggestion")
	require.False(t, ok)
}

func TestValkeyStoreSurfacesServerErrors(t *testing.T) {
	store, server := newValkeyStoreUnderTest(t, time.Minute)
	server.SetError("ERR simulated failure")

	_, ok, err := store.Get(context.Background(), "k1")
	require.Error(t, err)
	require.False(t, ok)
	require.Error(t, store.Set(context.Background(), "k1", mealplan.SwapSuggestion{RecipeID: uuid.New()}))
}
