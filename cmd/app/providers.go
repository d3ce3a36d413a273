package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/meal-planner/internal/domain/analysis"
	"github.com/yanqian/meal-planner/internal/domain/auth"
	"github.com/yanqian/meal-planner/internal/domain/mealplan"
	"github.com/yanqian/meal-planner/internal/infra/catalog"
	"github.com/yanqian/meal-planner/internal/infra/config"
	"github.com/yanqian/meal-planner/internal/infra/llm/chatgpt"
	"github.com/yanqian/meal-planner/internal/infra/llm/gateway"
	"github.com/yanqian/meal-planner/internal/infra/suggestionstore"
	"github.com/yanqian/meal-planner/pkg/ttlcache"
)

var errProviderNotConfigured = errors.New("llm api key not configured")

// unconfiguredClient lets the service start without credentials; every call
// fails and the planners fall back.
type unconfiguredClient struct{}

func (unconfiguredClient) CreateChatCompletion(context.Context, chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	return chatgpt.ChatCompletionResponse{}, errProviderNotConfigured
}

func provideChatClient(cfg *config.Config, logger *slog.Logger) gateway.ChatClient {
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	if err != nil {
		logger.Warn("llm client disabled, generative calls will fall back", "error", err)
		return unconfiguredClient{}
	}
	return client
}

func provideGatewayConfig(cfg *config.Config) gateway.Config {
	return gateway.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Cooldown:    cfg.Gateway.Cooldown,
	}
}

func provideMealPlanConfig(cfg *config.Config) mealplan.Config {
	return mealplan.Config{
		MaxCandidates:     cfg.MealPlan.MaxCandidates,
		MaxHorizonDays:    cfg.MealPlan.MaxHorizonDays,
		MaxMembers:        cfg.MealPlan.MaxMembers,
		StrictDiets:       cfg.MealPlan.StrictDiets,
		MaxAlternatives:   cfg.Swap.MaxAlternatives,
		GenerationTimeout: cfg.Gateway.GenerationTimeout,
		SwapTimeout:       cfg.Gateway.SwapTimeout,
		MaxPromptTokens:   cfg.LLM.MaxPromptTokens,
	}
}

func provideAnalysisConfig(cfg *config.Config) analysis.Config {
	return analysis.Config{
		Timeout:         cfg.Analysis.Timeout,
		CacheTTL:        cfg.Analysis.CacheTTL,
		CacheMaxEntries: cfg.Analysis.CacheMaxEntries,
		MaxChars:        cfg.Analysis.MaxChars,
	}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Enabled:  cfg.Auth.Enabled,
		Secret:   cfg.Auth.Secret,
		TokenTTL: cfg.Auth.TokenTTL,
	}
}

// catalogRepositories groups the three read models so one backend serves all of them.
type catalogRepositories struct {
	catalog  mealplan.CatalogRepository
	profiles mealplan.ProfileRepository
	ratings  mealplan.RatingRepository
}

func provideCatalogRepositories(cfg *config.Config, logger *slog.Logger) (catalogRepositories, error) {
	dsn := strings.TrimSpace(cfg.Catalog.Postgres.DSN)
	if dsn == "" {
		logger.Info("catalog postgres dsn not set, using memory repository")
		return memoryCatalog(cfg, logger)
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return memoryCatalog(cfg, logger)
	}
	if cfg.Catalog.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Catalog.Postgres.MaxConns
	}
	if cfg.Catalog.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Catalog.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return memoryCatalog(cfg, logger)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return memoryCatalog(cfg, logger)
	}
	logger.Info("catalog postgres repository enabled")
	repo := catalog.NewPostgresRepository(pool, cfg.Catalog.LowRatingThreshold)
	return catalogRepositories{catalog: repo, profiles: repo, ratings: repo}, nil
}

func memoryCatalog(cfg *config.Config, logger *slog.Logger) (catalogRepositories, error) {
	var seed catalog.Seed
	if path := strings.TrimSpace(cfg.Catalog.SeedPath); path != "" {
		loaded, err := catalog.LoadSeedFile(path)
		if err != nil {
			logger.Warn("catalog seed not loaded, starting with an empty catalog", "path", path, "error", err)
		} else {
			seed = loaded
		}
	}
	repo, err := catalog.NewMemoryRepository(seed, cfg.Catalog.LowRatingThreshold, nil)
	if err != nil {
		return catalogRepositories{}, err
	}
	logger.Info("catalog memory repository enabled", "recipes", len(seed.Recipes), "members", len(seed.Members))
	return catalogRepositories{catalog: repo, profiles: repo, ratings: repo}, nil
}

func provideCatalogRepository(r catalogRepositories) mealplan.CatalogRepository { return r.catalog }

func provideProfileRepository(r catalogRepositories) mealplan.ProfileRepository { return r.profiles }

func provideRatingRepository(r catalogRepositories) mealplan.RatingRepository { return r.ratings }

func provideSuggestionStore(cfg *config.Config, logger *slog.Logger) mealplan.SuggestionStore {
	memory := suggestionstore.NewMemoryStore(ttlcache.Options{
		MaxEntries: cfg.Swap.CacheMaxEntries,
		TTL:        cfg.Swap.CacheTTL,
	})
	if !cfg.Swap.Valkey.Enabled {
		return memory
	}
	opt, err := buildValkeyOptions(cfg.Swap.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
		return memory
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory store", "error", err)
		return memory
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory store", "error", err)
		client.Close()
		return memory
	}
	logger.Info("swap valkey store enabled", "addr", cfg.Swap.Valkey.Addr)
	return suggestionstore.NewValkeyStore(client, cfg.Swap.Valkey.Prefix, cfg.Swap.CacheTTL)
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
