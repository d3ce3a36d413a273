package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	LLM      LLMConfig      `yaml:"llm"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	MealPlan MealPlanConfig `yaml:"mealplan"`
	Swap     SwapConfig     `yaml:"swap"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Auth     AuthConfig     `yaml:"auth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
	CORS         CORSConfig      `yaml:"cors"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey          string  `yaml:"apiKey"`
	BaseURL         string  `yaml:"baseUrl"`
	Model           string  `yaml:"model"`
	Temperature     float32 `yaml:"temperature"`
	MaxPromptTokens int     `yaml:"maxPromptTokens"`
}

// GatewayConfig bounds every provider call.
type GatewayConfig struct {
	Cooldown          time.Duration `yaml:"cooldown"`
	GenerationTimeout time.Duration `yaml:"generationTimeout"`
	SwapTimeout       time.Duration `yaml:"swapTimeout"`
}

// MealPlanConfig limits plan generation requests.
type MealPlanConfig struct {
	MaxCandidates  int      `yaml:"maxCandidates"`
	MaxHorizonDays int      `yaml:"maxHorizonDays"`
	MaxMembers     int      `yaml:"maxMembers"`
	StrictDiets    []string `yaml:"strictDiets"`
}

// SwapConfig controls single-slot replacement.
type SwapConfig struct {
	MaxAlternatives int           `yaml:"maxAlternatives"`
	CacheTTL        time.Duration `yaml:"cacheTtl"`
	CacheMaxEntries int           `yaml:"cacheMaxEntries"`
	Valkey          ValkeyConfig  `yaml:"valkey"`
}

// AnalysisConfig controls free-text recipe analysis.
type AnalysisConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	CacheTTL        time.Duration `yaml:"cacheTtl"`
	CacheMaxEntries int           `yaml:"cacheMaxEntries"`
	MaxChars        int           `yaml:"maxChars"`
}

// CatalogConfig selects where recipes, members and ratings are read from.
type CatalogConfig struct {
	Postgres           PostgresConfig `yaml:"postgres"`
	SeedPath           string         `yaml:"seedPath"`
	LowRatingThreshold int            `yaml:"lowRatingThreshold"`
}

// AuthConfig controls bearer token verification.
type AuthConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"tokenTtl"`
}

// ValkeyConfig contains connection information for cache storage.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.CORS.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	envInt("LLM_MAX_PROMPT_TOKENS", &cfg.LLM.MaxPromptTokens)
	envDuration("GATEWAY_COOLDOWN", &cfg.Gateway.Cooldown)
	envDuration("GATEWAY_GENERATION_TIMEOUT", &cfg.Gateway.GenerationTimeout)
	envDuration("GATEWAY_SWAP_TIMEOUT", &cfg.Gateway.SwapTimeout)
	envInt("MEALPLAN_MAX_CANDIDATES", &cfg.MealPlan.MaxCandidates)
	envInt("MEALPLAN_MAX_HORIZON_DAYS", &cfg.MealPlan.MaxHorizonDays)
	envInt("MEALPLAN_MAX_MEMBERS", &cfg.MealPlan.MaxMembers)
	if v := os.Getenv("MEALPLAN_STRICT_DIETS"); v != "" {
		cfg.MealPlan.StrictDiets = splitList(v)
	}
	envInt("SWAP_MAX_ALTERNATIVES", &cfg.Swap.MaxAlternatives)
	envDuration("SWAP_CACHE_TTL", &cfg.Swap.CacheTTL)
	envBool("SWAP_VALKEY_ENABLED", &cfg.Swap.Valkey.Enabled)
	if v := os.Getenv("SWAP_VALKEY_ADDR"); v != "" {
		cfg.Swap.Valkey.Addr = v
	}
	if v := os.Getenv("SWAP_VALKEY_PREFIX"); v != "" {
		cfg.Swap.Valkey.Prefix = v
	}
	envDuration("ANALYSIS_TIMEOUT", &cfg.Analysis.Timeout)
	envDuration("ANALYSIS_CACHE_TTL", &cfg.Analysis.CacheTTL)
	envInt("ANALYSIS_MAX_CHARS", &cfg.Analysis.MaxChars)
	if v := os.Getenv("CACHE_MAX_ENTRIES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Swap.CacheMaxEntries = parsed
			cfg.Analysis.CacheMaxEntries = parsed
		}
	}
	if v := os.Getenv("CATALOG_POSTGRES_DSN"); v != "" {
		cfg.Catalog.Postgres.DSN = v
	}
	if v := os.Getenv("CATALOG_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Catalog.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("CATALOG_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Catalog.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("CATALOG_SEED_PATH"); v != "" {
		cfg.Catalog.SeedPath = v
	}
	envInt("CATALOG_LOW_RATING_THRESHOLD", &cfg.Catalog.LowRatingThreshold)
	envBool("AUTH_ENABLED", &cfg.Auth.Enabled)
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	envDuration("AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL)
	envBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	envInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	envInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	envBool("HTTP_RETRY_ENABLED", &cfg.HTTP.Retry.Enabled)
	envInt("HTTP_RETRY_MAX_ATTEMPTS", &cfg.HTTP.Retry.MaxAttempts)
	envDuration("HTTP_RETRY_BASE_BACKOFF", &cfg.HTTP.Retry.BaseBackoff)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 45 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     false,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/plans/generate",
				},
			},
			CORS: CORSConfig{
				AllowedOrigins: []string{"http://localhost:5173"},
			},
		},
		LLM: LLMConfig{
			Model:           "gpt-4o-mini",
			Temperature:     0.2,
			MaxPromptTokens: 12000,
		},
		Gateway: GatewayConfig{
			Cooldown:          120 * time.Second,
			GenerationTimeout: 30 * time.Second,
			SwapTimeout:       15 * time.Second,
		},
		MealPlan: MealPlanConfig{
			MaxCandidates:  150,
			MaxHorizonDays: 31,
			MaxMembers:     12,
			StrictDiets:    []string{"vegetarian", "vegan", "gluten_free", "dairy_free", "halal", "kosher", "pescatarian"},
		},
		Swap: SwapConfig{
			MaxAlternatives: 20,
			CacheTTL:        60 * time.Minute,
			CacheMaxEntries: 100,
			Valkey: ValkeyConfig{
				Enabled: false,
				Prefix:  "mealplan:swap",
			},
		},
		Analysis: AnalysisConfig{
			Timeout:         30 * time.Second,
			CacheTTL:        30 * time.Minute,
			CacheMaxEntries: 100,
			MaxChars:        20000,
		},
		Catalog: CatalogConfig{
			Postgres: PostgresConfig{
				MaxConns: 4,
				MinConns: 0,
			},
			SeedPath:           "configs/catalog_seed.yaml",
			LowRatingThreshold: 2,
		},
		Auth: AuthConfig{
			Enabled:  false,
			TokenTTL: time.Hour,
		},
	}
}

const (
	minCacheEntries = 50
	maxCacheEntries = 200
)

func within(v, lo, hi int) bool {
	return v >= lo && v <= hi
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.MaxPromptTokens <= 0 {
		return errors.New("llm.maxPromptTokens must be positive")
	}
	if c.Gateway.Cooldown <= 0 {
		return errors.New("gateway.cooldown must be positive")
	}
	if c.Gateway.GenerationTimeout <= 0 || c.Gateway.SwapTimeout <= 0 {
		return errors.New("gateway timeouts must be positive")
	}
	if c.MealPlan.MaxCandidates <= 0 {
		return errors.New("mealplan.maxCandidates must be positive")
	}
	if c.MealPlan.MaxHorizonDays <= 0 {
		return errors.New("mealplan.maxHorizonDays must be positive")
	}
	if c.MealPlan.MaxMembers <= 0 {
		return errors.New("mealplan.maxMembers must be positive")
	}
	if c.Swap.MaxAlternatives <= 0 {
		return errors.New("swap.maxAlternatives must be positive")
	}
	if c.Swap.CacheTTL <= 0 || c.Analysis.CacheTTL <= 0 {
		return errors.New("cache ttl must be positive")
	}
	if !within(c.Swap.CacheMaxEntries, minCacheEntries, maxCacheEntries) || !within(c.Analysis.CacheMaxEntries, minCacheEntries, maxCacheEntries) {
		return fmt.Errorf("cache max entries must be between %d and %d", minCacheEntries, maxCacheEntries)
	}
	if c.Swap.Valkey.Enabled && strings.TrimSpace(c.Swap.Valkey.Addr) == "" {
		return errors.New("swap.valkey.addr cannot be empty when valkey is enabled")
	}
	if c.Analysis.Timeout <= 0 {
		return errors.New("analysis.timeout must be positive")
	}
	if c.Analysis.MaxChars <= 0 {
		return errors.New("analysis.maxChars must be positive")
	}
	if c.Catalog.LowRatingThreshold < 1 || c.Catalog.LowRatingThreshold > 5 {
		return errors.New("catalog.lowRatingThreshold must be between 1 and 5")
	}
	if c.Auth.Enabled && strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret cannot be empty when auth is enabled")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
