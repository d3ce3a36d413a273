package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yanqian/meal-planner/internal/infra/llm/chatgpt"
	"github.com/yanqian/meal-planner/internal/infra/llm/gateway"
	apperrors "github.com/yanqian/meal-planner/pkg/errors"
	"github.com/yanqian/meal-planner/pkg/metrics"
	"github.com/yanqian/meal-planner/pkg/ttlcache"
)

const (
	defaultMaxChars   = 20000
	maxResponseBytes  = 1 << 20
	sourceProvider    = "llm"
	sourceCache       = "cache"
	analysisOperation = "recipe.analyze"
)

// Service extracts nutrition and constraint tags from recipe text.
type Service interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}

// Provider is the resilient completion gateway.
type Provider interface {
	Call(ctx context.Context, req gateway.Request, timeout time.Duration) (gateway.Response, error)
}

type service struct {
	cfg      Config
	provider Provider
	cache    *ttlcache.Cache[string, Result]
	logger   *slog.Logger
}

// NewService wires up the analysis domain.
func NewService(cfg Config, provider Provider, logger *slog.Logger) Service {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &service{
		cfg:      cfg,
		provider: provider,
		cache: ttlcache.New[string, Result](ttlcache.Options{
			MaxEntries: cfg.CacheMaxEntries,
			TTL:        cfg.CacheTTL,
		}),
		logger: logger.With("component", "analysis.service"),
	}
}

func (s *service) Analyze(ctx context.Context, req Request) (Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Result{}, apperrors.Wrap("invalid_input", "text cannot be empty", nil)
	}
	if utf8.RuneCountInString(text) > s.cfg.MaxChars {
		return Result{}, apperrors.Wrap("invalid_input", fmt.Sprintf("text cannot exceed %d characters", s.cfg.MaxChars), nil)
	}

	key := cacheKey(text)
	if hit, ok := s.cache.Get(key); ok {
		s.logger.Debug("analysis cache hit")
		cached := hit.clone()
		cached.Source = sourceCache
		cached.Usage = metrics.TokenUsage{}
		return cached, nil
	}

	resp, err := s.provider.Call(ctx, gateway.Request{
		Operation: analysisOperation,
		Messages: []chatgpt.Message{
			{Role: "system", Content: buildSystemPrompt()},
			{Role: "user", Content: text},
		},
		JSON: true,
	}, s.cfg.Timeout)
	if err != nil {
		code := string(gateway.KindOf(err))
		if code == "" {
			code = "provider_error"
		}
		return Result{}, apperrors.Wrap(code, "recipe analysis failed", err)
	}

	result, err := parseAnalysis(resp.Content)
	if err != nil {
		return Result{}, apperrors.Wrap("malformed_response", "recipe analysis response malformed", err)
	}
	result.Source = sourceProvider
	result.Usage = resp.Usage
	s.cache.Set(key, result.clone())
	if resp.Usage.IsZero() {
		s.logger.Info("recipe analysed", "title", result.Title)
	} else {
		s.logger.Info("recipe analysed", "title", result.Title, "total_tokens", resp.Usage.TotalTokens)
	}
	return result, nil
}

func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You extract structured data from recipe text. Estimate per-serving nutrition when it is not stated. ")
	b.WriteString("Allergen and diet codes are lower_snake_case, for example peanut, tree_nut, gluten, dairy, egg, shellfish, vegan, vegetarian, gluten_free.\n")
	b.WriteString("Respond with a single JSON object and nothing else, shaped as:\n")
	b.WriteString(`{"title":"","meal_type":"breakfast|lunch|dinner|snack","servings":1,"calories":0,"protein":0,"carbs":0,"fat":0,"cook_time_minutes":0,"allergens":[],"diets":[]}`)
	return b.String()
}

func parseAnalysis(content string) (Result, error) {
	if len(content) > maxResponseBytes {
		return Result{}, fmt.Errorf("response too large")
	}
	body := strings.TrimSpace(content)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```")
		if idx := strings.Index(body, "\n"); idx >= 0 {
			body = body[idx+1:]
		}
		body = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(body), "```"))
	}

	var wire map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return Result{}, fmt.Errorf("decode analysis: %w", err)
	}

	res := Result{
		Title:     strings.TrimSpace(stringField(wire, "title")),
		MealType:  strings.ToLower(strings.TrimSpace(stringField(wire, "meal_type", "mealType"))),
		Servings:  1,
		Allergens: normalizeCodes(coerceStringArray(wire, "allergens")),
		Diets:     normalizeCodes(coerceStringArray(wire, "diets")),
	}
	if res.Title == "" {
		return Result{}, fmt.Errorf("title is required")
	}
	if v, ok := numberField(wire, "servings"); ok && v >= 1 {
		res.Servings = int(math.Round(v))
	}
	res.Calories, _ = numberField(wire, "calories")
	res.Protein, _ = numberField(wire, "protein")
	res.Carbs, _ = numberField(wire, "carbs")
	res.Fat, _ = numberField(wire, "fat")
	if v, ok := numberField(wire, "cook_time_minutes", "cookTimeMinutes"); ok && v > 0 {
		minutes := int(math.Round(v))
		res.CookTimeMinutes = &minutes
	}
	return res, nil
}

func stringField(wire map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := wire[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return ""
}

func numberField(wire map[string]json.RawMessage, keys ...string) (float64, bool) {
	for _, key := range keys {
		raw, ok := wire[key]
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			if val >= 0 && !math.IsInf(val, 0) {
				return val, true
			}
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err == nil && n >= 0 && !math.IsNaN(n) && !math.IsInf(n, 0) {
				return n, true
			}
		}
	}
	return 0, false
}

func coerceStringArray(wire map[string]json.RawMessage, key string) []string {
	raw, ok := wire[key]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.Split(single, ",")
	}
	return nil
}
