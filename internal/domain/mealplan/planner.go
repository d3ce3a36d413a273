package mealplan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yanqian/meal-planner/internal/infra/llm/chatgpt"
	"github.com/yanqian/meal-planner/internal/infra/llm/gateway"
	"github.com/yanqian/meal-planner/internal/infra/llm/tokens"
	apperrors "github.com/yanqian/meal-planner/pkg/errors"
)

// Provider is the resilient completion gateway.
type Provider interface {
	Call(ctx context.Context, req gateway.Request, timeout time.Duration) (gateway.Response, error)
}

// generativePlanner talks to the provider and turns its output into domain values.
type generativePlanner struct {
	cfg      Config
	provider Provider
	counter  tokens.Estimator
	store    SuggestionStore
	group    singleflight.Group
	logger   *slog.Logger
}

type swapInput struct {
	Current      uuid.UUID
	Title        string
	Date         time.Time
	MealType     MealType
	Members      []MemberProfile
	Alternatives []RecipeCandidate
	Reason       string
}

type swapOutcome struct {
	suggestion SwapSuggestion
	source     Source
}

func (p *generativePlanner) generate(ctx context.Context, req PlanGenerationRequest) (rawPlan, error) {
	system := buildPlanSystemPrompt()
	user, kept := buildPlanUserPrompt(req, p.counter, p.cfg.MaxPromptTokens, system)
	if kept < len(req.Candidates) {
		p.logger.Info("candidate list trimmed to token budget", "kept", kept, "total", len(req.Candidates))
	}

	resp, err := p.provider.Call(ctx, gateway.Request{
		Operation: "plan.generate",
		Messages: []chatgpt.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		JSON: true,
	}, p.cfg.GenerationTimeout)
	if err != nil {
		return rawPlan{}, wrapProviderError(err)
	}
	p.logger.Info("plan generated by provider", "latency_ms", resp.Latency.Milliseconds(), "total_tokens", resp.Usage.TotalTokens)

	plan, err := parsePlanResponse(resp.Content, req.SlotCount())
	if err != nil {
		return rawPlan{}, fmt.Errorf("generative planner: %w", err)
	}
	return plan, nil
}

// swap asks the provider for one alternative. Identical concurrent requests
// share one provider call and successful answers are cached.
func (p *generativePlanner) swap(ctx context.Context, in swapInput) (SwapSuggestion, Source, error) {
	key, err := swapCacheKey(in)
	if err != nil {
		return SwapSuggestion{}, "", err
	}
	if cached, ok := p.lookupSuggestion(ctx, key, in); ok {
		return cached, SourceCache, nil
	}

	// Shared by every collapsed caller; bounded by the swap timeout.
	shareCtx := context.WithoutCancel(ctx)
	v, err, shared := p.group.Do(key, func() (any, error) {
		suggestion, err := p.requestSwap(shareCtx, in)
		if err != nil {
			return nil, err
		}
		if err := p.store.Set(shareCtx, key, suggestion); err != nil {
			p.logger.Warn("failed to cache swap suggestion", "error", err)
		}
		return swapOutcome{suggestion: suggestion, source: SourceLLM}, nil
	})
	if err != nil {
		return SwapSuggestion{}, "", err
	}
	if shared {
		p.logger.Debug("swap request collapsed with in-flight call")
	}
	out := v.(swapOutcome)
	return out.suggestion, out.source, nil
}

func (p *generativePlanner) requestSwap(ctx context.Context, in swapInput) (SwapSuggestion, error) {
	resp, err := p.provider.Call(ctx, gateway.Request{
		Operation: "plan.swap",
		Messages: []chatgpt.Message{
			{Role: "system", Content: buildSwapSystemPrompt()},
			{Role: "user", Content: buildSwapUserPrompt(in)},
		},
		JSON: true,
	}, p.cfg.SwapTimeout)
	if err != nil {
		return SwapSuggestion{}, wrapProviderError(err)
	}
	suggestion, err := parseSwapResponse(resp.Content)
	if err != nil {
		return SwapSuggestion{}, fmt.Errorf("generative planner: %w", err)
	}
	if err := checkSwapChoice(suggestion.RecipeID, in); err != nil {
		return SwapSuggestion{}, fmt.Errorf("generative planner: %w", err)
	}
	return suggestion, nil
}

func (p *generativePlanner) lookupSuggestion(ctx context.Context, key string, in swapInput) (SwapSuggestion, bool) {
	cached, ok, err := p.store.Get(ctx, key)
	if err != nil {
		p.logger.Warn("swap cache lookup failed", "error", err)
		return SwapSuggestion{}, false
	}
	if !ok {
		return SwapSuggestion{}, false
	}
	if checkSwapChoice(cached.RecipeID, in) != nil {
		return SwapSuggestion{}, false
	}
	return cached, true
}

func checkSwapChoice(id uuid.UUID, in swapInput) error {
	if id == in.Current {
		return malformed("provider returned the current recipe", nil)
	}
	for _, alt := range in.Alternatives {
		if alt.ID == id {
			return nil
		}
	}
	return malformed("provider returned a recipe outside the alternatives", nil)
}

type swapKeyPayload struct {
	Current      string   `json:"current"`
	MealType     string   `json:"meal_type"`
	Alternatives []string `json:"alternatives"`
	Reason       string   `json:"reason"`
}

// swapCacheKey hashes the semantically relevant fields. Alternatives are
// sorted so ordering differences map to the same key.
func swapCacheKey(in swapInput) (string, error) {
	ids := make([]string, 0, len(in.Alternatives))
	for _, alt := range in.Alternatives {
		ids = append(ids, alt.ID.String())
	}
	sort.Strings(ids)
	payload, err := json.Marshal(swapKeyPayload{
		Current:      in.Current.String(),
		MealType:     string(in.MealType),
		Alternatives: ids,
		Reason:       normalizeReason(in.Reason),
	})
	if err != nil {
		return "", fmt.Errorf("encode swap cache key: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeReason(reason string) string {
	return strings.ToLower(strings.TrimSpace(reason))
}

// swapSampleSeed pins the alternative sample for repeated swap requests so
// their cache keys line up.
func swapSampleSeed(current uuid.UUID, mealType MealType, reason string) string {
	sum := sha256.Sum256([]byte(current.String() + "|" + string(mealType) + "|" + normalizeReason(reason)))
	return hex.EncodeToString(sum[:8])
}

// wrapProviderError maps gateway failures onto application codes.
func wrapProviderError(err error) error {
	code := string(gateway.KindOf(err))
	if code == "" {
		code = "provider_error"
	}
	return apperrors.Wrap(code, "generative planner", err)
}
