package mealplan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/yanqian/meal-planner/internal/infra/llm/tokens"
	apperrors "github.com/yanqian/meal-planner/pkg/errors"
	"github.com/yanqian/meal-planner/pkg/util"
)

const invalidSelectionReason = "LLM returned invalid recipe or meal type selections"

// Service exposes meal plan generation and single-meal swaps.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (PlanResult, error)
	Swap(ctx context.Context, req SwapRequest) (SwapResult, error)
}

type service struct {
	cfg      Config
	builder  *contextBuilder
	planner  *generativePlanner
	selector *swapSelector
	logger   *slog.Logger
}

// NewService wires up the meal planning domain.
func NewService(
	cfg Config,
	catalog CatalogRepository,
	profiles ProfileRepository,
	ratings RatingRepository,
	provider Provider,
	store SuggestionStore,
	counter tokens.Estimator,
	logger *slog.Logger,
) Service {
	cfg = cfg.withDefaults()
	if store == nil {
		store = noopSuggestionStore{}
	}
	planner := &generativePlanner{
		cfg:      cfg,
		provider: provider,
		counter:  counter,
		store:    store,
		logger:   logger.With("component", "mealplan.planner"),
	}
	return &service{
		cfg: cfg,
		builder: &contextBuilder{
			cfg:      cfg,
			catalog:  catalog,
			profiles: profiles,
			ratings:  ratings,
			logger:   logger.With("component", "mealplan.context"),
		},
		planner: planner,
		selector: &swapSelector{
			planner: planner,
			logger:  logger.With("component", "mealplan.swap"),
		},
		logger: logger.With("component", "mealplan.service"),
	}
}

func (s *service) Generate(ctx context.Context, req GenerateRequest) (PlanResult, error) {
	planReq, err := s.builder.Build(ctx, req)
	if err != nil {
		return PlanResult{}, err
	}

	result, err := s.generateWithProvider(ctx, planReq)
	if err == nil {
		return result, nil
	}

	reason := err.Error()
	s.logger.Warn("generative path failed, using fallback planner", "reason", reason, "code", apperrors.CodeOf(err))
	fallback := FillFallback(planReq, reason)
	if len(fallback.Assignments) == 0 {
		return PlanResult{}, apperrors.Wrap("plan_failed", "cannot generate valid plan", err)
	}
	return fallback, nil
}

func (s *service) generateWithProvider(ctx context.Context, req PlanGenerationRequest) (PlanResult, error) {
	raw, err := s.planner.generate(ctx, req)
	if err != nil {
		return PlanResult{}, err
	}

	valid := ValidateAssignments(raw.Assignments, req.Candidates, AllMealTypes, req.StartDate, req.EndDate)
	if dropped := len(raw.Assignments) - len(valid); dropped > 0 {
		s.logger.Info("validator dropped provider assignments", "dropped", dropped, "kept", len(valid))
	}
	if len(valid) == 0 {
		return PlanResult{}, apperrors.Wrap("no_valid_assignments", invalidSelectionReason, nil)
	}

	byID := make(map[uuid.UUID]RecipeCandidate, len(req.Candidates))
	for _, c := range req.Candidates {
		byID[c.ID] = c
	}
	var (
		total    float64
		hasTotal bool
	)
	for i := range valid {
		a := &valid[i]
		if a.EstimatedCost == nil {
			if c := byID[a.RecipeID]; c.EstimatedCost != nil {
				cost := *c.EstimatedCost * float64(a.Servings)
				a.EstimatedCost = &cost
			}
		}
		if a.EstimatedCost != nil {
			total += *a.EstimatedCost
			hasTotal = true
		}
	}

	result := PlanResult{
		Assignments:            valid,
		Summary:                s.llmSummary(raw.Summary, len(valid), req),
		Source:                 SourceLLM,
		CuisineFallbackApplied: req.CuisineFallbackApplied,
	}
	switch {
	case hasTotal:
		result.TotalEstimatedCost = &total
	case raw.TotalEstimatedCost != nil:
		result.TotalEstimatedCost = raw.TotalEstimatedCost
	}
	return result, nil
}

func (s *service) llmSummary(summary string, count int, req PlanGenerationRequest) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = fmt.Sprintf("Generated %d of %d meals.", count, req.SlotCount())
	}
	if req.CuisineFallbackApplied {
		summary += " " + cuisineRelaxedNote
	}
	return summary
}

func (s *service) Swap(ctx context.Context, req SwapRequest) (SwapResult, error) {
	if req.CurrentRecipeID == uuid.Nil {
		return SwapResult{}, apperrors.Wrap("invalid_input", "currentRecipeId is required", nil)
	}
	date, err := util.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return SwapResult{}, apperrors.Wrap("invalid_input", "date must be formatted as YYYY-MM-DD", err)
	}
	mealType, ok := ParseMealType(req.MealType)
	if !ok {
		return SwapResult{}, apperrors.Wrap("invalid_input", fmt.Sprintf("unknown meal type %q", req.MealType), nil)
	}
	memberIDs, err := s.builder.validateMembers(req.MemberIDs)
	if err != nil {
		return SwapResult{}, err
	}
	members, lowRated, err := s.builder.loadConstraints(ctx, req.CustomerID, memberIDs)
	if err != nil {
		return SwapResult{}, err
	}

	alternatives, err := s.swapAlternatives(ctx, req, mealType, members, lowRated)
	if err != nil {
		return SwapResult{}, err
	}

	result := s.selector.Select(ctx, swapInput{
		Current:      req.CurrentRecipeID,
		Title:        strings.TrimSpace(req.CurrentTitle),
		Date:         date,
		MealType:     mealType,
		Members:      members,
		Alternatives: alternatives,
		Reason:       strings.TrimSpace(req.Reason),
	})
	s.logger.Info("meal swapped", "source", result.Source, "alternatives", len(alternatives))
	return result, nil
}

func (s *service) swapAlternatives(ctx context.Context, req SwapRequest, mealType MealType, members []MemberProfile, lowRated []uuid.UUID) ([]RecipeCandidate, error) {
	filter := CandidateFilter{
		ExcludeIDs:         unionIDs([]uuid.UUID{req.CurrentRecipeID}, lowRated, req.ExcludeRecipeIDs),
		MaxCookTimeMinutes: req.MaxCookTimeMinutes,
		Limit:              s.cfg.MaxAlternatives,
		SampleSeed:         swapSampleSeed(req.CurrentRecipeID, mealType, req.Reason),
	}
	fetched, err := s.builder.fetchFiltered(ctx, filter, members)
	if err != nil {
		return nil, err
	}
	candidates := make([]RecipeCandidate, 0, len(fetched))
	for _, c := range fetched {
		if c.ID != req.CurrentRecipeID {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, apperrors.Wrap("catalog_empty", "no alternative recipes available", nil)
	}
	return slotPool(candidates, mealType), nil
}

type noopSuggestionStore struct{}

func (noopSuggestionStore) Get(context.Context, string) (SwapSuggestion, bool, error) {
	return SwapSuggestion{}, false, nil
}

func (noopSuggestionStore) Set(context.Context, string, SwapSuggestion) error {
	return nil
}
