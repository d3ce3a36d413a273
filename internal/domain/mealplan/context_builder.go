package mealplan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/yanqian/meal-planner/pkg/errors"
	"github.com/yanqian/meal-planner/pkg/util"
)

// contextBuilder turns a caller request into an immutable PlanGenerationRequest.
type contextBuilder struct {
	cfg      Config
	catalog  CatalogRepository
	profiles ProfileRepository
	ratings  RatingRepository
	logger   *slog.Logger
}

type horizon struct {
	start time.Time
	end   time.Time
	meals []MealType
}

func (b *contextBuilder) Build(ctx context.Context, req GenerateRequest) (PlanGenerationRequest, error) {
	h, err := b.validateHorizon(req)
	if err != nil {
		return PlanGenerationRequest{}, err
	}
	memberIDs, err := b.validateMembers(req.MemberIDs)
	if err != nil {
		return PlanGenerationRequest{}, err
	}

	members, lowRated, err := b.loadConstraints(ctx, req.CustomerID, memberIDs)
	if err != nil {
		return PlanGenerationRequest{}, err
	}
	excluded := unionIDs(lowRated, req.ExcludeRecipeIDs)

	filter := CandidateFilter{
		ExcludeIDs:         excluded,
		MaxCookTimeMinutes: req.MaxCookTimeMinutes,
		CuisineIDs:         uniqueIDs(req.PreferredCuisineIDs),
		Limit:              b.cfg.MaxCandidates,
	}
	candidates, relaxed, err := b.fetchCatalog(ctx, filter, members)
	if err != nil {
		return PlanGenerationRequest{}, err
	}
	if len(candidates) == 0 {
		return PlanGenerationRequest{}, apperrors.Wrap("catalog_empty", "no recipes match the household constraints", nil)
	}

	preferred := []string{}
	if !relaxed {
		preferred = cuisineNames(candidates, filter.CuisineIDs)
	}

	b.logger.Info("generation context built",
		"members", len(members),
		"candidates", len(candidates),
		"excluded", len(excluded),
		"cuisine_fallback", relaxed,
	)
	return PlanGenerationRequest{
		Members:                members,
		Candidates:             candidates,
		StartDate:              h.start,
		EndDate:                h.end,
		MealsPerDay:            h.meals,
		Budget:                 req.Budget,
		MaxCookTimeMinutes:     req.MaxCookTimeMinutes,
		PreferredCuisines:      preferred,
		ExcludedRecipeIDs:      excluded,
		CuisineFallbackApplied: relaxed,
	}, nil
}

func (b *contextBuilder) validateHorizon(req GenerateRequest) (horizon, error) {
	start, err := util.ParseDate(strings.TrimSpace(req.StartDate))
	if err != nil {
		return horizon{}, apperrors.Wrap("invalid_input", "startDate must be formatted as YYYY-MM-DD", err)
	}
	end, err := util.ParseDate(strings.TrimSpace(req.EndDate))
	if err != nil {
		return horizon{}, apperrors.Wrap("invalid_input", "endDate must be formatted as YYYY-MM-DD", err)
	}
	if end.Before(start) {
		return horizon{}, apperrors.Wrap("invalid_input", "endDate cannot be before startDate", nil)
	}
	if dayCount(start, end) > b.cfg.MaxHorizonDays {
		return horizon{}, apperrors.Wrap("invalid_input", fmt.Sprintf("planning horizon cannot exceed %d days", b.cfg.MaxHorizonDays), nil)
	}
	meals, err := parseMealsPerDay(req.MealsPerDay)
	if err != nil {
		return horizon{}, err
	}
	return horizon{start: start, end: end, meals: meals}, nil
}

func parseMealsPerDay(values []string) ([]MealType, error) {
	if len(values) == 0 {
		return append([]MealType(nil), DefaultMealsPerDay...), nil
	}
	seen := make(map[MealType]struct{}, len(values))
	meals := make([]MealType, 0, len(values))
	for _, raw := range values {
		mt, ok := ParseMealType(raw)
		if !ok {
			return nil, apperrors.Wrap("invalid_input", fmt.Sprintf("unknown meal type %q", raw), nil)
		}
		if _, dup := seen[mt]; dup {
			continue
		}
		seen[mt] = struct{}{}
		meals = append(meals, mt)
	}
	return meals, nil
}

func (b *contextBuilder) validateMembers(ids []uuid.UUID) ([]uuid.UUID, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil, apperrors.Wrap("invalid_input", "at least one member is required", nil)
	}
	if len(unique) > b.cfg.MaxMembers {
		return nil, apperrors.Wrap("invalid_input", fmt.Sprintf("a plan supports at most %d members", b.cfg.MaxMembers), nil)
	}
	return unique, nil
}

// loadConstraints fetches profiles and low-rated ids concurrently.
func (b *contextBuilder) loadConstraints(ctx context.Context, customerID uuid.UUID, memberIDs []uuid.UUID) ([]MemberProfile, []uuid.UUID, error) {
	var (
		profiles map[uuid.UUID]MemberProfile
		lowRated []uuid.UUID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = b.profiles.GetConstraintProfiles(gctx, memberIDs)
		if err != nil {
			return apperrors.Wrap("storage_error", "failed to load member profiles", err)
		}
		return nil
	})
	if customerID != uuid.Nil && b.ratings != nil {
		g.Go(func() error {
			var err error
			lowRated, err = b.ratings.GetLowRatedRecipeIDs(gctx, customerID)
			if err != nil {
				return apperrors.Wrap("storage_error", "failed to load recipe ratings", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	members := make([]MemberProfile, 0, len(memberIDs))
	for _, id := range memberIDs {
		profile, ok := profiles[id]
		if !ok {
			return nil, nil, apperrors.Wrap("invalid_input", fmt.Sprintf("unknown member %s", id), nil)
		}
		members = append(members, profile)
	}
	return members, lowRated, nil
}

// fetchCatalog applies the hard-constraint filter and drops the cuisine
// filter once when it leaves nothing. The boolean reports that relaxation.
func (b *contextBuilder) fetchCatalog(ctx context.Context, filter CandidateFilter, members []MemberProfile) ([]RecipeCandidate, bool, error) {
	candidates, err := b.fetchFiltered(ctx, filter, members)
	if err != nil {
		return nil, false, err
	}
	if len(candidates) > 0 || len(filter.CuisineIDs) == 0 {
		return candidates, false, nil
	}

	b.logger.Info("cuisine filter produced no candidates, retrying without it", "cuisines", len(filter.CuisineIDs))
	filter.CuisineIDs = nil
	candidates, err = b.fetchFiltered(ctx, filter, members)
	if err != nil {
		return nil, false, err
	}
	return candidates, true, nil
}

func (b *contextBuilder) fetchFiltered(ctx context.Context, filter CandidateFilter, members []MemberProfile) ([]RecipeCandidate, error) {
	raw, err := b.catalog.FetchCandidates(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap("storage_error", "failed to fetch recipe candidates", err)
	}
	if filter.Limit > 0 && len(raw) > filter.Limit {
		raw = raw[:filter.Limit]
	}
	allowed := filterHardConstraints(raw, members, b.cfg.StrictDiets)
	if dropped := len(raw) - len(allowed); dropped > 0 {
		b.logger.Debug("hard constraints removed candidates", "dropped", dropped, "kept", len(allowed))
	}
	return allowed, nil
}

// filterHardConstraints drops any recipe carrying a member allergen or
// missing a strict diet some member follows. Codes compare case-insensitively.
func filterHardConstraints(candidates []RecipeCandidate, members []MemberProfile, strictDiets []string) []RecipeCandidate {
	strict := toCodeSet(strictDiets)
	forbidden := make(map[string]struct{})
	required := make(map[string]struct{})
	for _, m := range members {
		for code := range toCodeSet(m.Allergens) {
			forbidden[code] = struct{}{}
		}
		for code := range toCodeSet(m.Diets) {
			if _, ok := strict[code]; ok {
				required[code] = struct{}{}
			}
		}
	}

	out := make([]RecipeCandidate, 0, len(candidates))
	for _, c := range candidates {
		if violatesConstraints(c, forbidden, required) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func violatesConstraints(c RecipeCandidate, forbidden, required map[string]struct{}) bool {
	for code := range toCodeSet(c.Allergens) {
		if _, bad := forbidden[code]; bad {
			return true
		}
	}
	if len(required) == 0 {
		return false
	}
	diets := toCodeSet(c.Diets)
	for code := range required {
		if _, ok := diets[code]; !ok {
			return true
		}
	}
	return false
}

func toCodeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		normalized := strings.ToLower(strings.TrimSpace(code))
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return set
}

func cuisineNames(candidates []RecipeCandidate, cuisineIDs []uuid.UUID) []string {
	if len(cuisineIDs) == 0 {
		return []string{}
	}
	wanted := make(map[uuid.UUID]struct{}, len(cuisineIDs))
	for _, id := range cuisineIDs {
		wanted[id] = struct{}{}
	}
	seen := make(map[string]struct{})
	names := []string{}
	for _, c := range candidates {
		if c.CuisineID == nil || c.Cuisine == "" {
			continue
		}
		if _, ok := wanted[*c.CuisineID]; !ok {
			continue
		}
		if _, dup := seen[c.Cuisine]; dup {
			continue
		}
		seen[c.Cuisine] = struct{}{}
		names = append(names, c.Cuisine)
	}
	return names
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func unionIDs(sets ...[]uuid.UUID) []uuid.UUID {
	var all []uuid.UUID
	for _, set := range sets {
		all = append(all, set...)
	}
	return uniqueIDs(all)
}
