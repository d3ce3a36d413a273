package mealplan

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// swapSelector prefers the generative choice and otherwise picks the first
// alternative that differs from the current recipe.
type swapSelector struct {
	planner *generativePlanner
	logger  *slog.Logger
}

// Select never fails when alternatives is non-empty.
func (s *swapSelector) Select(ctx context.Context, in swapInput) SwapResult {
	suggestion, source, err := s.planner.swap(ctx, in)
	if err == nil {
		return SwapResult{
			RecipeID:      suggestion.RecipeID,
			Servings:      max(suggestion.Servings, 1),
			EstimatedCost: costOrCandidate(suggestion.EstimatedCost, suggestion.RecipeID, in.Alternatives),
			Reasoning:     suggestion.Reasoning,
			Source:        source,
		}
	}
	s.logger.Warn("swap falling back to rule-based selection", "reason", err.Error(), "alternatives", len(in.Alternatives))
	return fallbackSwap(in.Current, in.Alternatives, err.Error())
}

// fallbackSwap returns the first alternative whose id differs from current,
// or the first alternative when none differ.
func fallbackSwap(current uuid.UUID, alternatives []RecipeCandidate, reason string) SwapResult {
	pick := alternatives[0]
	for _, alt := range alternatives {
		if alt.ID != current {
			pick = alt
			break
		}
	}
	reasoning := "Selected by the rule-based fallback because the generative planner was unavailable"
	if reason != "" {
		reasoning += " (" + reason + ")"
	}
	var cost *float64
	if pick.EstimatedCost != nil {
		c := *pick.EstimatedCost
		cost = &c
	}
	return SwapResult{
		RecipeID:      pick.ID,
		Servings:      1,
		EstimatedCost: cost,
		Reasoning:     reasoning + ".",
		Source:        SourceFallback,
	}
}

func costOrCandidate(cost *float64, id uuid.UUID, candidates []RecipeCandidate) *float64 {
	if cost != nil {
		return cost
	}
	for _, c := range candidates {
		if c.ID == id && c.EstimatedCost != nil {
			v := *c.EstimatedCost
			return &v
		}
	}
	return nil
}
