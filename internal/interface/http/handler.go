package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/meal-planner/internal/domain/analysis"
	"github.com/yanqian/meal-planner/internal/domain/mealplan"
	"github.com/yanqian/meal-planner/internal/infra/llm/gateway"
)

// ProviderStatus reports the shared circuit breaker state.
type ProviderStatus interface {
	Status() gateway.Snapshot
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	plans    mealplan.Service
	analyzer analysis.Service
	provider ProviderStatus
	logger   *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(plans mealplan.Service, analyzer analysis.Service, provider ProviderStatus, logger *slog.Logger) *Handler {
	return &Handler{
		plans:    plans,
		analyzer: analyzer,
		provider: provider,
		logger:   logger.With("component", "http.handler"),
	}
}

// GeneratePlan builds a meal plan for the authenticated customer.
func (h *Handler) GeneratePlan(c *gin.Context) {
	var req mealplan.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	req.CustomerID = customerID(c)

	plan, err := h.plans.Generate(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	if plan.Source == mealplan.SourceFallback {
		h.logger.Info("served fallback plan", "reason", plan.FallbackReason, "assignments", len(plan.Assignments))
	}
	c.JSON(http.StatusCreated, plan)
}

// SwapMeal replaces a single assignment.
func (h *Handler) SwapMeal(c *gin.Context) {
	var req mealplan.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	req.CustomerID = customerID(c)

	result, err := h.plans.Swap(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeRecipe extracts structured nutrition data from free text.
func (h *Handler) AnalyzeRecipe(c *gin.Context) {
	var req analysis.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// ProviderStatus exposes the circuit breaker snapshot.
func (h *Handler) ProviderStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.provider.Status())
}

// Health is a liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
