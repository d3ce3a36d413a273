//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/meal-planner/internal/bootstrap"
	"github.com/yanqian/meal-planner/internal/domain/analysis"
	"github.com/yanqian/meal-planner/internal/domain/auth"
	"github.com/yanqian/meal-planner/internal/domain/mealplan"
	"github.com/yanqian/meal-planner/internal/infra/config"
	"github.com/yanqian/meal-planner/internal/infra/llm/gateway"
	"github.com/yanqian/meal-planner/internal/infra/llm/tokens"
	httpiface "github.com/yanqian/meal-planner/internal/interface/http"
	"github.com/yanqian/meal-planner/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideChatClient,
		provideGatewayConfig,
		provideMealPlanConfig,
		provideAnalysisConfig,
		provideAuthConfig,
		provideCatalogRepositories,
		provideCatalogRepository,
		provideProfileRepository,
		provideRatingRepository,
		provideSuggestionStore,
		gateway.NewCircuitBreakerState,
		gateway.New,
		tokens.NewCounter,
		mealplan.NewService,
		analysis.NewService,
		auth.NewService,
		wire.Bind(new(mealplan.Provider), new(*gateway.Gateway)),
		wire.Bind(new(analysis.Provider), new(*gateway.Gateway)),
		wire.Bind(new(httpiface.ProviderStatus), new(*gateway.Gateway)),
		wire.Bind(new(tokens.Estimator), new(*tokens.Counter)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
