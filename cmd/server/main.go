package main

import (
	"context"
	"time"

	"github.com/flexprice/gatekeeper/internal/cache"
	"github.com/flexprice/gatekeeper/internal/config"
	"github.com/flexprice/gatekeeper/internal/domain/budget"
	"github.com/flexprice/gatekeeper/internal/logger"
	"github.com/flexprice/gatekeeper/internal/postgres"
	"github.com/flexprice/gatekeeper/internal/repository"
	"github.com/flexprice/gatekeeper/internal/service"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/flexprice/gatekeeper/internal/validator"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func init() {
	// the whole application runs in UTC; subscription time zones only apply
	// when computing reset period bounds
	time.Local = time.UTC
}

func main() {
	_ = godotenv.Load()

	fx.New(
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,
			cache.Initialize,

			providePostgresClient,
			provideSpendProvider,

			repository.NewFeatureRepository,
			repository.NewEntitlementRepository,
			repository.NewGrantRepository,
			repository.NewPlanRepository,
			repository.NewAddonRepository,
			repository.NewAddonAssociationRepository,
			repository.NewSubscriptionRepository,
			repository.NewCustomerRepository,
			repository.NewUsageRepository,

			service.NewServiceParams,
			service.NewEntitlementResolver,
			service.NewBudgetService,
			service.NewUsageService,
			service.NewEvaluationService,
			service.NewEntitlementService,
			service.NewGrantService,
			service.NewUsageJanitor,
		),
		// the transport layer is an external collaborator; embedders consume
		// these services directly
		fx.Invoke(func(service.EvaluationService, service.EntitlementService, service.GrantService) {}),
		fx.Invoke(registerLifecycle),
	).Run()
}

// providePostgresClient connects only in server mode; local mode runs the
// core entirely on in-memory stores
func providePostgresClient(cfg *config.Configuration, log *logger.Logger) (postgres.IClient, error) {
	if cfg.Deployment.Mode == types.ModeLocal {
		return nil, nil
	}
	return postgres.NewClient(cfg, log)
}

// provideSpendProvider is the integration point for the external billing
// collaborator; without one the budget guard treats every subscription as
// within budget
func provideSpendProvider() budget.SpendProvider {
	return nil
}

func registerLifecycle(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	log *logger.Logger,
	db postgres.IClient,
	janitor *service.UsageJanitor,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting gatekeeper",
				"mode", cfg.Deployment.Mode,
				"version_policy", cfg.Entitlement.VersionPolicy)
			janitor.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			janitor.Stop()
			if db != nil {
				if err := db.Close(); err != nil {
					log.Errorw("failed to close postgres client", "error", err)
				}
			}
			log.Info("gatekeeper stopped")
			return nil
		},
	})
}
