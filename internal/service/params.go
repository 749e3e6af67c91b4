package service

import (
	"github.com/flexprice/gatekeeper/internal/cache"
	"github.com/flexprice/gatekeeper/internal/config"
	"github.com/flexprice/gatekeeper/internal/domain/addon"
	"github.com/flexprice/gatekeeper/internal/domain/addonassociation"
	"github.com/flexprice/gatekeeper/internal/domain/budget"
	"github.com/flexprice/gatekeeper/internal/domain/customer"
	"github.com/flexprice/gatekeeper/internal/domain/entitlement"
	"github.com/flexprice/gatekeeper/internal/domain/feature"
	"github.com/flexprice/gatekeeper/internal/domain/grant"
	"github.com/flexprice/gatekeeper/internal/domain/plan"
	"github.com/flexprice/gatekeeper/internal/domain/subscription"
	"github.com/flexprice/gatekeeper/internal/domain/usage"
	"github.com/flexprice/gatekeeper/internal/logger"
	"github.com/flexprice/gatekeeper/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache

	// Repositories
	FeatureRepo          feature.Repository
	EntitlementRepo      entitlement.Repository
	GrantRepo            grant.Repository
	PlanRepo             plan.Repository
	AddonRepo            addon.Repository
	AddonAssociationRepo addonassociation.Repository
	SubRepo              subscription.Repository
	CustomerRepo         customer.Repository
	UsageRepo            usage.Repository

	// SpendProvider is optional; when nil the budget guard treats every
	// subscription as within budget
	SpendProvider budget.SpendProvider
}

func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cacheStore cache.Cache,
	featureRepo feature.Repository,
	entitlementRepo entitlement.Repository,
	grantRepo grant.Repository,
	planRepo plan.Repository,
	addonRepo addon.Repository,
	addonAssociationRepo addonassociation.Repository,
	subRepo subscription.Repository,
	customerRepo customer.Repository,
	usageRepo usage.Repository,
	spendProvider budget.SpendProvider,
) ServiceParams {
	return ServiceParams{
		Logger:               logger,
		Config:               config,
		DB:                   db,
		Cache:                cacheStore,
		FeatureRepo:          featureRepo,
		EntitlementRepo:      entitlementRepo,
		GrantRepo:            grantRepo,
		PlanRepo:             planRepo,
		AddonRepo:            addonRepo,
		AddonAssociationRepo: addonAssociationRepo,
		SubRepo:              subRepo,
		CustomerRepo:         customerRepo,
		UsageRepo:            usageRepo,
		SpendProvider:        spendProvider,
	}
}
