package repository

import (
	"github.com/flexprice/gatekeeper/internal/config"
	"github.com/flexprice/gatekeeper/internal/domain/addon"
	"github.com/flexprice/gatekeeper/internal/domain/addonassociation"
	"github.com/flexprice/gatekeeper/internal/domain/customer"
	"github.com/flexprice/gatekeeper/internal/domain/entitlement"
	"github.com/flexprice/gatekeeper/internal/domain/feature"
	"github.com/flexprice/gatekeeper/internal/domain/grant"
	"github.com/flexprice/gatekeeper/internal/domain/plan"
	"github.com/flexprice/gatekeeper/internal/domain/subscription"
	"github.com/flexprice/gatekeeper/internal/domain/usage"
	"github.com/flexprice/gatekeeper/internal/logger"
	"github.com/flexprice/gatekeeper/internal/postgres"
	inmemoryRepo "github.com/flexprice/gatekeeper/internal/repository/inmemory"
	postgresRepo "github.com/flexprice/gatekeeper/internal/repository/postgres"
	"github.com/flexprice/gatekeeper/internal/types"
)

// Catalog facts are always served from the in-memory edge cache; only usage
// counters switch to postgres in server mode.

func NewFeatureRepository() feature.Repository {
	return inmemoryRepo.NewFeatureRepository()
}

func NewEntitlementRepository() entitlement.Repository {
	return inmemoryRepo.NewEntitlementRepository()
}

func NewGrantRepository() grant.Repository {
	return inmemoryRepo.NewGrantRepository()
}

func NewPlanRepository() plan.Repository {
	return inmemoryRepo.NewPlanRepository()
}

func NewAddonRepository() addon.Repository {
	return inmemoryRepo.NewAddonRepository()
}

func NewAddonAssociationRepository() addonassociation.Repository {
	return inmemoryRepo.NewAddonAssociationRepository()
}

func NewSubscriptionRepository() subscription.Repository {
	return inmemoryRepo.NewSubscriptionRepository()
}

func NewCustomerRepository() customer.Repository {
	return inmemoryRepo.NewCustomerRepository()
}

func NewUsageRepository(cfg *config.Configuration, client postgres.IClient, log *logger.Logger) usage.Repository {
	if cfg.Deployment.Mode == types.ModeLocal || client == nil {
		return inmemoryRepo.NewUsageRepository()
	}
	return postgresRepo.NewUsageRepository(client, log)
}
