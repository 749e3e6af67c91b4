package testutil

import (
	"context"
	"time"

	"github.com/flexprice/gatekeeper/internal/cache"
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
	inmemory "github.com/flexprice/gatekeeper/internal/repository/inmemory"
	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/flexprice/gatekeeper/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	FeatureRepo          feature.Repository
	EntitlementRepo      entitlement.Repository
	GrantRepo            grant.Repository
	PlanRepo             plan.Repository
	AddonRepo            addon.Repository
	AddonAssociationRepo addonassociation.Repository
	SubscriptionRepo     subscription.Repository
	CustomerRepo         customer.Repository
	UsageRepo            usage.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.cache = cache.NewInMemoryCache(s.config)
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
	s.cache.Flush(s.ctx)
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		FeatureRepo:          inmemory.NewFeatureRepository(),
		EntitlementRepo:      inmemory.NewEntitlementRepository(),
		GrantRepo:            inmemory.NewGrantRepository(),
		PlanRepo:             inmemory.NewPlanRepository(),
		AddonRepo:            inmemory.NewAddonRepository(),
		AddonAssociationRepo: inmemory.NewAddonAssociationRepository(),
		SubscriptionRepo:     inmemory.NewSubscriptionRepository(),
		CustomerRepo:         inmemory.NewCustomerRepository(),
		UsageRepo:            inmemory.NewUsageRepository(),
	}
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.FeatureRepo.(*inmemory.FeatureRepository).Clear()
	s.stores.EntitlementRepo.(*inmemory.EntitlementRepository).Clear()
	s.stores.GrantRepo.(*inmemory.GrantRepository).Clear()
	s.stores.PlanRepo.(*inmemory.PlanRepository).Clear()
	s.stores.AddonRepo.(*inmemory.AddonRepository).Clear()
	s.stores.AddonAssociationRepo.(*inmemory.AddonAssociationRepository).Clear()
	s.stores.SubscriptionRepo.(*inmemory.SubscriptionRepository).Clear()
	s.stores.CustomerRepo.(*inmemory.CustomerRepository).Clear()
	s.stores.UsageRepo.(*inmemory.UsageRepository).Clear()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time in UTC
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetUUID returns a new k-sortable unique identifier
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
