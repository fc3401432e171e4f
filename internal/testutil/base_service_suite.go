package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/willjksn/echoflux/internal/cache"
	"github.com/willjksn/echoflux/internal/config"
	"github.com/willjksn/echoflux/internal/domain/entitlement"
	"github.com/willjksn/echoflux/internal/domain/notification"
	"github.com/willjksn/echoflux/internal/domain/planevent"
	"github.com/willjksn/echoflux/internal/domain/priceoverride"
	"github.com/willjksn/echoflux/internal/logger"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	EntitlementRepo   entitlement.Repository
	PriceOverrideRepo priceoverride.Repository
	NotificationRepo  notification.Repository
	PlanEventRepo     planevent.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	gw     *FakeGateway
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupTest runs before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.config = config.GetDefaultConfig()

	log, err := logger.NewLogger(s.config)
	s.Require().NoError(err)
	s.logger = log

	s.gw = NewFakeGateway()
	s.cache = cache.NewInMemoryCache()
	s.now = time.Now().UTC()

	s.stores = Stores{
		EntitlementRepo:   NewInMemoryEntitlementStore(),
		PriceOverrideRepo: NewInMemoryPriceOverrideStore(),
		NotificationRepo:  NewInMemoryNotificationStore(),
		PlanEventRepo:     NewInMemoryPlanEventStore(),
	}
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetGateway() *FakeGateway {
	return s.gw
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
