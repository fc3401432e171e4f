package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/testutil"
	"github.com/willjksn/echoflux/internal/types"
)

type PriceServiceSuite struct {
	testutil.BaseServiceTestSuite

	service PriceService
}

func TestPriceService(t *testing.T) {
	suite.Run(t, new(PriceServiceSuite))
}

func (s *PriceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	params := ServiceParams{
		Config:            s.GetConfig(),
		Logger:            s.GetLogger(),
		Gateway:           s.GetGateway(),
		EntitlementRepo:   s.GetStores().EntitlementRepo,
		PriceOverrideRepo: s.GetStores().PriceOverrideRepo,
		NotificationRepo:  s.GetStores().NotificationRepo,
		PlanEventRepo:     s.GetStores().PlanEventRepo,
		Email:             testutil.NewRecordingEmailSender(),
		Referrals:         NoopReferralResolver{},
	}
	s.service = NewPriceService(params, s.GetCache())
}

func (s *PriceServiceSuite) TestMonthlyResolvesFromCatalog() {
	priceID, err := s.service.ResolvePrice(s.GetContext(), types.PlanPro, types.BillingCycleMonthly)
	s.NoError(err)
	s.Equal("price_pro_monthly", priceID)
}

func (s *PriceServiceSuite) TestAnnualResolvesFromCatalogWhenListed() {
	priceID, err := s.service.ResolvePrice(s.GetContext(), types.PlanStarter, types.BillingCycleAnnually)
	s.NoError(err)
	s.Equal("price_starter_annual", priceID)
}

func (s *PriceServiceSuite) TestUnknownPlanIsConfigurationError() {
	_, err := s.service.ResolvePrice(s.GetContext(), types.PlanCaption, types.BillingCycleMonthly)
	s.Error(err)
	s.True(ierr.IsConfiguration(err))
}

func (s *PriceServiceSuite) TestAnnualOverrideIsMintedOnce() {
	s.GetGateway().SeedPrice("price_pro_monthly", "prod_pro", 1900)

	first, err := s.service.ResolvePrice(s.GetContext(), types.PlanPro, types.BillingCycleAnnually)
	s.NoError(err)
	s.NotEmpty(first)

	second, err := s.service.ResolvePrice(s.GetContext(), types.PlanPro, types.BillingCycleAnnually)
	s.NoError(err)
	s.Equal(first, second)

	s.Require().Len(s.GetGateway().CreatedPrices, 1)
	created := s.GetGateway().CreatedPrices[0]
	s.Equal("prod_pro", *created.Product)
	s.Equal(int64(19900), *created.UnitAmount)
	s.Equal("year", *created.Recurring.Interval)

	// the minted price reverse-maps like a catalog price would
	plan, cycle, ok := s.service.PlanForPrice(s.GetContext(), first)
	s.True(ok)
	s.Equal(types.PlanPro, plan)
	s.Equal(types.BillingCycleAnnually, cycle)
}

func (s *PriceServiceSuite) TestConcurrentResolutionConvergesOnOneWinner() {
	s.GetGateway().SeedPrice("price_elite_monthly", "prod_elite", 4900)

	const workers = 16
	results := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.service.ResolvePrice(s.GetContext(), types.PlanElite, types.BillingCycleAnnually)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		s.NoError(errs[i])
		s.Equal(results[0], results[i])
	}

	// losers may have minted orphan provider prices, but exactly one id won
	winner, err := s.GetStores().PriceOverrideRepo.GetByPlan(s.GetContext(), types.KeyModeTest, types.PlanElite)
	s.NoError(err)
	s.Equal(results[0], winner.PriceID)
}

func (s *PriceServiceSuite) TestProviderFailureSurfacesAsConfigurationError() {
	s.GetGateway().SeedPrice("price_pro_monthly", "prod_pro", 1900)
	s.GetGateway().Errs["CreatePrice"] = ierr.NewError("provider unavailable").
		Mark(ierr.ErrProvider)

	_, err := s.service.ResolvePrice(s.GetContext(), types.PlanPro, types.BillingCycleAnnually)
	s.Error(err)
	s.True(ierr.IsConfiguration(err))
}

func (s *PriceServiceSuite) TestPlanForPriceUnknownID() {
	_, _, ok := s.service.PlanForPrice(s.GetContext(), "price_mystery")
	s.False(ok)
}
