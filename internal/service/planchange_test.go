package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/willjksn/echoflux/internal/api/dto"
	"github.com/willjksn/echoflux/internal/domain/entitlement"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/testutil"
	"github.com/willjksn/echoflux/internal/types"
)

type PlanChangeServiceSuite struct {
	testutil.BaseServiceTestSuite

	service     PlanChangeService
	entStore    *testutil.InMemoryEntitlementStore
	eventStore  *testutil.InMemoryPlanEventStore
	emailSender *testutil.RecordingEmailSender

	periodStart time.Time
	periodEnd   time.Time
}

func TestPlanChangeService(t *testing.T) {
	suite.Run(t, new(PlanChangeServiceSuite))
}

func (s *PlanChangeServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.entStore = testutil.NewInMemoryEntitlementStore()
	s.eventStore = testutil.NewInMemoryPlanEventStore()
	s.emailSender = testutil.NewRecordingEmailSender()

	params := ServiceParams{
		Config:            s.GetConfig(),
		Logger:            s.GetLogger(),
		Gateway:           s.GetGateway(),
		EntitlementRepo:   s.entStore,
		PriceOverrideRepo: s.GetStores().PriceOverrideRepo,
		NotificationRepo:  s.GetStores().NotificationRepo,
		PlanEventRepo:     s.eventStore,
		Email:             s.emailSender,
		Referrals:         NoopReferralResolver{},
	}

	prices := NewPriceService(params, s.GetCache())
	sideEffects := NewSideEffectService(params)
	s.service = NewPlanChangeService(params, prices, sideEffects)

	s.periodStart = s.GetNow().Add(-10 * 24 * time.Hour).Truncate(time.Second)
	s.periodEnd = s.GetNow().Add(20 * 24 * time.Hour).Truncate(time.Second)
}

func (s *PlanChangeServiceSuite) seedAccount(plan types.PlanName, cycle types.BillingCycle, priceID string) *entitlement.Entitlement {
	s.GetGateway().SeedSubscription("sub_1", "cus_1", priceID, s.periodStart.Unix(), s.periodEnd.Unix())

	ent := &entitlement.Entitlement{
		UserID:         "user_1",
		Plan:           plan,
		BillingCycle:   cycle,
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		Status:         types.SubscriptionStatusActive,
		PostsUsed:      12,
		CaptionsUsed:   34,
	}
	s.entStore.Seed(ent)
	return ent
}

func (s *PlanChangeServiceSuite) TestRejectsUnknownPlan() {
	s.seedAccount(types.PlanPro, types.BillingCycleMonthly, "price_pro_monthly")

	_, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName:     "Platinum",
		BillingCycle: types.BillingCycleMonthly,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PlanChangeServiceSuite) TestRejectsAccountWithoutSubscription() {
	s.entStore.Seed(&entitlement.Entitlement{
		UserID: "user_1",
		Plan:   types.PlanFree,
	})

	_, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName:     types.PlanPro,
		BillingCycle: types.BillingCycleMonthly,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PlanChangeServiceSuite) TestCancelToFree() {
	s.seedAccount(types.PlanPro, types.BillingCycleMonthly, "price_pro_monthly")

	resp, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName: types.PlanFree,
	})
	s.NoError(err)
	s.Equal(types.PlanChangeCancelAtPeriodEnd, resp.Type)
	s.Equal(types.PlanPro, resp.Plan)
	s.NotNil(resp.EffectiveDate)
	s.Equal(s.periodEnd.Unix(), resp.EffectiveDate.Unix())

	// provider flagged, paid plan stays in force until the boundary
	s.Require().Len(s.GetGateway().UpdateSubscriptionCalls, 1)
	s.True(*s.GetGateway().UpdateSubscriptionCalls[0].CancelAtPeriodEnd)

	ent, err := s.entStore.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.PlanPro, ent.Plan)
	s.True(ent.CancelAtPeriodEnd)
	s.Nil(ent.PendingPlan)
	s.Require().NotNil(ent.SubscriptionEndDate)
	s.Equal(s.periodEnd.Unix(), ent.SubscriptionEndDate.Unix())
}

func (s *PlanChangeServiceSuite) TestCancelToFreeReleasesPendingDowngradeSchedule() {
	ent := s.seedAccount(types.PlanElite, types.BillingCycleMonthly, "price_elite_monthly")
	ent.PendingPlan = lo.ToPtr(types.PlanPro)
	ent.PendingBillingCycle = lo.ToPtr(types.BillingCycleMonthly)
	ent.PendingPlanEffectiveDate = &s.periodEnd
	s.entStore.Seed(ent)

	sched, err := s.GetGateway().CreateSchedule(s.GetContext(), "sub_1")
	s.Require().NoError(err)

	resp, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName: types.PlanFree,
	})
	s.NoError(err)
	s.Equal(types.PlanChangeCancelAtPeriodEnd, resp.Type)

	// without the release the stale phase would fire at the boundary and keep
	// billing on the downgrade price
	s.Contains(s.GetGateway().ReleasedSchedules, sched.ID)
	s.NotContains(s.GetGateway().Schedules, sched.ID)

	got, err := s.entStore.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(got.CancelAtPeriodEnd)
	s.Nil(got.PendingPlan)
	s.Nil(got.PendingBillingCycle)
	s.Nil(got.PendingPlanEffectiveDate)
}

func (s *PlanChangeServiceSuite) TestUpgradeSameCycle() {
	s.seedAccount(types.PlanStarter, types.BillingCycleMonthly, "price_starter_monthly")

	resp, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName:     types.PlanPro,
		BillingCycle: types.BillingCycleMonthly,
	})
	s.NoError(err)
	s.Equal(types.PlanChangeUpgradeProrated, resp.Type)
	s.Require().NotNil(resp.Invoice)
	s.True(resp.Invoice.Paid)
	s.NotEmpty(resp.Invoice.HostedInvoiceURL)

	call := s.GetGateway().UpdateSubscriptionCalls[0]
	s.Equal("price_pro_monthly", *call.Items[0].Price)
	s.Equal("create_prorations", *call.ProrationBehavior)
	s.Nil(call.BillingCycleAnchorNow)
	s.False(*call.CancelAtPeriodEnd)

	ent, err := s.entStore.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.PlanPro, ent.Plan)
	s.Equal(types.BillingCycleMonthly, ent.BillingCycle)
	s.Zero(ent.PostsUsed)
	s.Zero(ent.CaptionsUsed)
	s.Nil(ent.PendingPlan)
	s.Nil(ent.SubscriptionEndDate)

	events, err := s.eventStore.ListEvents(s.GetContext(), "user_1")
	s.NoError(err)
	s.Require().Len(events, 1)
	s.Equal(types.PlanStarter, events[0].FromPlan)
	s.Equal(types.PlanPro, events[0].ToPlan)
	s.Equal(types.PlanChangeSourceOrchestrator, events[0].Source)
}

func (s *PlanChangeServiceSuite) TestUpgradeCrossIntervalResetsAnchor() {
	s.GetGateway().SeedPrice("price_pro_monthly", "prod_pro", 1900)
	s.seedAccount(types.PlanPro, types.BillingCycleMonthly, "price_pro_monthly")

	resp, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName:     types.PlanPro,
		BillingCycle: types.BillingCycleAnnually,
	})
	s.NoError(err)
	s.Equal(types.PlanChangeUpgradeCrossIntervalProrate, resp.Type)

	call := s.GetGateway().UpdateSubscriptionCalls[0]
	s.Require().NotNil(call.BillingCycleAnchorNow)
	s.True(*call.BillingCycleAnchorNow)

	// Pro annual has no catalog price: it was minted from the monthly product
	s.Require().Len(s.GetGateway().CreatedPrices, 1)
	created := s.GetGateway().CreatedPrices[0]
	s.Equal("prod_pro", *created.Product)
	s.Equal(int64(19900), *created.UnitAmount)

	ent, err := s.entStore.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.BillingCycleAnnually, ent.BillingCycle)
}

func (s *PlanChangeServiceSuite) TestUpgradeReleasesPendingDowngradeSchedule() {
	ent := s.seedAccount(types.PlanElite, types.BillingCycleMonthly, "price_elite_monthly")
	ent.PendingPlan = lo.ToPtr(types.PlanPro)
	ent.PendingBillingCycle = lo.ToPtr(types.BillingCycleMonthly)
	ent.PendingPlanEffectiveDate = &s.periodEnd
	s.entStore.Seed(ent)

	sched, err := s.GetGateway().CreateSchedule(s.GetContext(), "sub_1")
	s.Require().NoError(err)

	resp, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName:     types.PlanAgency,
		BillingCycle: types.BillingCycleMonthly,
	})
	s.NoError(err)
	s.Equal(types.PlanChangeUpgradeProrated, resp.Type)

	s.Contains(s.GetGateway().ReleasedSchedules, sched.ID)

	got, err := s.entStore.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.PlanAgency, got.Plan)
	s.Nil(got.PendingPlan)
	s.Nil(got.PendingPlanEffectiveDate)
}

func (s *PlanChangeServiceSuite) TestUpgradePaymentFailureIsNotFatal() {
	s.seedAccount(types.PlanStarter, types.BillingCycleMonthly, "price_starter_monthly")
	s.GetGateway().Errs["PayInvoice"] = ierr.NewError("card declined").
		Mark(ierr.ErrPaymentCollection)

	resp, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName:     types.PlanPro,
		BillingCycle: types.BillingCycleMonthly,
	})
	s.NoError(err)
	s.Require().NotNil(resp.Invoice)
	s.False(resp.Invoice.Paid)
	s.NotEmpty(resp.Invoice.HostedInvoiceURL)

	// the plan switch already happened at the provider
	ent, err := s.entStore.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.PlanPro, ent.Plan)
}

func (s *PlanChangeServiceSuite) TestDowngradeIsScheduledNotImmediate() {
	s.seedAccount(types.PlanElite, types.BillingCycleMonthly, "price_elite_monthly")

	resp, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName:     types.PlanPro,
		BillingCycle: types.BillingCycleMonthly,
	})
	s.NoError(err)
	s.Equal(types.PlanChangeDowngradeScheduled, resp.Type)
	s.Require().NotNil(resp.EffectiveDate)
	s.Equal(s.periodEnd.Unix(), resp.EffectiveDate.Unix())

	// two phases: current price until the boundary, target price after
	s.Require().Len(s.GetGateway().UpdateScheduleCalls, 1)
	for _, params := range s.GetGateway().UpdateScheduleCalls {
		s.Equal("release", *params.EndBehavior)
		s.Require().Len(params.Phases, 2)
		s.Equal("price_elite_monthly", *params.Phases[0].Items[0].Price)
		s.Equal(s.periodEnd.Unix(), *params.Phases[0].EndDate)
		s.Equal("price_pro_monthly", *params.Phases[1].Items[0].Price)
		s.Equal(s.periodEnd.Unix(), *params.Phases[1].StartDate)
	}

	ent, err := s.entStore.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.PlanElite, ent.Plan)
	s.Require().NotNil(ent.PendingPlan)
	s.Equal(types.PlanPro, *ent.PendingPlan)
	s.Require().NotNil(ent.PendingPlanEffectiveDate)
	s.Equal(s.periodEnd.Unix(), ent.PendingPlanEffectiveDate.Unix())
	s.False(ent.CancelAtPeriodEnd)
	s.Equal(12, ent.PostsUsed, "usage must not reset on a deferred change")
}

func (s *PlanChangeServiceSuite) TestRepeatedDowngradeRewritesSameSchedule() {
	s.seedAccount(types.PlanAgency, types.BillingCycleMonthly, "price_agency_monthly")

	_, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName:     types.PlanPro,
		BillingCycle: types.BillingCycleMonthly,
	})
	s.NoError(err)

	resp, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName:     types.PlanStarter,
		BillingCycle: types.BillingCycleMonthly,
	})
	s.NoError(err)
	s.Equal(types.PlanChangeDowngradeScheduled, resp.Type)

	// the existing schedule is reused and rewritten, not stacked
	s.Require().Len(s.GetGateway().Schedules, 1)
	s.Empty(s.GetGateway().ReleasedSchedules)
	s.Require().Len(s.GetGateway().UpdateScheduleCalls, 1)
	for _, params := range s.GetGateway().UpdateScheduleCalls {
		s.Require().Len(params.Phases, 2)
		s.Equal("price_agency_monthly", *params.Phases[0].Items[0].Price)
		s.Equal(s.periodEnd.Unix(), *params.Phases[0].EndDate)
		s.Equal("price_starter_monthly", *params.Phases[1].Items[0].Price)
	}

	got, err := s.entStore.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.PlanAgency, got.Plan)
	s.Require().NotNil(got.PendingPlan)
	s.Equal(types.PlanStarter, *got.PendingPlan)
}

func (s *PlanChangeServiceSuite) TestDowngradeSupersedesPendingCancellation() {
	ent := s.seedAccount(types.PlanElite, types.BillingCycleMonthly, "price_elite_monthly")
	ent.CancelAtPeriodEnd = true
	s.entStore.Seed(ent)
	s.GetGateway().Subscriptions["sub_1"].CancelAtPeriodEnd = true

	_, err := s.service.ChangePlan(s.GetContext(), "user_1", dto.PlanChangeRequest{
		PlanName:     types.PlanPro,
		BillingCycle: types.BillingCycleMonthly,
	})
	s.NoError(err)

	got, err := s.entStore.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.False(got.CancelAtPeriodEnd)
	s.Require().NotNil(got.PendingPlan)
	s.Equal(types.PlanPro, *got.PendingPlan)
	s.False(s.GetGateway().Subscriptions["sub_1"].CancelAtPeriodEnd)
}
