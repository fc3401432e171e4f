package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/willjksn/echoflux/internal/cache"
	"github.com/willjksn/echoflux/internal/domain/priceoverride"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/types"
)

const overrideCacheTTL = 12 * time.Hour

// PriceService resolves the provider price id to bill for a plan and cycle.
//
// Monthly prices and catalog annual prices come straight from configuration.
// Plans carrying a fixed annual total (a discounted bundle the catalog has no
// price for) resolve through the override path: an annual price is created at
// the provider on first use and recorded exactly once per (key mode, plan), so
// every instance converges on the same id.
type PriceService interface {
	ResolvePrice(ctx context.Context, plan types.PlanName, cycle types.BillingCycle) (string, error)

	// PlanForPrice reverse-maps a provider price id to (plan, cycle), checking
	// the catalog first and recorded overrides second.
	PlanForPrice(ctx context.Context, priceID string) (types.PlanName, types.BillingCycle, bool)
}

type priceService struct {
	ServiceParams
	cache cache.Cache
}

func NewPriceService(params ServiceParams, c cache.Cache) PriceService {
	return &priceService{ServiceParams: params, cache: c}
}

func (s *priceService) ResolvePrice(ctx context.Context, plan types.PlanName, cycle types.BillingCycle) (string, error) {
	pricing, ok := s.Config.Billing.PlanPricing(plan)
	if !ok {
		return "", ierr.NewError("no price catalog entry for plan").
			WithHint("The plan is not configured for billing").
			WithDetail("plan", plan).
			Mark(ierr.ErrConfiguration)
	}

	switch cycle {
	case types.BillingCycleMonthly:
		if pricing.MonthlyPriceID == "" {
			return "", s.missingPriceErr(plan, cycle)
		}
		return pricing.MonthlyPriceID, nil

	case types.BillingCycleAnnually:
		if pricing.AnnualTotalCents > 0 {
			return s.resolveAnnualOverride(ctx, plan, pricing.MonthlyPriceID, pricing.AnnualTotalCents)
		}
		if pricing.AnnualPriceID == "" {
			return "", s.missingPriceErr(plan, cycle)
		}
		return pricing.AnnualPriceID, nil
	}

	return "", ierr.NewError("unsupported billing cycle").
		WithDetail("billing_cycle", cycle).
		Mark(ierr.ErrValidation)
}

func (s *priceService) PlanForPrice(ctx context.Context, priceID string) (types.PlanName, types.BillingCycle, bool) {
	if plan, cycle, ok := s.Config.Billing.PlanForPrice(priceID); ok {
		return plan, cycle, true
	}

	override, err := s.PriceOverrideRepo.GetByPriceID(ctx, s.Config.Deployment.Mode, priceID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			s.Logger.Errorw("price override lookup failed", "price_id", priceID, "error", err)
		}
		return "", "", false
	}
	return override.Plan, types.BillingCycleAnnually, true
}

// resolveAnnualOverride returns the recorded override price for (key mode,
// plan), creating one at the provider if nobody has yet. The datastore
// conditional create is the only synchronization point: concurrent creators
// may both mint a provider price, but exactly one id is recorded and all
// callers return that winner.
func (s *priceService) resolveAnnualOverride(ctx context.Context, plan types.PlanName, monthlyPriceID string, totalCents int64) (string, error) {
	mode := s.Config.Deployment.Mode
	cacheKey := fmt.Sprintf("price_override:%s:%s", mode, plan)

	if cached, ok := s.cache.Get(cacheKey); ok {
		if priceID, ok := cached.(string); ok && priceID != "" {
			return priceID, nil
		}
	}

	override, err := s.PriceOverrideRepo.GetByPlan(ctx, mode, plan)
	if err == nil {
		s.cache.Set(cacheKey, override.PriceID, overrideCacheTTL)
		return override.PriceID, nil
	}
	if !ierr.IsNotFound(err) {
		return "", err
	}

	created, err := s.createAnnualPrice(ctx, plan, monthlyPriceID, totalCents)
	if err != nil {
		return "", err
	}

	// Another instance may have recorded its own price first; their id wins
	// and ours becomes an orphan at the provider, which is harmless.
	winner, err := s.PriceOverrideRepo.CreateIfAbsent(ctx, &priceoverride.PriceOverride{
		KeyMode:          mode,
		Plan:             plan,
		PriceID:          created.ID,
		AnnualTotalCents: totalCents,
		MonthlyPriceID:   monthlyPriceID,
		Currency:         string(created.Currency),
	})
	if err != nil {
		return "", err
	}
	if winner.PriceID != created.ID {
		s.Logger.Infow("lost price override race, adopting recorded price",
			"plan", plan,
			"created_price_id", created.ID,
			"recorded_price_id", winner.PriceID)
	}

	s.cache.Set(cacheKey, winner.PriceID, overrideCacheTTL)
	return winner.PriceID, nil
}

// createAnnualPrice mints an annual price at the provider reusing the monthly
// price's product and currency so invoices group under one product.
func (s *priceService) createAnnualPrice(ctx context.Context, plan types.PlanName, monthlyPriceID string, totalCents int64) (*stripe.Price, error) {
	if monthlyPriceID == "" {
		return nil, s.missingPriceErr(plan, types.BillingCycleMonthly)
	}

	monthly, err := s.Gateway.GetPrice(ctx, monthlyPriceID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Annual pricing is temporarily unavailable").
			WithReportableDetails(map[string]any{"plan": plan, "monthly_price_id": monthlyPriceID}).
			Mark(ierr.ErrConfiguration)
	}
	if monthly.Product == nil || monthly.Product.ID == "" {
		return nil, ierr.NewError("monthly price has no product").
			WithReportableDetails(map[string]any{"plan": plan, "monthly_price_id": monthlyPriceID}).
			Mark(ierr.ErrConfiguration)
	}

	params := &stripe.PriceCreateParams{
		Product:    stripe.String(monthly.Product.ID),
		Currency:   stripe.String(string(monthly.Currency)),
		UnitAmount: stripe.Int64(totalCents),
		Nickname:   stripe.String(fmt.Sprintf("%s annual", plan)),
		Recurring: &stripe.PriceCreateRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalYear)),
		},
		Metadata: map[string]string{
			"plan":     string(plan),
			"key_mode": string(s.Config.Deployment.Mode),
		},
	}

	created, err := s.Gateway.CreatePrice(ctx, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Annual pricing is temporarily unavailable").
			WithDetail("plan", plan).
			Mark(ierr.ErrConfiguration)
	}

	s.Logger.Infow("created annual override price",
		"plan", plan,
		"price_id", created.ID,
		"amount_cents", totalCents)
	return created, nil
}

func (s *priceService) missingPriceErr(plan types.PlanName, cycle types.BillingCycle) error {
	return ierr.NewError("price id not configured").
		WithHintf("No %s price is configured for plan %s", cycle, plan).
		WithReportableDetails(map[string]any{"plan": plan, "billing_cycle": cycle}).
		Mark(ierr.ErrConfiguration)
}
