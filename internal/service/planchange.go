package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/willjksn/echoflux/internal/api/dto"
	"github.com/willjksn/echoflux/internal/domain/entitlement"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/types"
)

// PlanChangeService orchestrates plan changes against the billing provider
// and mirrors the result into the account record. Classification is by tier
// rank: Free cancels at the period boundary, a lower rank schedules a deferred
// downgrade, an equal or higher rank applies immediately with proration.
//
// Provider writes happen before local writes, and every local write is a full
// overwrite of the billing-owned fields, so a retried request converges
// instead of compounding.
type PlanChangeService interface {
	ChangePlan(ctx context.Context, userID string, req dto.PlanChangeRequest) (*dto.PlanChangeResponse, error)
}

type planChangeService struct {
	ServiceParams
	prices      PriceService
	sideEffects SideEffectService
}

func NewPlanChangeService(params ServiceParams, prices PriceService, sideEffects SideEffectService) PlanChangeService {
	return &planChangeService{
		ServiceParams: params,
		prices:        prices,
		sideEffects:   sideEffects,
	}
}

func (s *planChangeService) ChangePlan(ctx context.Context, userID string, req dto.PlanChangeRequest) (*dto.PlanChangeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ent, err := s.EntitlementRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Changing plan presumes a live subscription to mutate. First-time
	// purchases go through checkout, not this endpoint.
	if !ent.HasSubscription() {
		return nil, ierr.NewError("no active subscription").
			WithHint("Subscribe through checkout before changing plans").
			Mark(ierr.ErrInvalidOperation)
	}

	sub, err := s.Gateway.GetSubscription(ctx, ent.SubscriptionID)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("plan change requested",
		"user_id", userID,
		"current_plan", ent.Plan,
		"target_plan", req.PlanName,
		"target_cycle", req.BillingCycle,
		"subscription_id", ent.SubscriptionID)

	if req.PlanName == types.PlanFree {
		return s.cancelToFree(ctx, ent, sub)
	}
	if req.PlanName.Rank() < ent.Plan.Rank() {
		return s.scheduleDowngrade(ctx, ent, sub, req.PlanName, req.BillingCycle)
	}
	return s.upgrade(ctx, ent, sub, req.PlanName, req.BillingCycle)
}

// cancelToFree flags the subscription to lapse at the period boundary. The
// paid plan stays in effect until then; the deletion webhook performs the
// actual drop to Free.
func (s *planChangeService) cancelToFree(ctx context.Context, ent *entitlement.Entitlement, sub *stripe.Subscription) (*dto.PlanChangeResponse, error) {
	// A cancellation supersedes a pending downgrade. The schedule must be
	// released at the provider too, or its stale phase fires at the boundary
	// and keeps billing on the downgrade price instead of lapsing.
	if sub.Schedule != nil && sub.Schedule.ID != "" {
		scheduleID := sub.Schedule.ID
		if _, err := s.Gateway.ReleaseSchedule(ctx, scheduleID); err != nil {
			return nil, err
		}
		s.Logger.Infow("released stale downgrade schedule",
			"user_id", ent.UserID,
			"schedule_id", scheduleID)
	}

	updated, err := s.Gateway.UpdateSubscription(ctx, sub.ID, &stripe.SubscriptionUpdateParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	periodEnd := subscriptionPeriodEnd(updated)
	if periodEnd == nil {
		periodEnd = subscriptionPeriodEnd(sub)
	}

	ent.CancelAtPeriodEnd = true
	ent.ClearPending()
	ent.SubscriptionEndDate = periodEnd
	ent.Status = types.SubscriptionStatus(updated.Status)
	ent.UpdatedAt = time.Now().UTC()

	if err := s.EntitlementRepo.Update(ctx, ent); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription flagged for cancellation",
		"user_id", ent.UserID,
		"subscription_id", sub.ID,
		"period_end", periodEnd)

	return &dto.PlanChangeResponse{
		Type:          types.PlanChangeCancelAtPeriodEnd,
		Plan:          ent.Plan,
		BillingCycle:  ent.BillingCycle,
		EffectiveDate: periodEnd,
	}, nil
}

// upgrade swaps the subscription item to the target price immediately, with
// proration, then raises and attempts to collect the proration invoice. A
// cross-interval move also resets the billing anchor so the new cycle starts
// now rather than straddling the old one.
func (s *planChangeService) upgrade(ctx context.Context, ent *entitlement.Entitlement, sub *stripe.Subscription, plan types.PlanName, cycle types.BillingCycle) (*dto.PlanChangeResponse, error) {
	priceID, err := s.prices.ResolvePrice(ctx, plan, cycle)
	if err != nil {
		return nil, err
	}

	if len(sub.Items.Data) == 0 {
		return nil, ierr.NewError("subscription has no items").
			WithDetail("subscription_id", sub.ID).
			Mark(ierr.ErrProvider)
	}
	item := sub.Items.Data[0]

	// An upgrade supersedes a pending downgrade. Releasing the schedule at the
	// provider, not just clearing local fields, prevents the stale phase from
	// firing at the boundary.
	if sub.Schedule != nil && sub.Schedule.ID != "" {
		scheduleID := sub.Schedule.ID
		if _, err := s.Gateway.ReleaseSchedule(ctx, scheduleID); err != nil {
			return nil, err
		}
		s.Logger.Infow("released stale downgrade schedule",
			"user_id", ent.UserID,
			"schedule_id", scheduleID)
	}

	crossInterval := ent.BillingCycle != cycle

	params := &stripe.SubscriptionUpdateParams{
		Items: []*stripe.SubscriptionUpdateItemParams{{
			ID:    stripe.String(item.ID),
			Price: stripe.String(priceID),
		}},
		ProrationBehavior: stripe.String("create_prorations"),
		CancelAtPeriodEnd: stripe.Bool(false),
		Metadata: map[string]string{
			"plan":          string(plan),
			"billing_cycle": string(cycle),
		},
	}
	if crossInterval {
		params.BillingCycleAnchorNow = stripe.Bool(true)
	}

	updated, err := s.Gateway.UpdateSubscription(ctx, sub.ID, params)
	if err != nil {
		return nil, err
	}

	invoice := s.collectProrationInvoice(ctx, ent.UserID, updated)

	fromPlan, fromCycle := ent.Plan, ent.BillingCycle
	now := time.Now().UTC()

	ent.Plan = plan
	ent.BillingCycle = cycle
	ent.Status = types.SubscriptionStatus(updated.Status)
	ent.CancelAtPeriodEnd = false
	ent.ClearPending()
	ent.SubscriptionEndDate = nil
	ent.SubscriptionStartDate = &now
	ent.ResetUsage()
	ent.UpdatedAt = now

	if err := s.EntitlementRepo.Update(ctx, ent); err != nil {
		return nil, err
	}

	if fromPlan != plan || fromCycle != cycle {
		s.sideEffects.RecordPlanChange(ctx, ent.UserID, fromPlan, plan, cycle, types.PlanChangeSourceOrchestrator)
	}

	changeType := types.PlanChangeUpgradeProrated
	if crossInterval {
		changeType = types.PlanChangeUpgradeCrossIntervalProrate
	}

	s.Logger.Infow("plan upgraded",
		"user_id", ent.UserID,
		"from_plan", fromPlan,
		"to_plan", plan,
		"cross_interval", crossInterval,
		"subscription_id", sub.ID)

	return &dto.PlanChangeResponse{
		Type:         changeType,
		Plan:         plan,
		BillingCycle: cycle,
		Invoice:      invoice,
	}, nil
}

// collectProrationInvoice raises an invoice for the pending proration items,
// finalizes it and attempts payment. Collection failure is not fatal: the
// plan is already active, the provider will dun, and the hosted URL lets the
// user settle manually.
func (s *planChangeService) collectProrationInvoice(ctx context.Context, userID string, sub *stripe.Subscription) *dto.InvoiceSummary {
	created, err := s.Gateway.CreateInvoice(ctx, &stripe.InvoiceCreateParams{
		Customer:     stripe.String(sub.Customer.ID),
		Subscription: stripe.String(sub.ID),
		AutoAdvance:  stripe.Bool(false),
	})
	if err != nil {
		s.Logger.Warnw("failed to create proration invoice",
			"user_id", userID,
			"subscription_id", sub.ID,
			"error", err)
		return nil
	}

	finalized, err := s.Gateway.FinalizeInvoice(ctx, created.ID)
	if err != nil {
		s.Logger.Warnw("failed to finalize proration invoice",
			"user_id", userID,
			"invoice_id", created.ID,
			"error", err)
		return s.invoiceSummary(created, false)
	}

	paid, err := s.Gateway.PayInvoice(ctx, finalized.ID)
	if err != nil {
		s.Logger.Warnw("proration invoice payment failed, leaving for dunning",
			"user_id", userID,
			"invoice_id", finalized.ID,
			"error", err)
		return s.invoiceSummary(finalized, false)
	}

	return s.invoiceSummary(paid, paid.Status == stripe.InvoiceStatusPaid)
}

func (s *planChangeService) invoiceSummary(inv *stripe.Invoice, paid bool) *dto.InvoiceSummary {
	if inv == nil {
		return nil
	}
	return &dto.InvoiceSummary{
		InvoiceID:        inv.ID,
		AmountDue:        decimal.NewFromInt(inv.AmountDue).Div(decimal.NewFromInt(100)),
		Currency:         string(inv.Currency),
		HostedInvoiceURL: inv.HostedInvoiceURL,
		Paid:             paid,
	}
}

// subscriptionPeriodEnd reads the current period boundary off the first
// subscription item.
func subscriptionPeriodEnd(sub *stripe.Subscription) *time.Time {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	end := sub.Items.Data[0].CurrentPeriodEnd
	if end == 0 {
		return nil
	}
	t := time.Unix(end, 0).UTC()
	return &t
}
