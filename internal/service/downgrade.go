package service

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/willjksn/echoflux/internal/api/dto"
	"github.com/willjksn/echoflux/internal/domain/entitlement"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/types"
)

// scheduleDowngrade defers a move to a lower tier until the current period
// boundary using a two-phase subscription schedule: phase one keeps today's
// price until the boundary, phase two starts the target price there. The
// schedule releases after its last phase so the subscription reverts to
// normal lifecycle management.
//
// Only the pending triple is written locally; the current plan stays in force
// and the phase-transition webhook performs the actual swap.
func (s *planChangeService) scheduleDowngrade(ctx context.Context, ent *entitlement.Entitlement, sub *stripe.Subscription, plan types.PlanName, cycle types.BillingCycle) (*dto.PlanChangeResponse, error) {
	targetPriceID, err := s.prices.ResolvePrice(ctx, plan, cycle)
	if err != nil {
		return nil, err
	}

	if len(sub.Items.Data) == 0 {
		return nil, ierr.NewError("subscription has no items").
			WithDetail("subscription_id", sub.ID).
			Mark(ierr.ErrProvider)
	}
	item := sub.Items.Data[0]

	// Reuse the subscription's existing schedule when one is attached,
	// otherwise fork one from the live subscription. Re-running the request
	// lands on the same schedule and rewrites the same phases.
	var sched *stripe.SubscriptionSchedule
	if sub.Schedule != nil && sub.Schedule.ID != "" {
		sched, err = s.Gateway.GetSchedule(ctx, sub.Schedule.ID)
	} else {
		sched, err = s.Gateway.CreateSchedule(ctx, sub.ID)
	}
	if err != nil {
		return nil, err
	}

	currentPriceID, boundary, err := currentPhaseFacts(sched, item)
	if err != nil {
		return nil, err
	}

	phaseStart := item.CurrentPeriodStart
	if len(sched.Phases) > 0 && sched.Phases[0].StartDate > 0 {
		phaseStart = sched.Phases[0].StartDate
	}

	params := &stripe.SubscriptionScheduleUpdateParams{
		EndBehavior: stripe.String(string(stripe.SubscriptionScheduleEndBehaviorRelease)),
		Phases: []*stripe.SubscriptionScheduleUpdatePhaseParams{
			{
				StartDate: stripe.Int64(phaseStart),
				EndDate:   stripe.Int64(boundary),
				Items: []*stripe.SubscriptionScheduleUpdatePhaseItemParams{{
					Price:    stripe.String(currentPriceID),
					Quantity: stripe.Int64(1),
				}},
			},
			{
				StartDate: stripe.Int64(boundary),
				Items: []*stripe.SubscriptionScheduleUpdatePhaseItemParams{{
					Price:    stripe.String(targetPriceID),
					Quantity: stripe.Int64(1),
				}},
			},
		},
	}

	if _, err := s.Gateway.UpdateSchedule(ctx, sched.ID, params); err != nil {
		return nil, err
	}

	effective := time.Unix(boundary, 0).UTC()

	// A scheduled downgrade supersedes a pending cancellation; the two states
	// are mutually exclusive.
	if ent.CancelAtPeriodEnd {
		if _, err := s.Gateway.UpdateSubscription(ctx, sub.ID, &stripe.SubscriptionUpdateParams{
			CancelAtPeriodEnd: stripe.Bool(false),
		}); err != nil {
			return nil, err
		}
		ent.CancelAtPeriodEnd = false
	}

	ent.PendingPlan = &plan
	ent.PendingBillingCycle = &cycle
	ent.PendingPlanEffectiveDate = &effective
	ent.SubscriptionEndDate = &effective
	ent.UpdatedAt = time.Now().UTC()

	if err := s.EntitlementRepo.Update(ctx, ent); err != nil {
		return nil, err
	}

	s.Logger.Infow("downgrade scheduled",
		"user_id", ent.UserID,
		"from_plan", ent.Plan,
		"to_plan", plan,
		"schedule_id", sched.ID,
		"effective_date", effective)

	return &dto.PlanChangeResponse{
		Type:          types.PlanChangeDowngradeScheduled,
		Plan:          plan,
		BillingCycle:  cycle,
		EffectiveDate: &effective,
	}, nil
}

// currentPhaseFacts determines the price to preserve in phase one and the
// boundary timestamp where phase two begins. The schedule's own phase end is
// preferred; the subscription item's period end is the fallback. With neither
// available the downgrade is refused rather than scheduled at a guessed time.
func currentPhaseFacts(sched *stripe.SubscriptionSchedule, item *stripe.SubscriptionItem) (string, int64, error) {
	currentPriceID := ""
	if item.Price != nil {
		currentPriceID = item.Price.ID
	}

	var boundary int64
	if len(sched.Phases) > 0 {
		phase := sched.Phases[0]
		boundary = phase.EndDate
		if len(phase.Items) > 0 && phase.Items[0].Price != nil && phase.Items[0].Price.ID != "" {
			currentPriceID = phase.Items[0].Price.ID
		}
	}
	if boundary == 0 {
		boundary = item.CurrentPeriodEnd
	}

	if currentPriceID == "" || boundary == 0 {
		return "", 0, ierr.NewError("cannot determine current billing period").
			WithHint("The billing provider returned an incomplete subscription").
			WithDetail("schedule_id", sched.ID).
			Mark(ierr.ErrProvider)
	}
	return currentPriceID, boundary, nil
}
