package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/willjksn/echoflux/internal/domain/planevent"
	"github.com/willjksn/echoflux/internal/types"
)

const sideEffectTimeout = 10 * time.Second

// SideEffectService runs the best-effort hooks that follow a billing action:
// cohort event logging, referral reward grants and admin email. A hook failure
// is logged and swallowed; it never fails the action that triggered it.
type SideEffectService interface {
	RecordPlanChange(ctx context.Context, userID string, from, to types.PlanName, cycle types.BillingCycle, source types.PlanChangeSource)
	GrantReferralReward(ctx context.Context, userID string, plan types.PlanName)
	NotifyAdminsPaymentFailed(userID string, amountCents int64, currency, hostedInvoiceURL string)
}

type sideEffectService struct {
	ServiceParams
}

func NewSideEffectService(params ServiceParams) SideEffectService {
	return &sideEffectService{ServiceParams: params}
}

func (s *sideEffectService) RecordPlanChange(ctx context.Context, userID string, from, to types.PlanName, cycle types.BillingCycle, source types.PlanChangeSource) {
	if from == to {
		return
	}

	err := s.PlanEventRepo.CreateEvent(ctx, &planevent.PlanChangeEvent{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN_CHANGE_EVENT),
		UserID:       userID,
		FromPlan:     from,
		ToPlan:       to,
		BillingCycle: cycle,
		Source:       source,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		s.Logger.Warnw("failed to record plan change event",
			"user_id", userID,
			"from_plan", from,
			"to_plan", to,
			"error", err)
	}
}

// GrantReferralReward grants the referrer of userID a reward for the first
// paid conversion. The conditional insert keeps the grant idempotent across
// repeated webhook deliveries.
func (s *sideEffectService) GrantReferralReward(ctx context.Context, userID string, plan types.PlanName) {
	if !plan.IsPaid() {
		return
	}

	referrerID, err := s.Referrals.ReferrerOf(ctx, userID)
	if err != nil {
		s.Logger.Warnw("referral lookup failed", "user_id", userID, "error", err)
		return
	}
	if referrerID == "" {
		return
	}

	granted, err := s.PlanEventRepo.GrantRewardIfAbsent(ctx, &planevent.ReferralReward{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REFERRAL_REWARD),
		ReferredUserID: userID,
		ReferrerUserID: referrerID,
		Plan:           string(plan),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		s.Logger.Warnw("failed to grant referral reward",
			"user_id", userID,
			"referrer_user_id", referrerID,
			"error", err)
		return
	}
	if granted {
		s.Logger.Infow("granted referral reward",
			"user_id", userID,
			"referrer_user_id", referrerID,
			"plan", plan)
	}
}

// NotifyAdminsPaymentFailed emails the configured admins off the request path.
// The goroutine is panic-safe and carries its own deadline so a slow email
// provider cannot hold a webhook open.
func (s *sideEffectService) NotifyAdminsPaymentFailed(userID string, amountCents int64, currency, hostedInvoiceURL string) {
	admins := s.Config.Billing.AdminEmails
	if len(admins) == 0 {
		return
	}

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		subject := fmt.Sprintf("Payment failed for user %s", userID)
		body := fmt.Sprintf(
			"<p>A subscription payment of %d %s failed for user <b>%s</b>.</p><p><a href=%q>Open invoice</a></p>",
			amountCents, currency, userID, hostedInvoiceURL)

		if err := s.Email.Send(ctx, admins, subject, body); err != nil {
			s.Logger.Warnw("failed to send payment failure alert email",
				"user_id", userID,
				"error", err)
		}
	})

	go func() {
		if recovered := wg.WaitAndRecover(); recovered != nil {
			s.Logger.Errorw("payment failure alert panicked",
				"user_id", userID,
				"panic", recovered.Value)
		}
	}()
}
