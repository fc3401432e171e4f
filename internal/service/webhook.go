package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/willjksn/echoflux/internal/domain/entitlement"
	"github.com/willjksn/echoflux/internal/domain/notification"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/types"
)

// WebhookService reconciles verified provider events into the account record.
// Provider state is treated as the source of truth: handlers overwrite the
// billing-owned fields from the event (or a fresh fetch) rather than patching
// them, so out-of-order and duplicate deliveries converge on the same state.
//
// A handler error is returned for logging, but the transport layer still
// acknowledges the delivery; the next event or a replay repairs the record.
type WebhookService interface {
	ProcessEvent(ctx context.Context, event *stripe.Event) error
}

type webhookService struct {
	ServiceParams
	prices      PriceService
	sideEffects SideEffectService
}

func NewWebhookService(params ServiceParams, prices PriceService, sideEffects SideEffectService) WebhookService {
	return &webhookService{
		ServiceParams: params,
		prices:        prices,
		sideEffects:   sideEffects,
	}
}

func (s *webhookService) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	s.Logger.Infow("processing webhook event", "event_id", event.ID, "event_type", event.Type)

	switch types.WebhookEventType(event.Type) {
	case types.WebhookEventTypeCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case types.WebhookEventTypeSubscriptionCreated:
		return s.handleSubscriptionCreated(ctx, event)
	case types.WebhookEventTypeSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, event)
	case types.WebhookEventTypeSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	case types.WebhookEventTypeInvoicePaymentSucceeded:
		return s.handleInvoicePaymentSucceeded(ctx, event)
	case types.WebhookEventTypeInvoicePaymentFailed:
		return s.handleInvoicePaymentFailed(ctx, event)
	default:
		s.Logger.Debugw("ignoring unhandled webhook event", "event_type", event.Type)
		return nil
	}
}

// handleCheckoutCompleted activates the subscription a checkout session
// produced. The session payload is thin, so the subscription is re-fetched
// for its authoritative current state.
func (s *webhookService) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return s.malformedPayload(event, err)
	}

	if session.Subscription == nil || session.Subscription.ID == "" {
		s.Logger.Debugw("checkout session without subscription, ignoring", "session_id", session.ID)
		return nil
	}

	sub, err := s.Gateway.GetSubscription(ctx, session.Subscription.ID)
	if err != nil {
		return err
	}

	customerID := customerIDOf(sub.Customer)
	if customerID == "" && session.Customer != nil {
		customerID = session.Customer.ID
	}

	return s.activateSubscription(ctx, sub, customerID)
}

func (s *webhookService) handleSubscriptionCreated(ctx context.Context, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return s.malformedPayload(event, err)
	}
	return s.activateSubscription(ctx, &sub, customerIDOf(sub.Customer))
}

// activateSubscription overwrites the account record from a newly active
// subscription: plan and cycle from the billed price, fresh usage counters,
// and no pending state of any kind.
func (s *webhookService) activateSubscription(ctx context.Context, sub *stripe.Subscription, customerID string) error {
	ent, err := s.entitlementByCustomer(ctx, customerID, sub.ID)
	if err != nil || ent == nil {
		return err
	}

	plan, cycle, ok := s.planFromSubscription(ctx, sub)
	if !ok {
		s.Logger.Warnw("subscription price maps to no known plan, skipping",
			"subscription_id", sub.ID,
			"customer_id", customerID)
		return nil
	}

	fromPlan := ent.Plan
	now := time.Now().UTC()

	ent.Plan = plan
	ent.BillingCycle = cycle
	ent.SubscriptionID = sub.ID
	ent.Status = types.SubscriptionStatus(sub.Status)
	ent.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	ent.ClearPending()
	ent.SubscriptionEndDate = nil
	ent.ResetUsage()
	ent.UpdatedAt = now

	if sub.StartDate > 0 {
		start := time.Unix(sub.StartDate, 0).UTC()
		ent.SubscriptionStartDate = &start
	} else {
		ent.SubscriptionStartDate = &now
	}

	if sub.Status == stripe.SubscriptionStatusTrialing && sub.TrialEnd > 0 {
		trialEnd := time.Unix(sub.TrialEnd, 0).UTC()
		ent.TrialEndDate = &trialEnd
	} else {
		ent.TrialEndDate = nil
	}

	if err := s.EntitlementRepo.Update(ctx, ent); err != nil {
		return err
	}

	s.Logger.Infow("subscription activated",
		"user_id", ent.UserID,
		"plan", plan,
		"billing_cycle", cycle,
		"subscription_id", sub.ID)

	if fromPlan != plan {
		s.sideEffects.RecordPlanChange(ctx, ent.UserID, fromPlan, plan, cycle, types.PlanChangeSourceWebhook)
	}
	s.sideEffects.GrantReferralReward(ctx, ent.UserID, plan)
	return nil
}

// handleSubscriptionUpdated mirrors status, cancellation flag and the
// currently billed plan into the record. When the billed price now matches
// the pending downgrade, the schedule phase has fired and the pending state
// collapses into the current plan. Usage counters are left alone here; they
// reset only on activation and successful payment.
func (s *webhookService) handleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return s.malformedPayload(event, err)
	}

	ent, err := s.entitlementByCustomer(ctx, customerIDOf(sub.Customer), sub.ID)
	if err != nil || ent == nil {
		return err
	}

	fromPlan := ent.Plan

	ent.SubscriptionID = sub.ID
	ent.Status = types.SubscriptionStatus(sub.Status)
	ent.CancelAtPeriodEnd = sub.CancelAtPeriodEnd

	if plan, cycle, ok := s.planFromSubscription(ctx, &sub); ok {
		if plan != ent.Plan || cycle != ent.BillingCycle {
			ent.Plan = plan
			ent.BillingCycle = cycle
		}
		if ent.PendingPlan != nil && *ent.PendingPlan == plan {
			ent.ClearPending()
			ent.SubscriptionEndDate = nil
		}
	}

	if sub.CancelAtPeriodEnd {
		ent.ClearPending()
		ent.SubscriptionEndDate = subscriptionPeriodEnd(&sub)
	} else if !ent.HasPendingDowngrade() {
		ent.SubscriptionEndDate = nil
	}

	if sub.Status == stripe.SubscriptionStatusTrialing && sub.TrialEnd > 0 {
		trialEnd := time.Unix(sub.TrialEnd, 0).UTC()
		ent.TrialEndDate = &trialEnd
	}

	ent.UpdatedAt = time.Now().UTC()
	if err := s.EntitlementRepo.Update(ctx, ent); err != nil {
		return err
	}

	if fromPlan != ent.Plan {
		s.Logger.Infow("plan changed via webhook",
			"user_id", ent.UserID,
			"from_plan", fromPlan,
			"to_plan", ent.Plan)
		s.sideEffects.RecordPlanChange(ctx, ent.UserID, fromPlan, ent.Plan, ent.BillingCycle, types.PlanChangeSourceWebhook)
	}
	return nil
}

// handleSubscriptionDeleted drops the account to Free. The billing
// relationship is over, so the subscription reference is cleared too.
func (s *webhookService) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return s.malformedPayload(event, err)
	}

	ent, err := s.entitlementByCustomer(ctx, customerIDOf(sub.Customer), sub.ID)
	if err != nil || ent == nil {
		return err
	}

	fromPlan := ent.Plan
	now := time.Now().UTC()

	ent.Plan = types.PlanFree
	ent.BillingCycle = ""
	ent.SubscriptionID = ""
	ent.Status = types.SubscriptionStatusCanceled
	ent.CancelAtPeriodEnd = false
	ent.ClearPending()
	ent.SubscriptionEndDate = &now
	ent.TrialEndDate = nil
	ent.UpdatedAt = now

	if err := s.EntitlementRepo.Update(ctx, ent); err != nil {
		return err
	}

	s.Logger.Infow("subscription ended, account dropped to free",
		"user_id", ent.UserID,
		"previous_plan", fromPlan)

	if fromPlan != types.PlanFree {
		s.sideEffects.RecordPlanChange(ctx, ent.UserID, fromPlan, types.PlanFree, "", types.PlanChangeSourceWebhook)
	}
	return nil
}

// handleInvoicePaymentSucceeded marks the start of a paid period: usage
// counters reset, any trial is over, and a referral reward is granted if one
// is still owed.
func (s *webhookService) handleInvoicePaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return s.malformedPayload(event, err)
	}

	ent, err := s.entitlementByCustomer(ctx, customerIDOf(inv.Customer), "")
	if err != nil || ent == nil {
		return err
	}

	ent.ResetUsage()
	ent.TrialEndDate = nil
	ent.UpdatedAt = time.Now().UTC()

	if err := s.EntitlementRepo.Update(ctx, ent); err != nil {
		return err
	}

	s.Logger.Infow("payment succeeded, usage reset",
		"user_id", ent.UserID,
		"invoice_id", inv.ID)

	s.sideEffects.GrantReferralReward(ctx, ent.UserID, ent.Plan)
	return nil
}

// handleInvoicePaymentFailed raises a user notification and an admin alert
// but never touches plan or status; the provider's dunning cycle decides the
// subscription's fate and later events report it.
func (s *webhookService) handleInvoicePaymentFailed(ctx context.Context, event *stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return s.malformedPayload(event, err)
	}

	ent, err := s.entitlementByCustomer(ctx, customerIDOf(inv.Customer), "")
	if err != nil || ent == nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.NotificationRepo.CreateNotification(ctx, &notification.Notification{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION),
		UserID:    ent.UserID,
		Kind:      notification.NotificationKindPaymentFailed,
		Title:     "Payment failed",
		Message:   "We could not collect your subscription payment. Please update your payment method.",
		ActionURL: inv.HostedInvoiceURL,
		CreatedAt: now,
	}); err != nil {
		s.Logger.Errorw("failed to create payment failure notification",
			"user_id", ent.UserID,
			"error", err)
	}

	if err := s.NotificationRepo.CreateAdminAlert(ctx, &notification.AdminAlert{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ADMIN_ALERT),
		Severity:  "warning",
		Message:   fmt.Sprintf("payment of %d %s failed for user %s", inv.AmountDue, inv.Currency, ent.UserID),
		UserID:    ent.UserID,
		CreatedAt: now,
	}); err != nil {
		s.Logger.Errorw("failed to create payment failure admin alert",
			"user_id", ent.UserID,
			"error", err)
	}

	s.sideEffects.NotifyAdminsPaymentFailed(ent.UserID, inv.AmountDue, string(inv.Currency), inv.HostedInvoiceURL)
	return nil
}

// entitlementByCustomer locates the account a provider event belongs to. An
// unknown customer is logged and skipped, not failed: deliveries for accounts
// this environment never knew about must still be acknowledged.
func (s *webhookService) entitlementByCustomer(ctx context.Context, customerID, subscriptionID string) (*entitlement.Entitlement, error) {
	if customerID == "" {
		s.Logger.Warnw("webhook payload without customer id", "subscription_id", subscriptionID)
		return nil, nil
	}

	ent, err := s.EntitlementRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("no account for webhook customer, skipping",
				"customer_id", customerID,
				"subscription_id", subscriptionID)
			return nil, nil
		}
		return nil, err
	}
	return ent, nil
}

// planFromSubscription derives (plan, cycle) from the first item's price,
// falling back to the metadata the orchestrator stamps on updates.
func (s *webhookService) planFromSubscription(ctx context.Context, sub *stripe.Subscription) (types.PlanName, types.BillingCycle, bool) {
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		if plan, cycle, ok := s.prices.PlanForPrice(ctx, sub.Items.Data[0].Price.ID); ok {
			return plan, cycle, true
		}
	}

	plan := types.PlanName(sub.Metadata["plan"])
	cycle := types.BillingCycle(sub.Metadata["billing_cycle"])
	if plan.Validate() && cycle.Validate() {
		return plan, cycle, true
	}
	return "", "", false
}

func (s *webhookService) malformedPayload(event *stripe.Event, err error) error {
	return ierr.WithError(err).
		WithHint("Webhook payload could not be parsed").
		WithReportableDetails(map[string]any{"event_id": event.ID, "event_type": event.Type}).
		Mark(ierr.ErrValidation)
}

func customerIDOf(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
