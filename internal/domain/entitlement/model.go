package entitlement

import (
	"time"

	"github.com/willjksn/echoflux/internal/types"
)

// Entitlement is the per-user account record for billing-derived state. The
// billing engine is the only writer of these fields; the rest of the
// application reads them.
type Entitlement struct {
	// UserID is the internal user identifier
	UserID string `db:"user_id" json:"user_id"`

	// Plan is the tier the account is currently on
	Plan types.PlanName `db:"plan" json:"plan"`

	// BillingCycle is the renewal interval of the current plan
	BillingCycle types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`

	// CustomerID is the provider customer reference; webhook writes key off it
	CustomerID string `db:"customer_id" json:"customer_id"`

	// SubscriptionID is the provider subscription reference; empty means no
	// billing relationship exists
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`

	// Status mirrors the provider subscription status
	Status types.SubscriptionStatus `db:"status" json:"status"`

	// CancelAtPeriodEnd is set when a cancellation is pending at the boundary
	CancelAtPeriodEnd bool `db:"cancel_at_period_end" json:"cancel_at_period_end"`

	SubscriptionStartDate *time.Time `db:"subscription_start_date" json:"subscription_start_date"`

	// SubscriptionEndDate is set while a cancellation or downgrade is pending
	// and cleared on a successful plan activation
	SubscriptionEndDate *time.Time `db:"subscription_end_date" json:"subscription_end_date"`

	// Pending* hold the future state while a downgrade is scheduled but not yet
	// effective. Mutually exclusive with CancelAtPeriodEnd.
	PendingPlan              *types.PlanName     `db:"pending_plan" json:"pending_plan"`
	PendingBillingCycle      *types.BillingCycle `db:"pending_billing_cycle" json:"pending_billing_cycle"`
	PendingPlanEffectiveDate *time.Time          `db:"pending_plan_effective_date" json:"pending_plan_effective_date"`

	// TrialEndDate is cleared on the first successful payment
	TrialEndDate *time.Time `db:"trial_end_date" json:"trial_end_date"`

	// Monthly usage counters, reset to zero whenever a new paid period begins
	PostsUsed    int `db:"posts_used" json:"posts_used"`
	CaptionsUsed int `db:"captions_used" json:"captions_used"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasSubscription reports whether a billing relationship exists.
func (e *Entitlement) HasSubscription() bool {
	return e.SubscriptionID != ""
}

// HasPendingDowngrade reports whether a downgrade is scheduled but not yet effective.
func (e *Entitlement) HasPendingDowngrade() bool {
	return e.PendingPlan != nil
}

// ClearPending drops the pending-downgrade triple.
func (e *Entitlement) ClearPending() {
	e.PendingPlan = nil
	e.PendingBillingCycle = nil
	e.PendingPlanEffectiveDate = nil
}

// ResetUsage zeroes the monthly usage counters.
func (e *Entitlement) ResetUsage() {
	e.PostsUsed = 0
	e.CaptionsUsed = 0
}

// RemainingPosts returns the unused post quota for the period given the
// plan's limit. A non-positive limit means unlimited.
func (e *Entitlement) RemainingPosts(limit int) int {
	return remaining(e.PostsUsed, limit)
}

// RemainingCaptions returns the unused caption quota for the period given the
// plan's limit. A non-positive limit means unlimited.
func (e *Entitlement) RemainingCaptions(limit int) int {
	return remaining(e.CaptionsUsed, limit)
}

// CanConsumePost reports whether another post fits within the limit.
func (e *Entitlement) CanConsumePost(limit int) bool {
	return limit <= 0 || e.PostsUsed < limit
}

// CanConsumeCaption reports whether another caption fits within the limit.
func (e *Entitlement) CanConsumeCaption(limit int) bool {
	return limit <= 0 || e.CaptionsUsed < limit
}

func remaining(used, limit int) int {
	if limit <= 0 {
		return -1
	}
	if used >= limit {
		return 0
	}
	return limit - used
}
