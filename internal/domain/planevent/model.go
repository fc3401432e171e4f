package planevent

import (
	"time"

	"github.com/willjksn/echoflux/internal/types"
)

// PlanChangeEvent is a cohort-analytics record logged when an account's plan
// actually changes. Logging is best-effort and never blocks a billing action.
type PlanChangeEvent struct {
	ID           string                 `db:"id" json:"id"`
	UserID       string                 `db:"user_id" json:"user_id"`
	FromPlan     types.PlanName         `db:"from_plan" json:"from_plan"`
	ToPlan       types.PlanName         `db:"to_plan" json:"to_plan"`
	BillingCycle types.BillingCycle     `db:"billing_cycle" json:"billing_cycle"`
	Source       types.PlanChangeSource `db:"source" json:"source"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
}

// ReferralReward records a reward granted to the referrer of a user who
// converted to a paid plan. At most one reward exists per referred user.
type ReferralReward struct {
	ID             string    `db:"id" json:"id"`
	ReferredUserID string    `db:"referred_user_id" json:"referred_user_id"`
	ReferrerUserID string    `db:"referrer_user_id" json:"referrer_user_id"`
	Plan           string    `db:"plan" json:"plan"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
