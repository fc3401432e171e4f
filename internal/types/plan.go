package types

import "strings"

// PlanName is a subscription tier offered to creators.
type PlanName string

const (
	PlanFree           PlanName = "Free"
	PlanCaption        PlanName = "Caption"
	PlanStarter        PlanName = "Starter"
	PlanGrowth         PlanName = "Growth"
	PlanPro            PlanName = "Pro"
	PlanElite          PlanName = "Elite"
	PlanOnlyFansStudio PlanName = "OnlyFansStudio"
	PlanAgency         PlanName = "Agency"
)

// planRanks orders tiers. Rank comparison is the sole determinant of whether a
// plan change is an upgrade or a downgrade.
var planRanks = map[PlanName]int{
	PlanFree:           0,
	PlanCaption:        0,
	PlanStarter:        0,
	PlanGrowth:         0,
	PlanPro:            1,
	PlanElite:          2,
	PlanOnlyFansStudio: 2,
	PlanAgency:         3,
}

// Rank returns the tier rank for the plan. Unknown plans return -1.
func (p PlanName) Rank() int {
	if rank, ok := planRanks[p]; ok {
		return rank
	}
	return -1
}

// PlanNameFromString maps a string to its canonical plan name, ignoring case.
func PlanNameFromString(s string) (PlanName, bool) {
	if _, ok := planRanks[PlanName(s)]; ok {
		return PlanName(s), true
	}
	for plan := range planRanks {
		if strings.EqualFold(string(plan), s) {
			return plan, true
		}
	}
	return "", false
}

func (p PlanName) Validate() bool {
	_, ok := planRanks[p]
	return ok
}

func (p PlanName) IsPaid() bool {
	return p.Validate() && p != PlanFree
}

// BillingCycle is the renewal interval of a paid plan.
type BillingCycle string

const (
	BillingCycleMonthly  BillingCycle = "monthly"
	BillingCycleAnnually BillingCycle = "annually"
)

func (c BillingCycle) Validate() bool {
	return c == BillingCycleMonthly || c == BillingCycleAnnually
}

// SubscriptionStatus mirrors the billing provider's subscription status.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// PlanChangeType classifies the outcome of a plan-change request.
type PlanChangeType string

const (
	PlanChangeCancelAtPeriodEnd           PlanChangeType = "cancel_at_period_end"
	PlanChangeDowngradeScheduled          PlanChangeType = "downgrade_scheduled"
	PlanChangeUpgradeProrated             PlanChangeType = "upgrade_prorated"
	PlanChangeUpgradeCrossIntervalProrate PlanChangeType = "upgrade_cross_interval_prorated"
)

// PlanChangeSource records which write path produced a plan-change event.
type PlanChangeSource string

const (
	PlanChangeSourceOrchestrator PlanChangeSource = "orchestrator"
	PlanChangeSourceWebhook      PlanChangeSource = "webhook"
)
