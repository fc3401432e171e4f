package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanRankOrdering(t *testing.T) {
	// every entry tier sits below Pro, Pro below Elite, Elite below Agency
	for _, entry := range []PlanName{PlanFree, PlanCaption, PlanStarter, PlanGrowth} {
		assert.Less(t, entry.Rank(), PlanPro.Rank(), "%s should rank below Pro", entry)
	}
	assert.Less(t, PlanPro.Rank(), PlanElite.Rank())
	assert.Equal(t, PlanElite.Rank(), PlanOnlyFansStudio.Rank())
	assert.Less(t, PlanElite.Rank(), PlanAgency.Rank())
}

func TestUnknownPlanRank(t *testing.T) {
	assert.Equal(t, -1, PlanName("Platinum").Rank())
	assert.False(t, PlanName("Platinum").Validate())
}

func TestIsPaid(t *testing.T) {
	assert.False(t, PlanFree.IsPaid())
	assert.False(t, PlanName("Platinum").IsPaid())
	assert.True(t, PlanPro.IsPaid())
	assert.True(t, PlanCaption.IsPaid())
}

func TestBillingCycleValidate(t *testing.T) {
	assert.True(t, BillingCycleMonthly.Validate())
	assert.True(t, BillingCycleAnnually.Validate())
	assert.False(t, BillingCycle("weekly").Validate())
	assert.False(t, BillingCycle("").Validate())
}
