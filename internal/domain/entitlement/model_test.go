package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/willjksn/echoflux/internal/types"
)

func TestQuotaHelpers(t *testing.T) {
	ent := &Entitlement{PostsUsed: 28, CaptionsUsed: 50}

	assert.Equal(t, 2, ent.RemainingPosts(30))
	assert.True(t, ent.CanConsumePost(30))

	assert.Equal(t, 0, ent.RemainingCaptions(50))
	assert.False(t, ent.CanConsumeCaption(50))

	// non-positive limit means unlimited
	assert.Equal(t, -1, ent.RemainingPosts(0))
	assert.True(t, ent.CanConsumePost(0))
}

func TestClearPendingAndReset(t *testing.T) {
	plan := types.PlanPro
	cycle := types.BillingCycleMonthly
	ent := &Entitlement{
		PendingPlan:         &plan,
		PendingBillingCycle: &cycle,
		PostsUsed:           10,
		CaptionsUsed:        20,
	}

	assert.True(t, ent.HasPendingDowngrade())
	ent.ClearPending()
	assert.False(t, ent.HasPendingDowngrade())
	assert.Nil(t, ent.PendingBillingCycle)

	ent.ResetUsage()
	assert.Zero(t, ent.PostsUsed)
	assert.Zero(t, ent.CaptionsUsed)
}
