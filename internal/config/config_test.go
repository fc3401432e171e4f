package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willjksn/echoflux/internal/types"
)

func TestPlanPricingLookupIsCaseInsensitive(t *testing.T) {
	// viper lowercases map keys on unmarshal, the lookup must still hit
	billing := BillingConfig{
		Plans: map[string]PlanPricing{
			"pro": {MonthlyPriceID: "price_pro_monthly", AnnualTotalCents: 19900},
		},
	}

	pricing, ok := billing.PlanPricing(types.PlanPro)
	require.True(t, ok)
	assert.Equal(t, "price_pro_monthly", pricing.MonthlyPriceID)

	_, ok = billing.PlanPricing(types.PlanAgency)
	assert.False(t, ok)
}

func TestPlanForPrice(t *testing.T) {
	billing := GetDefaultConfig().Billing

	plan, cycle, ok := billing.PlanForPrice("price_starter_annual")
	require.True(t, ok)
	assert.Equal(t, types.PlanStarter, plan)
	assert.Equal(t, types.BillingCycleAnnually, cycle)

	plan, cycle, ok = billing.PlanForPrice("price_agency_monthly")
	require.True(t, ok)
	assert.Equal(t, types.PlanAgency, plan)
	assert.Equal(t, types.BillingCycleMonthly, cycle)

	_, _, ok = billing.PlanForPrice("price_unknown")
	assert.False(t, ok)

	_, _, ok = billing.PlanForPrice("")
	assert.False(t, ok)
}

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, GetDefaultConfig().Validate())
}
