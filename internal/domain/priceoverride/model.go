package priceoverride

import (
	"time"

	"github.com/willjksn/echoflux/internal/types"
)

// PriceOverride maps a plan to the provider price enforcing its fixed annual
// total. Records are created lazily, once, and never updated: the annual total
// is a business promise, not a live catalog value.
type PriceOverride struct {
	// KeyMode separates test and live credential spaces so a test-mode price id
	// can never leak into live resolution
	KeyMode types.KeyMode `db:"key_mode" json:"key_mode"`

	Plan types.PlanName `db:"plan" json:"plan"`

	// PriceID is the provider annual price created for this plan
	PriceID string `db:"price_id" json:"price_id"`

	// AnnualTotalCents is the fixed annual total in minor currency units
	AnnualTotalCents int64 `db:"annual_total_cents" json:"annual_total_cents"`

	// MonthlyPriceID is the catalog price the override was derived from
	MonthlyPriceID string `db:"monthly_price_id" json:"monthly_price_id"`

	Currency string `db:"currency" json:"currency"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
