package priceoverride

import (
	"context"

	"github.com/willjksn/echoflux/internal/types"
)

// Repository defines the interface for price override data access
type Repository interface {
	GetByPlan(ctx context.Context, mode types.KeyMode, plan types.PlanName) (*PriceOverride, error)
	GetByPriceID(ctx context.Context, mode types.KeyMode, priceID string) (*PriceOverride, error)

	// CreateIfAbsent inserts the record keyed by (mode, plan) unless one already
	// exists, and returns the stored record either way. The conditional write is
	// the mutual-exclusion point for concurrent first-writers across stateless
	// process instances; an in-process lock cannot serve that role.
	CreateIfAbsent(ctx context.Context, override *PriceOverride) (*PriceOverride, error)
}
