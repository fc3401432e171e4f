package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/willjksn/echoflux/internal/domain/priceoverride"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/logger"
	"github.com/willjksn/echoflux/internal/types"
)

type priceOverrideRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewPriceOverrideRepository creates a postgres-backed price override repository
func NewPriceOverrideRepository(db *sqlx.DB, logger *logger.Logger) priceoverride.Repository {
	return &priceOverrideRepository{db: db, logger: logger}
}

func (r *priceOverrideRepository) GetByPlan(ctx context.Context, mode types.KeyMode, plan types.PlanName) (*priceoverride.PriceOverride, error) {
	var override priceoverride.PriceOverride
	query := `
		SELECT key_mode, plan, price_id, annual_total_cents, monthly_price_id, currency, created_at
		FROM price_overrides WHERE key_mode = $1 AND plan = $2`

	if err := r.db.GetContext(ctx, &override, query, mode, plan); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("price override not found").
				WithReportableDetails(map[string]any{"key_mode": mode, "plan": plan}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read price override").
			Mark(ierr.ErrDatabase)
	}
	return &override, nil
}

func (r *priceOverrideRepository) GetByPriceID(ctx context.Context, mode types.KeyMode, priceID string) (*priceoverride.PriceOverride, error) {
	var override priceoverride.PriceOverride
	query := `
		SELECT key_mode, plan, price_id, annual_total_cents, monthly_price_id, currency, created_at
		FROM price_overrides WHERE key_mode = $1 AND price_id = $2`

	if err := r.db.GetContext(ctx, &override, query, mode, priceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("price override not found").
				WithReportableDetails(map[string]any{"key_mode": mode, "price_id": priceID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read price override").
			Mark(ierr.ErrDatabase)
	}
	return &override, nil
}

// CreateIfAbsent relies on the (key_mode, plan) primary key: ON CONFLICT DO
// NOTHING makes the insert a no-op for every writer but the first, and the
// re-read afterwards returns the winner's record to all of them.
func (r *priceOverrideRepository) CreateIfAbsent(ctx context.Context, override *priceoverride.PriceOverride) (*priceoverride.PriceOverride, error) {
	query := `
		INSERT INTO price_overrides (key_mode, plan, price_id, annual_total_cents, monthly_price_id, currency, created_at)
		VALUES (:key_mode, :plan, :price_id, :annual_total_cents, :monthly_price_id, :currency, now())
		ON CONFLICT (key_mode, plan) DO NOTHING`

	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to persist price override").
			WithReportableDetails(map[string]any{"key_mode": override.KeyMode, "plan": override.Plan}).
			Mark(ierr.ErrDatabase)
	}

	return r.GetByPlan(ctx, override.KeyMode, override.Plan)
}
