package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/willjksn/echoflux/internal/domain/entitlement"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/logger"
)

type entitlementRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewEntitlementRepository creates a postgres-backed entitlement repository
func NewEntitlementRepository(db *sqlx.DB, logger *logger.Logger) entitlement.Repository {
	return &entitlementRepository{db: db, logger: logger}
}

const entitlementColumns = `
	user_id, plan, billing_cycle, customer_id, subscription_id, status,
	cancel_at_period_end, subscription_start_date, subscription_end_date,
	pending_plan, pending_billing_cycle, pending_plan_effective_date,
	trial_end_date, posts_used, captions_used, created_at, updated_at`

func (r *entitlementRepository) Get(ctx context.Context, userID string) (*entitlement.Entitlement, error) {
	var ent entitlement.Entitlement
	query := `SELECT` + entitlementColumns + ` FROM entitlements WHERE user_id = $1`

	if err := r.db.GetContext(ctx, &ent, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("entitlement not found").
				WithHint("No account found for this user").
				WithReportableDetails(map[string]any{"user_id": userID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read entitlement").
			Mark(ierr.ErrDatabase)
	}
	return &ent, nil
}

func (r *entitlementRepository) GetByCustomerID(ctx context.Context, customerID string) (*entitlement.Entitlement, error) {
	var ent entitlement.Entitlement
	query := `SELECT` + entitlementColumns + ` FROM entitlements WHERE customer_id = $1`

	if err := r.db.GetContext(ctx, &ent, query, customerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("entitlement not found for customer").
				WithHint("No account is linked to this billing customer").
				WithReportableDetails(map[string]any{"customer_id": customerID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read entitlement").
			Mark(ierr.ErrDatabase)
	}
	return &ent, nil
}

func (r *entitlementRepository) Update(ctx context.Context, ent *entitlement.Entitlement) error {
	query := `
		UPDATE entitlements SET
			plan = :plan,
			billing_cycle = :billing_cycle,
			customer_id = :customer_id,
			subscription_id = :subscription_id,
			status = :status,
			cancel_at_period_end = :cancel_at_period_end,
			subscription_start_date = :subscription_start_date,
			subscription_end_date = :subscription_end_date,
			pending_plan = :pending_plan,
			pending_billing_cycle = :pending_billing_cycle,
			pending_plan_effective_date = :pending_plan_effective_date,
			trial_end_date = :trial_end_date,
			posts_used = :posts_used,
			captions_used = :captions_used,
			updated_at = now()
		WHERE user_id = :user_id`

	result, err := r.db.NamedExecContext(ctx, query, ent)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update entitlement").
			WithReportableDetails(map[string]any{"user_id": ent.UserID}).
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ierr.NewError("entitlement not found").
			WithHint("No account found for this user").
			WithReportableDetails(map[string]any{"user_id": ent.UserID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
