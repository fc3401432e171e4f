package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/willjksn/echoflux/internal/domain/planevent"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/logger"
)

type planEventRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewPlanEventRepository creates a postgres-backed plan event repository
func NewPlanEventRepository(db *sqlx.DB, logger *logger.Logger) planevent.Repository {
	return &planEventRepository{db: db, logger: logger}
}

func (r *planEventRepository) CreateEvent(ctx context.Context, event *planevent.PlanChangeEvent) error {
	query := `
		INSERT INTO plan_change_events (id, user_id, from_plan, to_plan, billing_cycle, source, created_at)
		VALUES (:id, :user_id, :from_plan, :to_plan, :billing_cycle, :source, now())`

	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to log plan change event").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *planEventRepository) ListEvents(ctx context.Context, userID string) ([]*planevent.PlanChangeEvent, error) {
	var items []*planevent.PlanChangeEvent
	query := `
		SELECT id, user_id, from_plan, to_plan, billing_cycle, source, created_at
		FROM plan_change_events WHERE user_id = $1 ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list plan change events").
			Mark(ierr.ErrDatabase)
	}
	return items, nil
}

// GrantRewardIfAbsent uses the unique referred_user_id constraint so repeated
// grant attempts (checkout webhook plus payment webhook) insert at most once.
func (r *planEventRepository) GrantRewardIfAbsent(ctx context.Context, reward *planevent.ReferralReward) (bool, error) {
	query := `
		INSERT INTO referral_rewards (id, referred_user_id, referrer_user_id, plan, created_at)
		VALUES (:id, :referred_user_id, :referrer_user_id, :plan, now())
		ON CONFLICT (referred_user_id) DO NOTHING`

	result, err := r.db.NamedExecContext(ctx, query, reward)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to grant referral reward").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, nil
	}
	return rows > 0, nil
}

func (r *planEventRepository) GetReward(ctx context.Context, referredUserID string) (*planevent.ReferralReward, error) {
	var reward planevent.ReferralReward
	query := `
		SELECT id, referred_user_id, referrer_user_id, plan, created_at
		FROM referral_rewards WHERE referred_user_id = $1`

	if err := r.db.GetContext(ctx, &reward, query, referredUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("referral reward not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read referral reward").
			Mark(ierr.ErrDatabase)
	}
	return &reward, nil
}
