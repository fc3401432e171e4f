package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/willjksn/echoflux/internal/domain/notification"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/logger"
)

type notificationRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewNotificationRepository creates a postgres-backed notification repository
func NewNotificationRepository(db *sqlx.DB, logger *logger.Logger) notification.Repository {
	return &notificationRepository{db: db, logger: logger}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, kind, title, message, action_url, created_at)
		VALUES (:id, :user_id, :kind, :title, :message, :action_url, now())`

	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create notification").
			WithReportableDetails(map[string]any{"user_id": n.UserID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *notificationRepository) CreateAdminAlert(ctx context.Context, a *notification.AdminAlert) error {
	query := `
		INSERT INTO admin_alerts (id, severity, message, user_id, created_at)
		VALUES (:id, :severity, :message, :user_id, now())`

	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create admin alert").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *notificationRepository) ListNotifications(ctx context.Context, userID string) ([]*notification.Notification, error) {
	var items []*notification.Notification
	query := `
		SELECT id, user_id, kind, title, message, action_url, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list notifications").
			Mark(ierr.ErrDatabase)
	}
	return items, nil
}
