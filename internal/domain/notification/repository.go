package notification

import "context"

// Repository defines the interface for notification and alert data access.
// Both collections are append-only.
type Repository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	CreateAdminAlert(ctx context.Context, a *AdminAlert) error
	ListNotifications(ctx context.Context, userID string) ([]*Notification, error)
}
