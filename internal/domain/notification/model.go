package notification

import "time"

// NotificationKind classifies a user-facing notification.
type NotificationKind string

const (
	NotificationKindPaymentFailed NotificationKind = "payment_failed"
)

// Notification is an append-only per-user notification record.
type Notification struct {
	ID      string           `db:"id" json:"id"`
	UserID  string           `db:"user_id" json:"user_id"`
	Kind    NotificationKind `db:"kind" json:"kind"`
	Title   string           `db:"title" json:"title"`
	Message string           `db:"message" json:"message"`

	// ActionURL links back to a hosted invoice when present
	ActionURL string `db:"action_url" json:"action_url"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AdminAlert is an append-only operational alert for the admin queue.
type AdminAlert struct {
	ID        string    `db:"id" json:"id"`
	Severity  string    `db:"severity" json:"severity"`
	Message   string    `db:"message" json:"message"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
