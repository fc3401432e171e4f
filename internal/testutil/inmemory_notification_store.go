package testutil

import (
	"context"
	"sync"

	"github.com/willjksn/echoflux/internal/domain/notification"
)

// InMemoryNotificationStore implements notification.Repository
type InMemoryNotificationStore struct {
	mu            sync.RWMutex
	notifications []*notification.Notification
	alerts        []*notification.AdminAlert
}

func NewInMemoryNotificationStore() *InMemoryNotificationStore {
	return &InMemoryNotificationStore{}
}

func (s *InMemoryNotificationStore) CreateNotification(ctx context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *n
	s.notifications = append(s.notifications, &c)
	return nil
}

func (s *InMemoryNotificationStore) CreateAdminAlert(ctx context.Context, a *notification.AdminAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.alerts = append(s.alerts, &c)
	return nil
}

func (s *InMemoryNotificationStore) ListNotifications(ctx context.Context, userID string) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*notification.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

// Alerts returns all recorded admin alerts for assertions.
func (s *InMemoryNotificationStore) Alerts() []*notification.AdminAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*notification.AdminAlert{}, s.alerts...)
}
