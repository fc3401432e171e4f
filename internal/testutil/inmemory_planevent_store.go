package testutil

import (
	"context"
	"sync"

	"github.com/willjksn/echoflux/internal/domain/planevent"
	ierr "github.com/willjksn/echoflux/internal/errors"
)

// InMemoryPlanEventStore implements planevent.Repository
type InMemoryPlanEventStore struct {
	mu      sync.Mutex
	events  []*planevent.PlanChangeEvent
	rewards map[string]*planevent.ReferralReward
}

func NewInMemoryPlanEventStore() *InMemoryPlanEventStore {
	return &InMemoryPlanEventStore{
		rewards: make(map[string]*planevent.ReferralReward),
	}
}

func (s *InMemoryPlanEventStore) CreateEvent(ctx context.Context, event *planevent.PlanChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *event
	s.events = append(s.events, &c)
	return nil
}

func (s *InMemoryPlanEventStore) ListEvents(ctx context.Context, userID string) ([]*planevent.PlanChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*planevent.PlanChangeEvent
	for _, e := range s.events {
		if e.UserID == userID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *InMemoryPlanEventStore) GrantRewardIfAbsent(ctx context.Context, reward *planevent.ReferralReward) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rewards[reward.ReferredUserID]; ok {
		return false, nil
	}
	c := *reward
	s.rewards[reward.ReferredUserID] = &c
	return true, nil
}

func (s *InMemoryPlanEventStore) GetReward(ctx context.Context, referredUserID string) (*planevent.ReferralReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rewards[referredUserID]; ok {
		c := *r
		return &c, nil
	}
	return nil, ierr.NewError("referral reward not found").
		Mark(ierr.ErrNotFound)
}
