package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/willjksn/echoflux/internal/domain/entitlement"
	ierr "github.com/willjksn/echoflux/internal/errors"
)

// InMemoryEntitlementStore implements entitlement.Repository
type InMemoryEntitlementStore struct {
	mu      sync.RWMutex
	records map[string]*entitlement.Entitlement
}

func NewInMemoryEntitlementStore() *InMemoryEntitlementStore {
	return &InMemoryEntitlementStore{
		records: make(map[string]*entitlement.Entitlement),
	}
}

// Seed inserts a record directly for test setup.
func (s *InMemoryEntitlementStore) Seed(ent *entitlement.Entitlement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ent.CreatedAt.IsZero() {
		ent.CreatedAt = time.Now().UTC()
	}
	s.records[ent.UserID] = copyEntitlement(ent)
}

func (s *InMemoryEntitlementStore) Get(ctx context.Context, userID string) (*entitlement.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.records[userID]
	if !ok {
		return nil, ierr.NewError("entitlement not found").
			WithHint("No account exists for this user").
			Mark(ierr.ErrNotFound)
	}
	return copyEntitlement(ent), nil
}

func (s *InMemoryEntitlementStore) GetByCustomerID(ctx context.Context, customerID string) (*entitlement.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ent := range s.records {
		if ent.CustomerID == customerID {
			return copyEntitlement(ent), nil
		}
	}
	return nil, ierr.NewError("entitlement not found").
		WithHint("No account exists for this customer").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryEntitlementStore) Update(ctx context.Context, ent *entitlement.Entitlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[ent.UserID]; !ok {
		return ierr.NewError("entitlement not found").
			Mark(ierr.ErrNotFound)
	}
	s.records[ent.UserID] = copyEntitlement(ent)
	return nil
}

func copyEntitlement(e *entitlement.Entitlement) *entitlement.Entitlement {
	if e == nil {
		return nil
	}
	out := *e
	out.SubscriptionStartDate = copyTime(e.SubscriptionStartDate)
	out.SubscriptionEndDate = copyTime(e.SubscriptionEndDate)
	out.PendingPlanEffectiveDate = copyTime(e.PendingPlanEffectiveDate)
	out.TrialEndDate = copyTime(e.TrialEndDate)
	if e.PendingPlan != nil {
		p := *e.PendingPlan
		out.PendingPlan = &p
	}
	if e.PendingBillingCycle != nil {
		c := *e.PendingBillingCycle
		out.PendingBillingCycle = &c
	}
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
