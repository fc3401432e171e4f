package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/willjksn/echoflux/internal/domain/priceoverride"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/types"
)

type overrideKey struct {
	mode types.KeyMode
	plan types.PlanName
}

// InMemoryPriceOverrideStore implements priceoverride.Repository with
// first-write-wins semantics matching the datastore conditional insert.
type InMemoryPriceOverrideStore struct {
	mu      sync.Mutex
	records map[overrideKey]*priceoverride.PriceOverride
}

func NewInMemoryPriceOverrideStore() *InMemoryPriceOverrideStore {
	return &InMemoryPriceOverrideStore{
		records: make(map[overrideKey]*priceoverride.PriceOverride),
	}
}

func (s *InMemoryPriceOverrideStore) GetByPlan(ctx context.Context, mode types.KeyMode, plan types.PlanName) (*priceoverride.PriceOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.records[overrideKey{mode, plan}]; ok {
		c := *o
		return &c, nil
	}
	return nil, ierr.NewError("price override not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPriceOverrideStore) GetByPriceID(ctx context.Context, mode types.KeyMode, priceID string) (*priceoverride.PriceOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, o := range s.records {
		if key.mode == mode && o.PriceID == priceID {
			c := *o
			return &c, nil
		}
	}
	return nil, ierr.NewError("price override not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPriceOverrideStore) CreateIfAbsent(ctx context.Context, override *priceoverride.PriceOverride) (*priceoverride.PriceOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := overrideKey{override.KeyMode, override.Plan}
	if existing, ok := s.records[key]; ok {
		c := *existing
		return &c, nil
	}

	stored := *override
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.records[key] = &stored

	c := stored
	return &c, nil
}
