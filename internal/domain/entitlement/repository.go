package entitlement

import "context"

// Repository defines the interface for entitlement data access
type Repository interface {
	Get(ctx context.Context, userID string) (*Entitlement, error)
	GetByCustomerID(ctx context.Context, customerID string) (*Entitlement, error)

	// Update overwrites the billing-owned fields of the record. Writes are
	// whole-field overwrites, never read-modify-write accumulations, so a race
	// between the orchestrator and the webhook reconciler degrades to
	// last-write-wins rather than corruption.
	Update(ctx context.Context, ent *Entitlement) error
}
