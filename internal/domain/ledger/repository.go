package ledger

import (
	"context"

	"gestock/internal/core/id"
)

// Repository defines persistence for the ledger aggregate.
//
// Aggregates are loaded in full (balances, reorder points and audit trails)
// and saved in full after mutation. Implementations must detect concurrent
// modification via the aggregate version and report it as
// apperror.CodeConcurrentModification.
type Repository interface {
	// Save persists the aggregate. Creates when the ledger is unknown,
	// updates (with optimistic version check) otherwise.
	Save(ctx context.Context, l *Ledger) error

	// FindByID loads the full aggregate, or CodeNotFound.
	FindByID(ctx context.Context, ledgerID id.ID) (*Ledger, error)

	// List loads aggregates matching the filter.
	List(ctx context.Context, filter Filter) ([]*Ledger, error)

	// ExistsWithName reports whether any other ledger uses the name.
	ExistsWithName(ctx context.Context, name string, excludeID id.ID) (bool, error)

	// ExistsWithAddress reports whether any other ledger uses the address.
	ExistsWithAddress(ctx context.Context, address string, excludeID id.ID) (bool, error)
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	OwnerID *id.ID
	Active  *bool
	Name    string
	Address string
}
