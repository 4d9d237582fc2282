package transfer

import (
	"context"
	"time"

	"gestock/internal/core/id"
)

// Repository persists transfer audit records.
type Repository interface {
	// Create appends one transfer record.
	Create(ctx context.Context, rec *Record) error

	// List retrieves transfer records matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Record, error)
}

// ListFilter narrows transfer history queries.
type ListFilter struct {
	LedgerID  *id.ID // matches source or destination
	ProductID *id.ID
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}
