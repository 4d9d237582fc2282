// Package transfer coordinates stock movements between two ledgers.
package transfer

import (
	"time"

	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// Record is the audit entry for one completed transfer: which product moved,
// from where, to where, how much, and who asked for it.
type Record struct {
	ID           id.ID          `db:"id" json:"id"`
	ProductID    id.ID          `db:"product_id" json:"productId"`
	SourceID     id.ID          `db:"source_id" json:"sourceId"`
	DestinationID id.ID         `db:"destination_id" json:"destinationId"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	Responsible  string         `db:"responsible" json:"responsible"`
	Reason       string         `db:"reason" json:"reason,omitempty"`
	OccurredAt   time.Time      `db:"occurred_at" json:"occurredAt"`
}

func newRecord(productID, sourceID, destinationID id.ID, qty types.Quantity, responsible, reason string) *Record {
	return &Record{
		ID:            id.New(),
		ProductID:     productID,
		SourceID:      sourceID,
		DestinationID: destinationID,
		Quantity:      qty,
		Responsible:   responsible,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
}
