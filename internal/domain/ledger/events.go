package ledger

import (
	"context"
	"time"

	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// ReorderAlert signals that a product's physical stock crossed down to or
// below its reorder threshold. One alert is published per crossing, not per
// movement below the threshold.
type ReorderAlert struct {
	LedgerID   id.ID          `json:"ledgerId"`
	ProductID  id.ID          `json:"productId"`
	Physical   types.Quantity `json:"physical"`
	Threshold  types.Quantity `json:"threshold"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// AlertPublisher delivers reorder alerts. The postgres implementation writes
// them to a transactional outbox so an alert is never emitted for a rolled
// back movement.
type AlertPublisher interface {
	PublishReorderAlert(ctx context.Context, alert ReorderAlert) error
}
