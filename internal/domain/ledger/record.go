package ledger

import (
	"time"

	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// MovementKind defines the direction of a physical stock change.
type MovementKind string

const (
	// MovementEntry increases physical stock
	MovementEntry MovementKind = "entry"
	// MovementExit decreases physical stock
	MovementExit MovementKind = "exit"
)

// Well-known metadata keys stamped on movement records by the ledger and
// its collaborators. Callers may add arbitrary keys of their own.
const (
	MetaAdjustment          = "adjustment"
	MetaReservationConsumed = "reservation_consumed"
	MetaTransfer            = "transfer"
	MetaSourceLedger        = "source_ledger"
)

// MovementRecord is one immutable audit entry for a physical stock change.
// Quantity is always strictly positive; direction is carried by the kind.
// Records are appended once and never modified or removed.
type MovementRecord struct {
	lineID      id.ID
	kind        MovementKind
	productID   id.ID
	quantity    types.Quantity
	occurredAt  time.Time
	responsible string
	reason      string
	meta        map[string]string
}

func newMovementRecord(
	kind MovementKind,
	productID id.ID,
	quantity types.Quantity,
	responsible, reason string,
	meta map[string]string,
) MovementRecord {
	return MovementRecord{
		lineID:      id.New(),
		kind:        kind,
		productID:   productID,
		quantity:    quantity,
		occurredAt:  time.Now().UTC(),
		responsible: responsible,
		reason:      reason,
		meta:        copyMeta(meta),
	}
}

// RestoreMovementRecord rebuilds a record from persisted state.
// Used by repositories only; domain code appends via ledger operations.
func RestoreMovementRecord(
	lineID id.ID,
	kind MovementKind,
	productID id.ID,
	quantity types.Quantity,
	occurredAt time.Time,
	responsible, reason string,
	meta map[string]string,
) MovementRecord {
	return MovementRecord{
		lineID:      lineID,
		kind:        kind,
		productID:   productID,
		quantity:    quantity,
		occurredAt:  occurredAt,
		responsible: responsible,
		reason:      reason,
		meta:        copyMeta(meta),
	}
}

func (m MovementRecord) LineID() id.ID            { return m.lineID }
func (m MovementRecord) Kind() MovementKind       { return m.kind }
func (m MovementRecord) ProductID() id.ID         { return m.productID }
func (m MovementRecord) Quantity() types.Quantity { return m.quantity }
func (m MovementRecord) OccurredAt() time.Time    { return m.occurredAt }
func (m MovementRecord) Responsible() string      { return m.responsible }
func (m MovementRecord) Reason() string           { return m.reason }

// Metadata returns a copy of the metadata bag.
func (m MovementRecord) Metadata() map[string]string {
	return copyMeta(m.meta)
}

// HasMeta reports whether the metadata bag carries key, regardless of value.
// Flag keys like MetaAdjustment store "true"; MetaSourceLedger stores the
// source ledger's ID. Use Meta to inspect the value.
func (m MovementRecord) HasMeta(key string) bool {
	_, ok := m.meta[key]
	return ok
}

// Meta returns the value stored under key, or "" when the key is absent.
func (m MovementRecord) Meta(key string) string {
	return m.meta[key]
}

// SignedQuantity returns the quantity with direction applied.
// Entry = positive, exit = negative.
func (m MovementRecord) SignedQuantity() types.Quantity {
	if m.kind == MovementExit {
		return -m.quantity
	}
	return m.quantity
}

// ReservationKind defines the direction of a reservation lifecycle event.
type ReservationKind string

const (
	// ReservationReserve places a hold against available stock
	ReservationReserve ReservationKind = "reserve"
	// ReservationRelease returns a hold to available stock
	ReservationRelease ReservationKind = "release"
)

// ReservationRecord is one immutable audit entry for a reserve or release.
type ReservationRecord struct {
	lineID     id.ID
	kind       ReservationKind
	productID  id.ID
	quantity   types.Quantity
	occurredAt time.Time
}

func newReservationRecord(kind ReservationKind, productID id.ID, quantity types.Quantity) ReservationRecord {
	return ReservationRecord{
		lineID:     id.New(),
		kind:       kind,
		productID:  productID,
		quantity:   quantity,
		occurredAt: time.Now().UTC(),
	}
}

// RestoreReservationRecord rebuilds a record from persisted state.
func RestoreReservationRecord(
	lineID id.ID,
	kind ReservationKind,
	productID id.ID,
	quantity types.Quantity,
	occurredAt time.Time,
) ReservationRecord {
	return ReservationRecord{
		lineID:     lineID,
		kind:       kind,
		productID:  productID,
		quantity:   quantity,
		occurredAt: occurredAt,
	}
}

func (r ReservationRecord) LineID() id.ID            { return r.lineID }
func (r ReservationRecord) Kind() ReservationKind    { return r.kind }
func (r ReservationRecord) ProductID() id.ID         { return r.productID }
func (r ReservationRecord) Quantity() types.Quantity { return r.quantity }
func (r ReservationRecord) OccurredAt() time.Time    { return r.occurredAt }

func copyMeta(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
