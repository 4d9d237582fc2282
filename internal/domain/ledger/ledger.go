// Package ledger provides the stock ledger aggregate: per-product balances,
// reorder points and the append-only movement/reservation audit trail for
// one warehouse.
package ledger

import (
	"strings"
	"time"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// Ledger is the aggregate root for one warehouse's stock state.
//
// All mutation goes through the operations below; internal maps and slices
// are never handed out directly. Balances are replaced whole-value per
// operation so the reserved <= physical invariant is atomic from any
// observer's point of view, and exactly one audit record is appended per
// successful mutating operation. The ledger performs no I/O; a repository
// loads it in full, the caller mutates it, and the repository saves it back.
type Ledger struct {
	id        id.ID
	ownerID   id.ID
	name      string
	address   string
	capacity  types.Quantity
	active    bool
	version   int
	createdAt time.Time
	updatedAt time.Time

	balances      map[id.ID]Balance
	reorderPoints map[id.ID]ReorderPoint
	movements     []MovementRecord
	reservations  []ReservationRecord
}

// New creates an active, empty ledger.
func New(ownerID id.ID, name, address string, capacity types.Quantity) (*Ledger, error) {
	if id.IsNil(ownerID) {
		return nil, apperror.NewValidation("owner is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperror.NewValidation("name is required")
	}
	if strings.TrimSpace(address) == "" {
		return nil, apperror.NewValidation("address is required")
	}
	if !capacity.IsPositive() {
		return nil, apperror.NewValidation("capacity must be positive")
	}

	now := time.Now().UTC()
	return &Ledger{
		id:            id.New(),
		ownerID:       ownerID,
		name:          name,
		address:       address,
		capacity:      capacity,
		active:        true,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
		balances:      make(map[id.ID]Balance),
		reorderPoints: make(map[id.ID]ReorderPoint),
	}, nil
}

// Restore rebuilds a ledger from persisted state. Repositories own the
// consistency of what they pass in; no audit records are appended.
func Restore(
	ledgerID, ownerID id.ID,
	name, address string,
	capacity types.Quantity,
	active bool,
	version int,
	createdAt, updatedAt time.Time,
	balances map[id.ID]Balance,
	reorderPoints map[id.ID]ReorderPoint,
	movements []MovementRecord,
	reservations []ReservationRecord,
) *Ledger {
	l := &Ledger{
		id:            ledgerID,
		ownerID:       ownerID,
		name:          name,
		address:       address,
		capacity:      capacity,
		active:        active,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
		balances:      make(map[id.ID]Balance, len(balances)),
		reorderPoints: make(map[id.ID]ReorderPoint, len(reorderPoints)),
		movements:     append([]MovementRecord(nil), movements...),
		reservations:  append([]ReservationRecord(nil), reservations...),
	}
	for pid, b := range balances {
		l.balances[pid] = b
	}
	for pid, rop := range reorderPoints {
		l.reorderPoints[pid] = rop
	}
	return l
}

// --- Identity and metadata ---

func (l *Ledger) ID() id.ID                { return l.id }
func (l *Ledger) OwnerID() id.ID           { return l.ownerID }
func (l *Ledger) Name() string             { return l.name }
func (l *Ledger) Address() string          { return l.address }
func (l *Ledger) Capacity() types.Quantity { return l.capacity }
func (l *Ledger) IsActive() bool           { return l.active }
func (l *Ledger) Version() int             { return l.version }
func (l *Ledger) CreatedAt() time.Time     { return l.createdAt }
func (l *Ledger) UpdatedAt() time.Time     { return l.updatedAt }

// SetVersion updates the optimistic-lock version (repository use only).
func (l *Ledger) SetVersion(v int) { l.version = v }

// UpdateInfo renames the ledger and updates its address.
func (l *Ledger) UpdateInfo(name, address string) error {
	if strings.TrimSpace(name) == "" {
		return apperror.NewValidation("name is required")
	}
	if strings.TrimSpace(address) == "" {
		return apperror.NewValidation("address is required")
	}
	l.name = name
	l.address = address
	l.touch()
	return nil
}

// --- Snapshot accessors ---

// BalanceOf returns the balance for a product, zero when untracked.
func (l *Ledger) BalanceOf(productID id.ID) Balance {
	return l.balances[productID]
}

// AllBalances returns a copy of the balance map.
func (l *Ledger) AllBalances() map[id.ID]Balance {
	out := make(map[id.ID]Balance, len(l.balances))
	for pid, b := range l.balances {
		out[pid] = b
	}
	return out
}

// MovementHistory returns a copy of the movement audit trail, oldest first.
func (l *Ledger) MovementHistory() []MovementRecord {
	return append([]MovementRecord(nil), l.movements...)
}

// ReservationHistory returns a copy of the reservation audit trail, oldest first.
func (l *Ledger) ReservationHistory() []ReservationRecord {
	return append([]ReservationRecord(nil), l.reservations...)
}

// ReorderPointOf returns the reorder point defined for a product, if any.
func (l *Ledger) ReorderPointOf(productID id.ID) (ReorderPoint, bool) {
	rop, ok := l.reorderPoints[productID]
	return rop, ok
}

// AllReorderPoints returns a copy of the reorder point map.
func (l *Ledger) AllReorderPoints() map[id.ID]ReorderPoint {
	out := make(map[id.ID]ReorderPoint, len(l.reorderPoints))
	for pid, rop := range l.reorderPoints {
		out[pid] = rop
	}
	return out
}

// Occupancy returns the sum of physical stock across all products.
func (l *Ledger) Occupancy() types.Quantity {
	var total types.Quantity
	for _, b := range l.balances {
		total += b.Physical()
	}
	return total
}

// --- Domain operations ---

// RegisterEntry adds qty physical units of a product and appends an entry
// movement. Capacity is not re-checked here; it is enforced when capacity
// is lowered (see ChangeCapacity) and bulk-load checks belong to the caller.
func (l *Ledger) RegisterEntry(productID id.ID, qty types.Quantity, responsible, reason string, meta map[string]string) error {
	if err := l.validateMovementInput(productID, qty, responsible); err != nil {
		return err
	}
	if !l.active {
		return apperror.NewLedgerInactive(l.id.String())
	}

	next, err := l.balances[productID].WithEntry(qty)
	if err != nil {
		return withProduct(err, productID)
	}
	l.balances[productID] = next
	l.appendMovement(newMovementRecord(MovementEntry, productID, qty, responsible, reason, meta))
	return nil
}

// RegisterExit removes qty physical units of a product and appends an exit
// movement. Reserved stock is untouched; the exit draws from available only.
func (l *Ledger) RegisterExit(productID id.ID, qty types.Quantity, responsible, reason string) error {
	if err := l.validateMovementInput(productID, qty, responsible); err != nil {
		return err
	}

	next, err := l.balances[productID].WithExit(qty)
	if err != nil {
		return withProduct(err, productID)
	}
	l.balances[productID] = next
	l.appendMovement(newMovementRecord(MovementExit, productID, qty, responsible, reason, nil))
	return nil
}

// RegisterAdjustment corrects stock after a physical count. Direction is
// given by kind; the movement is tagged so adjustments can be told apart
// from regular entries and exits. A reason is mandatory for traceability.
func (l *Ledger) RegisterAdjustment(productID id.ID, qty types.Quantity, kind MovementKind, responsible, reason string) error {
	if err := l.validateMovementInput(productID, qty, responsible); err != nil {
		return err
	}
	if kind != MovementEntry && kind != MovementExit {
		return apperror.NewValidation("adjustment kind must be entry or exit")
	}
	if strings.TrimSpace(reason) == "" {
		return apperror.NewValidation("adjustment reason is required")
	}
	if kind == MovementEntry && !l.active {
		return apperror.NewLedgerInactive(l.id.String())
	}

	current := l.balances[productID]
	var (
		next Balance
		err  error
	)
	if kind == MovementEntry {
		next, err = current.WithEntry(qty)
	} else {
		next, err = current.WithExit(qty)
	}
	if err != nil {
		return withProduct(err, productID)
	}
	l.balances[productID] = next
	l.appendMovement(newMovementRecord(kind, productID, qty, responsible, reason, map[string]string{
		MetaAdjustment: "true",
	}))
	return nil
}

// Reserve places a hold of qty units against available stock. Physical
// stock is unchanged; a reservation record is appended.
func (l *Ledger) Reserve(productID id.ID, qty types.Quantity) error {
	if err := l.validateQuantityInput(productID, qty); err != nil {
		return err
	}

	next, err := l.balances[productID].WithReservation(qty)
	if err != nil {
		return withProduct(err, productID)
	}
	l.balances[productID] = next
	l.appendReservation(newReservationRecord(ReservationReserve, productID, qty))
	return nil
}

// ReleaseReservation returns qty held units to available stock.
func (l *Ledger) ReleaseReservation(productID id.ID, qty types.Quantity) error {
	if err := l.validateQuantityInput(productID, qty); err != nil {
		return err
	}

	next, err := l.balances[productID].WithRelease(qty)
	if err != nil {
		return withProduct(err, productID)
	}
	l.balances[productID] = next
	l.appendReservation(newReservationRecord(ReservationRelease, productID, qty))
	return nil
}

// ConsumeReservationAsExit fulfils a held reservation with an actual
// outbound movement: the hold is released and the same quantity leaves
// physical stock, atomically within the aggregate. Exactly one exit
// movement is appended, tagged as reservation consumption.
func (l *Ledger) ConsumeReservationAsExit(productID id.ID, qty types.Quantity, responsible, reason string) error {
	if err := l.validateMovementInput(productID, qty, responsible); err != nil {
		return err
	}

	released, err := l.balances[productID].WithRelease(qty)
	if err != nil {
		return withProduct(err, productID)
	}
	// The post-release available always covers qty, but the exit revalidates
	// rather than assuming it.
	next, err := released.WithExit(qty)
	if err != nil {
		return withProduct(err, productID)
	}
	l.balances[productID] = next
	l.appendMovement(newMovementRecord(MovementExit, productID, qty, responsible, reason, map[string]string{
		MetaReservationConsumed: "true",
	}))
	return nil
}

// DefineReorderPoint replaces the reorder point for a product.
func (l *Ledger) DefineReorderPoint(productID id.ID, avgDailyConsumption types.Rate, leadTimeDays int, safetyStock types.Rate) error {
	if id.IsNil(productID) {
		return apperror.NewValidation("product is required")
	}
	rop, err := NewReorderPoint(avgDailyConsumption, leadTimeDays, safetyStock)
	if err != nil {
		return err
	}
	l.reorderPoints[productID] = rop
	l.touch()
	return nil
}

// SetReorderPoint replaces the reorder point for a product with an already
// constructed value (e.g. one derived from consumption history).
func (l *Ledger) SetReorderPoint(productID id.ID, rop ReorderPoint) error {
	if id.IsNil(productID) {
		return apperror.NewValidation("product is required")
	}
	l.reorderPoints[productID] = rop
	l.touch()
	return nil
}

// HasReachedReorderPoint reports whether the product's physical stock has
// fallen to or below its reorder threshold. False when no reorder point is
// defined.
func (l *Ledger) HasReachedReorderPoint(productID id.ID) bool {
	return l.WouldReachReorderPoint(productID, l.balances[productID])
}

// WouldReachReorderPoint is the what-if variant taking an explicit balance.
func (l *Ledger) WouldReachReorderPoint(productID id.ID, balance Balance) bool {
	rop, ok := l.reorderPoints[productID]
	if !ok {
		return false
	}
	return rop.Reached(balance.Physical())
}

// ChangeCapacity replaces the ledger capacity. Rejected when the new
// capacity would not hold the current occupancy.
func (l *Ledger) ChangeCapacity(newCapacity types.Quantity) error {
	if !newCapacity.IsPositive() {
		return apperror.NewValidation("capacity must be positive")
	}
	if occupancy := l.Occupancy(); newCapacity < occupancy {
		return apperror.NewCapacityBelowOccupancy(newCapacity.Int64(), occupancy.Int64())
	}
	l.capacity = newCapacity
	l.touch()
	return nil
}

// Deactivate marks the ledger inactive. Rejected while any product still
// has physical stock, which keeps inactive ledgers provably empty.
func (l *Ledger) Deactivate() error {
	if occupancy := l.Occupancy(); occupancy.IsPositive() {
		return apperror.NewLedgerHasStock(l.id.String(), occupancy.Int64())
	}
	l.active = false
	l.touch()
	return nil
}

// Activate marks the ledger active. Always succeeds.
func (l *Ledger) Activate() {
	l.active = true
	l.touch()
}

// --- internals ---

func (l *Ledger) validateMovementInput(productID id.ID, qty types.Quantity, responsible string) error {
	if err := l.validateQuantityInput(productID, qty); err != nil {
		return err
	}
	if strings.TrimSpace(responsible) == "" {
		return apperror.NewValidation("responsible is required")
	}
	return nil
}

func (l *Ledger) validateQuantityInput(productID id.ID, qty types.Quantity) error {
	if id.IsNil(productID) {
		return apperror.NewValidation("product is required")
	}
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive")
	}
	return nil
}

func (l *Ledger) appendMovement(m MovementRecord) {
	l.movements = append(l.movements, m)
	l.touch()
}

func (l *Ledger) appendReservation(r ReservationRecord) {
	l.reservations = append(l.reservations, r)
	l.touch()
}

func (l *Ledger) touch() {
	l.updatedAt = time.Now().UTC()
}

// withProduct attaches the product id to a balance-level domain error.
func withProduct(err error, productID id.ID) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.WithDetail("product_id", productID.String())
	}
	return err
}
