package dto

import (
	"time"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/internal/domain/ledger"
)

// --- Request DTOs ---

// CreateLedgerRequest is the request body for opening a ledger.
type CreateLedgerRequest struct {
	OwnerID  string `json:"ownerId" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address" binding:"required"`
	Capacity int64  `json:"capacity" binding:"required,gt=0"`
}

// ToInput converts the request to a service input.
func (r *CreateLedgerRequest) ToInput() (ledger.CreateInput, error) {
	ownerID, err := id.Parse(r.OwnerID)
	if err != nil {
		return ledger.CreateInput{}, apperror.NewValidation("invalid owner id")
	}
	return ledger.CreateInput{
		OwnerID:  ownerID,
		Name:     r.Name,
		Address:  r.Address,
		Capacity: types.Quantity(r.Capacity),
	}, nil
}

// UpdateLedgerInfoRequest is the request body for renaming a ledger.
type UpdateLedgerInfoRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// ChangeCapacityRequest is the request body for resizing a ledger.
type ChangeCapacityRequest struct {
	Capacity int64 `json:"capacity" binding:"required,gt=0"`
}

// DeactivateLedgerRequest carries the in-flight order count supplied by the
// order side.
type DeactivateLedgerRequest struct {
	InFlightOrders int `json:"inFlightOrders" binding:"min=0"`
}

// ListLedgersRequest contains ledger list filter parameters.
type ListLedgersRequest struct {
	OwnerID string `form:"ownerId"`
	Active  *bool  `form:"active"`
	Name    string `form:"name"`
	Address string `form:"address"`
}

// ToFilter converts query parameters to a repository filter.
func (r *ListLedgersRequest) ToFilter() (ledger.Filter, error) {
	filter := ledger.Filter{
		Active:  r.Active,
		Name:    r.Name,
		Address: r.Address,
	}
	if r.OwnerID != "" {
		ownerID, err := id.Parse(r.OwnerID)
		if err != nil {
			return ledger.Filter{}, apperror.NewValidation("invalid owner id")
		}
		filter.OwnerID = &ownerID
	}
	return filter, nil
}

// MovementRequest is the request body for entry/exit/consume operations.
type MovementRequest struct {
	ProductID   string            `json:"productId" binding:"required"`
	Quantity    int64             `json:"quantity" binding:"required,gt=0"`
	Responsible string            `json:"responsible" binding:"required"`
	Reason      string            `json:"reason,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ToInput converts the request to a service input.
func (r *MovementRequest) ToInput(ledgerID id.ID) (ledger.MovementInput, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return ledger.MovementInput{}, apperror.NewValidation("invalid product id")
	}
	return ledger.MovementInput{
		LedgerID:    ledgerID,
		ProductID:   productID,
		Quantity:    types.Quantity(r.Quantity),
		Responsible: r.Responsible,
		Reason:      r.Reason,
		Metadata:    r.Metadata,
	}, nil
}

// AdjustmentRequest is the request body for inventory corrections.
// Direction is explicit and a reason is mandatory.
type AdjustmentRequest struct {
	ProductID   string `json:"productId" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	Kind        string `json:"kind" binding:"required,oneof=entry exit"`
	Responsible string `json:"responsible" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}

// ToInput converts the request to a service input plus movement kind.
func (r *AdjustmentRequest) ToInput(ledgerID id.ID) (ledger.MovementInput, ledger.MovementKind, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return ledger.MovementInput{}, "", apperror.NewValidation("invalid product id")
	}
	return ledger.MovementInput{
		LedgerID:    ledgerID,
		ProductID:   productID,
		Quantity:    types.Quantity(r.Quantity),
		Responsible: r.Responsible,
		Reason:      r.Reason,
	}, ledger.MovementKind(r.Kind), nil
}

// ReservationRequest is the request body for reserve/release operations.
type ReservationRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// ReorderPointRequest is the request body for defining a reorder point.
// Decimal fields travel as strings to avoid float drift in thresholds.
type ReorderPointRequest struct {
	ProductID           string `json:"productId" binding:"required"`
	AvgDailyConsumption string `json:"avgDailyConsumption" binding:"required"`
	LeadTimeDays        int    `json:"leadTimeDays" binding:"min=0"`
	SafetyStock         string `json:"safetyStock,omitempty"`
}

// ReorderPointFromHistoryRequest derives the reorder point from a trailing
// consumption total instead of an explicit daily rate.
type ReorderPointFromHistoryRequest struct {
	ProductID     string `json:"productId" binding:"required"`
	TotalConsumed int64  `json:"totalConsumed" binding:"min=0"`
	LeadTimeDays  int    `json:"leadTimeDays" binding:"min=0"`
	SafetyStock   string `json:"safetyStock,omitempty"`
}

// ParseRate parses a decimal string field, treating empty as zero.
func ParseRate(s string) (types.Rate, error) {
	if s == "" {
		return types.ZeroRate(), nil
	}
	rate, err := types.NewRateFromString(s)
	if err != nil {
		return types.ZeroRate(), apperror.NewValidation("invalid decimal value: " + s)
	}
	return rate, nil
}

// --- Response DTOs ---

// LedgerResponse is the response body for a ledger.
type LedgerResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Capacity  int64     `json:"capacity"`
	Occupancy int64     `json:"occupancy"`
	Active    bool      `json:"active"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromLedger creates response DTO from the aggregate.
func FromLedger(l *ledger.Ledger) *LedgerResponse {
	return &LedgerResponse{
		ID:        l.ID().String(),
		OwnerID:   l.OwnerID().String(),
		Name:      l.Name(),
		Address:   l.Address(),
		Capacity:  l.Capacity().Int64(),
		Occupancy: l.Occupancy().Int64(),
		Active:    l.IsActive(),
		Version:   l.Version(),
		CreatedAt: l.CreatedAt(),
		UpdatedAt: l.UpdatedAt(),
	}
}

// BalanceResponse is the per-product stock snapshot.
type BalanceResponse struct {
	ProductID string `json:"productId"`
	Physical  int64  `json:"physical"`
	Reserved  int64  `json:"reserved"`
	Available int64  `json:"available"`
}

// FromBalances flattens the balance map into a stable response list.
func FromBalances(balances map[id.ID]ledger.Balance) []BalanceResponse {
	out := make([]BalanceResponse, 0, len(balances))
	for productID, b := range balances {
		out = append(out, BalanceResponse{
			ProductID: productID.String(),
			Physical:  b.Physical().Int64(),
			Reserved:  b.Reserved().Int64(),
			Available: b.Available().Int64(),
		})
	}
	return out
}

// MovementResponse is one audit entry for a physical stock change.
type MovementResponse struct {
	LineID      string            `json:"lineId"`
	Kind        string            `json:"kind"`
	ProductID   string            `json:"productId"`
	Quantity    int64             `json:"quantity"`
	OccurredAt  time.Time         `json:"occurredAt"`
	Responsible string            `json:"responsible"`
	Reason      string            `json:"reason,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// FromMovements converts the movement audit trail.
func FromMovements(movements []ledger.MovementRecord) []MovementResponse {
	out := make([]MovementResponse, len(movements))
	for i, m := range movements {
		out[i] = MovementResponse{
			LineID:      m.LineID().String(),
			Kind:        string(m.Kind()),
			ProductID:   m.ProductID().String(),
			Quantity:    m.Quantity().Int64(),
			OccurredAt:  m.OccurredAt(),
			Responsible: m.Responsible(),
			Reason:      m.Reason(),
			Metadata:    m.Metadata(),
		}
	}
	return out
}

// ReservationResponse is one audit entry for a reserve or release.
type ReservationResponse struct {
	LineID     string    `json:"lineId"`
	Kind       string    `json:"kind"`
	ProductID  string    `json:"productId"`
	Quantity   int64     `json:"quantity"`
	OccurredAt time.Time `json:"occurredAt"`
}

// FromReservations converts the reservation audit trail.
func FromReservations(reservations []ledger.ReservationRecord) []ReservationResponse {
	out := make([]ReservationResponse, len(reservations))
	for i, r := range reservations {
		out[i] = ReservationResponse{
			LineID:     r.LineID().String(),
			Kind:       string(r.Kind()),
			ProductID:  r.ProductID().String(),
			Quantity:   r.Quantity().Int64(),
			OccurredAt: r.OccurredAt(),
		}
	}
	return out
}

// ReorderPointResponse is the reorder point definition for one product.
type ReorderPointResponse struct {
	ProductID           string `json:"productId"`
	AvgDailyConsumption string `json:"avgDailyConsumption"`
	LeadTimeDays        int    `json:"leadTimeDays"`
	SafetyStock         string `json:"safetyStock"`
	Threshold           int64  `json:"threshold"`
	Reached             bool   `json:"reached"`
}

// FromReorderPoints converts reorder point definitions with their current
// reached state.
func FromReorderPoints(l *ledger.Ledger) []ReorderPointResponse {
	points := l.AllReorderPoints()
	out := make([]ReorderPointResponse, 0, len(points))
	for productID, rop := range points {
		out = append(out, ReorderPointResponse{
			ProductID:           productID.String(),
			AvgDailyConsumption: rop.AvgDailyConsumption().String(),
			LeadTimeDays:        rop.LeadTimeDays(),
			SafetyStock:         rop.SafetyStock().String(),
			Threshold:           rop.Threshold().Int64(),
			Reached:             l.HasReachedReorderPoint(productID),
		})
	}
	return out
}

// ReorderStatusResponse reports whether one product sits at or below its
// reorder threshold.
type ReorderStatusResponse struct {
	ProductID string `json:"productId"`
	Reached   bool   `json:"reached"`
}
