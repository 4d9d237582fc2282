package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"gestock/internal/core/apperror"
	"gestock/internal/core/types"
)

// historyWindowDays is the consumption window used when deriving the average
// daily consumption from a raw consumption total.
const historyWindowDays = 90

// ReorderPoint is the replenishment threshold for one product in a ledger:
//
//	threshold = ceil(averageDailyConsumption * leadTimeDays + safetyStock)
//
// The threshold is computed once at construction and never mutated; a
// product's reorder point is redefined by replacing the value in the
// ledger's map.
type ReorderPoint struct {
	avgDailyConsumption types.Rate
	leadTimeDays        int
	safetyStock         types.Rate
	threshold           types.Quantity
}

// NewReorderPoint constructs a reorder point from non-negative inputs.
func NewReorderPoint(avgDailyConsumption types.Rate, leadTimeDays int, safetyStock types.Rate) (ReorderPoint, error) {
	if avgDailyConsumption.IsNegative() {
		return ReorderPoint{}, apperror.NewValidation("average daily consumption must be >= 0")
	}
	if leadTimeDays < 0 {
		return ReorderPoint{}, apperror.NewValidation("lead time days must be >= 0")
	}
	if safetyStock.IsNegative() {
		return ReorderPoint{}, apperror.NewValidation("safety stock must be >= 0")
	}

	threshold := avgDailyConsumption.
		Mul(decimal.NewFromInt(int64(leadTimeDays))).
		Add(safetyStock).
		Ceil().
		IntPart()

	return ReorderPoint{
		avgDailyConsumption: avgDailyConsumption,
		leadTimeDays:        leadTimeDays,
		safetyStock:         safetyStock,
		threshold:           types.Quantity(threshold),
	}, nil
}

// ReorderPointFromHistory derives the average daily consumption from the
// total consumed over the trailing 90-day window.
func ReorderPointFromHistory(totalConsumed types.Quantity, leadTimeDays int, safetyStock types.Rate) (ReorderPoint, error) {
	if totalConsumed.IsNegative() {
		return ReorderPoint{}, apperror.NewValidation("total consumption must be >= 0")
	}
	avg := decimal.NewFromInt(totalConsumed.Int64()).
		Div(decimal.NewFromInt(historyWindowDays))
	return NewReorderPoint(avg, leadTimeDays, safetyStock)
}

// DefaultReorderPoint is the fallback threshold used when a product has no
// consumption data at all: reorder as soon as the last unit is left.
func DefaultReorderPoint() ReorderPoint {
	rop, _ := NewReorderPoint(types.ZeroRate(), 0, decimal.NewFromInt(1))
	return rop
}

// AvgDailyConsumption returns the consumption rate input.
func (r ReorderPoint) AvgDailyConsumption() types.Rate { return r.avgDailyConsumption }

// LeadTimeDays returns the lead time input.
func (r ReorderPoint) LeadTimeDays() int { return r.leadTimeDays }

// SafetyStock returns the safety stock input.
func (r ReorderPoint) SafetyStock() types.Rate { return r.safetyStock }

// Threshold returns the computed reorder threshold in whole units.
func (r ReorderPoint) Threshold() types.Quantity { return r.threshold }

// Reached reports whether the given physical stock has fallen to or below
// the threshold.
func (r ReorderPoint) Reached(physical types.Quantity) bool {
	return physical <= r.threshold
}

// String implements fmt.Stringer.
func (r ReorderPoint) String() string {
	return fmt.Sprintf("ROP(threshold=%d, avg=%s/day, lead=%dd, safety=%s)",
		r.threshold, r.avgDailyConsumption, r.leadTimeDays, r.safetyStock)
}
