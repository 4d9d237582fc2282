package ledger

import (
	"fmt"

	"gestock/internal/core/apperror"
	"gestock/internal/core/types"
)

// Balance is the per-product stock snapshot held by a ledger.
//
// It is a pure value type: every operation returns a new Balance and the
// invariant 0 <= reserved <= physical holds for every instance that can be
// constructed. Available stock is always derived, never stored.
type Balance struct {
	physical types.Quantity
	reserved types.Quantity
}

// ZeroBalance returns the empty balance.
func ZeroBalance() Balance {
	return Balance{}
}

// NewBalance constructs a balance, rejecting any state where either field is
// negative or reserved exceeds physical.
func NewBalance(physical, reserved types.Quantity) (Balance, error) {
	if physical.IsNegative() || reserved.IsNegative() || reserved > physical {
		return Balance{}, apperror.NewInvalidBalanceState(physical.Int64(), reserved.Int64())
	}
	return Balance{physical: physical, reserved: reserved}, nil
}

// Physical returns the quantity physically present.
func (b Balance) Physical() types.Quantity { return b.physical }

// Reserved returns the quantity held against in-flight orders.
func (b Balance) Reserved() types.Quantity { return b.reserved }

// Available returns the quantity that can still be promised or withdrawn.
func (b Balance) Available() types.Quantity { return b.physical - b.reserved }

// IsEmpty reports whether no units are physically present.
func (b Balance) IsEmpty() bool { return b.physical.IsZero() }

// WithEntry returns a balance increased by qty physical units.
func (b Balance) WithEntry(qty types.Quantity) (Balance, error) {
	if !qty.IsPositive() {
		return b, apperror.NewValidation("quantity must be positive")
	}
	return Balance{physical: b.physical + qty, reserved: b.reserved}, nil
}

// WithExit returns a balance decreased by qty physical units.
// Fails when the available balance cannot cover the exit.
func (b Balance) WithExit(qty types.Quantity) (Balance, error) {
	if !qty.IsPositive() {
		return b, apperror.NewValidation("quantity must be positive")
	}
	if b.Available() < qty {
		return b, apperror.NewInsufficientAvailable(qty.Int64(), b.Available().Int64())
	}
	return Balance{physical: b.physical - qty, reserved: b.reserved}, nil
}

// WithReservation returns a balance with qty additional units reserved.
// Physical stock is untouched; fails when available cannot cover the hold.
func (b Balance) WithReservation(qty types.Quantity) (Balance, error) {
	if !qty.IsPositive() {
		return b, apperror.NewValidation("quantity must be positive")
	}
	if b.Available() < qty {
		return b, apperror.NewInsufficientAvailable(qty.Int64(), b.Available().Int64())
	}
	return Balance{physical: b.physical, reserved: b.reserved + qty}, nil
}

// WithRelease returns a balance with qty units released from reservation.
// Fails when more is released than is currently reserved.
func (b Balance) WithRelease(qty types.Quantity) (Balance, error) {
	if !qty.IsPositive() {
		return b, apperror.NewValidation("quantity must be positive")
	}
	if b.reserved < qty {
		return b, apperror.NewReleaseExceedsReserved(qty.Int64(), b.reserved.Int64())
	}
	return Balance{physical: b.physical, reserved: b.reserved - qty}, nil
}

// String implements fmt.Stringer for logs and test failure messages.
func (b Balance) String() string {
	return fmt.Sprintf("Balance(physical=%d, reserved=%d)", b.physical, b.reserved)
}
