package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

func quantity(v int64) types.Quantity {
	return types.Quantity(v)
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(id.New(), "Central Warehouse", "12 Harbor Rd", quantity(1000))
	require.NoError(t, err)
	return l
}

func TestNewLedgerValidation(t *testing.T) {
	owner := id.New()

	_, err := New(id.Nil(), "name", "addr", quantity(10))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = New(owner, "  ", "addr", quantity(10))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = New(owner, "name", "", quantity(10))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = New(owner, "name", "addr", quantity(0))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	l, err := New(owner, "name", "addr", quantity(10))
	require.NoError(t, err)
	assert.True(t, l.IsActive())
	assert.Equal(t, owner, l.OwnerID())
	assert.False(t, id.IsNil(l.ID()))
}

func TestRegisterEntry(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()

	err := l.RegisterEntry(product, quantity(100), "alice", "initial load", nil)
	require.NoError(t, err)

	b := l.BalanceOf(product)
	assert.Equal(t, int64(100), b.Physical().Int64())
	assert.Equal(t, int64(0), b.Reserved().Int64())
	assert.Equal(t, int64(100), b.Available().Int64())

	movements := l.MovementHistory()
	require.Len(t, movements, 1)
	assert.Equal(t, MovementEntry, movements[0].Kind())
	assert.Equal(t, int64(100), movements[0].Quantity().Int64())
	assert.Equal(t, "alice", movements[0].Responsible())
	assert.Equal(t, "initial load", movements[0].Reason())
}

func TestRegisterEntryValidation(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()

	err := l.RegisterEntry(id.Nil(), quantity(10), "alice", "", nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	err = l.RegisterEntry(product, quantity(0), "alice", "", nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	err = l.RegisterEntry(product, quantity(10), "   ", "", nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	assert.Empty(t, l.MovementHistory(), "failed operations must not append audit records")
}

func TestRegisterExit(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()
	require.NoError(t, l.RegisterEntry(product, quantity(100), "alice", "", nil))
	require.NoError(t, l.Reserve(product, quantity(30)))

	t.Run("exit above available fails and leaves state unchanged", func(t *testing.T) {
		err := l.RegisterExit(product, quantity(80), "bob", "order 1")
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientAvailable))

		b := l.BalanceOf(product)
		assert.Equal(t, int64(100), b.Physical().Int64())
		assert.Equal(t, int64(30), b.Reserved().Int64())
		require.Len(t, l.MovementHistory(), 1) // only the entry
	})

	t.Run("exit within available succeeds without touching reserved", func(t *testing.T) {
		err := l.RegisterExit(product, quantity(70), "bob", "order 1")
		require.NoError(t, err)

		b := l.BalanceOf(product)
		assert.Equal(t, int64(30), b.Physical().Int64())
		assert.Equal(t, int64(30), b.Reserved().Int64())
		assert.Equal(t, int64(0), b.Available().Int64())

		movements := l.MovementHistory()
		require.Len(t, movements, 2)
		assert.Equal(t, MovementExit, movements[1].Kind())
	})
}

func TestReserveAndRelease(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()
	require.NoError(t, l.RegisterEntry(product, quantity(100), "alice", "", nil))

	require.NoError(t, l.Reserve(product, quantity(30)))
	b := l.BalanceOf(product)
	assert.Equal(t, int64(100), b.Physical().Int64())
	assert.Equal(t, int64(30), b.Reserved().Int64())
	assert.Equal(t, int64(70), b.Available().Int64())

	reservations := l.ReservationHistory()
	require.Len(t, reservations, 1)
	assert.Equal(t, ReservationReserve, reservations[0].Kind())
	assert.Equal(t, int64(30), reservations[0].Quantity().Int64())

	// Release returns reserved to its prior value without changing physical.
	require.NoError(t, l.ReleaseReservation(product, quantity(30)))
	b = l.BalanceOf(product)
	assert.Equal(t, int64(100), b.Physical().Int64())
	assert.Equal(t, int64(0), b.Reserved().Int64())

	reservations = l.ReservationHistory()
	require.Len(t, reservations, 2)
	assert.Equal(t, ReservationRelease, reservations[1].Kind())
}

func TestReleaseExceedsReserved(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()
	require.NoError(t, l.RegisterEntry(product, quantity(100), "alice", "", nil))
	require.NoError(t, l.Reserve(product, quantity(10)))

	err := l.ReleaseReservation(product, quantity(11))
	assert.True(t, apperror.IsCode(err, apperror.CodeReleaseExceedsReserved))
	assert.Equal(t, int64(10), l.BalanceOf(product).Reserved().Int64())
}

func TestConsumeReservationAsExit(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()
	require.NoError(t, l.RegisterEntry(product, quantity(100), "alice", "", nil))
	require.NoError(t, l.Reserve(product, quantity(30)))

	err := l.ConsumeReservationAsExit(product, quantity(30), "bob", "order shipped")
	require.NoError(t, err)

	b := l.BalanceOf(product)
	assert.Equal(t, int64(70), b.Physical().Int64())
	assert.Equal(t, int64(0), b.Reserved().Int64())
	assert.Equal(t, int64(70), b.Available().Int64())

	movements := l.MovementHistory()
	require.Len(t, movements, 2)
	last := movements[1]
	assert.Equal(t, MovementExit, last.Kind())
	assert.Equal(t, int64(30), last.Quantity().Int64())
	assert.True(t, last.HasMeta(MetaReservationConsumed))
	assert.Equal(t, "true", last.Meta(MetaReservationConsumed))
	assert.False(t, last.HasMeta(MetaAdjustment))
}

func TestConsumeReservationWithoutHold(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()
	require.NoError(t, l.RegisterEntry(product, quantity(100), "alice", "", nil))

	err := l.ConsumeReservationAsExit(product, quantity(10), "bob", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeReleaseExceedsReserved))

	b := l.BalanceOf(product)
	assert.Equal(t, int64(100), b.Physical().Int64())
	require.Len(t, l.MovementHistory(), 1)
}

func TestRegisterAdjustment(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()
	require.NoError(t, l.RegisterEntry(product, quantity(50), "alice", "", nil))

	t.Run("requires reason", func(t *testing.T) {
		err := l.RegisterAdjustment(product, quantity(5), MovementExit, "carol", "  ")
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("exit adjustment", func(t *testing.T) {
		err := l.RegisterAdjustment(product, quantity(5), MovementExit, "carol", "count shortfall")
		require.NoError(t, err)
		assert.Equal(t, int64(45), l.BalanceOf(product).Physical().Int64())

		movements := l.MovementHistory()
		last := movements[len(movements)-1]
		assert.Equal(t, MovementExit, last.Kind())
		assert.True(t, last.HasMeta(MetaAdjustment))
		assert.Equal(t, "true", last.Meta(MetaAdjustment))
	})

	t.Run("entry adjustment", func(t *testing.T) {
		err := l.RegisterAdjustment(product, quantity(2), MovementEntry, "carol", "count surplus")
		require.NoError(t, err)
		assert.Equal(t, int64(47), l.BalanceOf(product).Physical().Int64())
	})
}

func TestReorderPointPredicate(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()

	assert.False(t, l.HasReachedReorderPoint(product), "no ROP defined means never reached")

	require.NoError(t, l.DefineReorderPoint(product, types.NewRate(10), 7, types.NewRate(20)))
	rop, ok := l.ReorderPointOf(product)
	require.True(t, ok)
	assert.Equal(t, int64(90), rop.Threshold().Int64())

	require.NoError(t, l.RegisterEntry(product, quantity(95), "alice", "", nil))
	assert.False(t, l.HasReachedReorderPoint(product))

	require.NoError(t, l.RegisterExit(product, quantity(10), "bob", ""))
	assert.True(t, l.HasReachedReorderPoint(product), "physical=85 <= 90")

	// What-if overload with an explicit balance.
	whatIf := mustBalance(t, 91, 0)
	assert.False(t, l.WouldReachReorderPoint(product, whatIf))
}

func TestChangeCapacity(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()
	require.NoError(t, l.RegisterEntry(product, quantity(100), "alice", "", nil))

	assert.True(t, apperror.IsCode(l.ChangeCapacity(quantity(0)), apperror.CodeValidation))

	err := l.ChangeCapacity(quantity(99))
	assert.True(t, apperror.IsCode(err, apperror.CodeCapacityBelowOccupancy))

	require.NoError(t, l.ChangeCapacity(quantity(100)), "capacity equal to occupancy is allowed")
	assert.Equal(t, int64(100), l.Capacity().Int64())
}

func TestDeactivateAndActivate(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()
	require.NoError(t, l.RegisterEntry(product, quantity(10), "alice", "", nil))

	err := l.Deactivate()
	assert.True(t, apperror.IsCode(err, apperror.CodeLedgerHasStock))
	assert.True(t, l.IsActive())

	require.NoError(t, l.RegisterExit(product, quantity(10), "alice", "clear out"))
	require.NoError(t, l.Deactivate())
	assert.False(t, l.IsActive())

	// Inactive ledgers accept no inbound stock, so they stay empty.
	err = l.RegisterEntry(product, quantity(1), "alice", "", nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeLedgerInactive))

	l.Activate()
	assert.True(t, l.IsActive())
	require.NoError(t, l.RegisterEntry(product, quantity(1), "alice", "", nil))
}

func TestOccupancySumsAllProducts(t *testing.T) {
	l := newTestLedger(t)
	p1, p2 := id.New(), id.New()
	require.NoError(t, l.RegisterEntry(p1, quantity(40), "alice", "", nil))
	require.NoError(t, l.RegisterEntry(p2, quantity(60), "alice", "", nil))

	assert.Equal(t, int64(100), l.Occupancy().Int64())
}

func TestSnapshotsAreCopies(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()
	require.NoError(t, l.RegisterEntry(product, quantity(10), "alice", "", nil))

	balances := l.AllBalances()
	balances[product] = ZeroBalance()
	assert.Equal(t, int64(10), l.BalanceOf(product).Physical().Int64())

	movements := l.MovementHistory()
	movements[0] = MovementRecord{}
	assert.Equal(t, int64(10), l.MovementHistory()[0].Quantity().Int64())
}

func TestRestoreRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	product := id.New()
	require.NoError(t, l.RegisterEntry(product, quantity(100), "alice", "load", nil))
	require.NoError(t, l.Reserve(product, quantity(25)))
	require.NoError(t, l.DefineReorderPoint(product, types.NewRate(5), 3, types.NewRate(10)))

	restored := Restore(
		l.ID(), l.OwnerID(), l.Name(), l.Address(), l.Capacity(), l.IsActive(),
		l.Version(), l.CreatedAt(), l.UpdatedAt(),
		l.AllBalances(), map[id.ID]ReorderPoint{product: mustROP(t, 5, 3, 10)},
		l.MovementHistory(), l.ReservationHistory(),
	)

	assert.Equal(t, l.BalanceOf(product), restored.BalanceOf(product))
	assert.Equal(t, len(l.MovementHistory()), len(restored.MovementHistory()))
	assert.Equal(t, len(l.ReservationHistory()), len(restored.ReservationHistory()))

	rop, ok := restored.ReorderPointOf(product)
	require.True(t, ok)
	assert.Equal(t, int64(25), rop.Threshold().Int64())
}

func mustROP(t *testing.T, avg float64, lead int, safety float64) ReorderPoint {
	t.Helper()
	rop, err := NewReorderPoint(types.NewRate(avg), lead, types.NewRate(safety))
	require.NoError(t, err)
	return rop
}
