package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	ledgers map[id.ID]*Ledger
	saves   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{ledgers: make(map[id.ID]*Ledger)}
}

func (r *fakeRepo) Save(_ context.Context, l *Ledger) error {
	r.ledgers[l.ID()] = l
	r.saves++
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, ledgerID id.ID) (*Ledger, error) {
	l, ok := r.ledgers[ledgerID]
	if !ok {
		return nil, apperror.NewNotFound("ledger", ledgerID.String())
	}
	return l, nil
}

func (r *fakeRepo) List(_ context.Context, filter Filter) ([]*Ledger, error) {
	var out []*Ledger
	for _, l := range r.ledgers {
		if filter.Active != nil && l.IsActive() != *filter.Active {
			continue
		}
		if filter.OwnerID != nil && l.OwnerID() != *filter.OwnerID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *fakeRepo) ExistsWithName(_ context.Context, name string, excludeID id.ID) (bool, error) {
	for _, l := range r.ledgers {
		if l.Name() == name && l.ID() != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) ExistsWithAddress(_ context.Context, address string, excludeID id.ID) (bool, error) {
	for _, l := range r.ledgers {
		if l.Address() == address && l.ID() != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// noopTxManager runs fn directly; transaction semantics are covered by the
// postgres implementation's own tests.
type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *Ledger) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewService(repo, noopTxManager{})

	l, err := svc.Create(context.Background(), CreateInput{
		OwnerID:  id.New(),
		Name:     "Main Depot",
		Address:  "5 Dockside Ave",
		Capacity: quantity(1000),
	})
	require.NoError(t, err)
	return svc, repo, l
}

func TestServiceCreateRejectsDuplicates(t *testing.T) {
	svc, _, l := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		OwnerID:  id.New(),
		Name:     l.Name(),
		Address:  "somewhere else",
		Capacity: quantity(10),
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	_, err = svc.Create(ctx, CreateInput{
		OwnerID:  id.New(),
		Name:     "Other Depot",
		Address:  l.Address(),
		Capacity: quantity(10),
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
}

func TestServiceUpdateInfoKeepsOwnNameFree(t *testing.T) {
	svc, _, l := newTestService(t)
	ctx := context.Background()

	// Renaming to its current name is not a collision with itself.
	require.NoError(t, svc.UpdateInfo(ctx, l.ID(), l.Name(), "6 Dockside Ave"))

	got, err := svc.GetByID(ctx, l.ID())
	require.NoError(t, err)
	assert.Equal(t, "6 Dockside Ave", got.Address())
}

func TestServiceMovementRoundTrip(t *testing.T) {
	svc, repo, l := newTestService(t)
	ctx := context.Background()
	product := id.New()

	require.NoError(t, svc.RegisterEntry(ctx, MovementInput{
		LedgerID:    l.ID(),
		ProductID:   product,
		Quantity:    quantity(100),
		Responsible: "alice",
		Reason:      "initial load",
	}))
	require.NoError(t, svc.Reserve(ctx, l.ID(), product, quantity(30)))
	require.NoError(t, svc.ConsumeReservation(ctx, MovementInput{
		LedgerID:    l.ID(),
		ProductID:   product,
		Quantity:    quantity(30),
		Responsible: "bob",
		Reason:      "order shipped",
	}))

	got := repo.ledgers[l.ID()]
	b := got.BalanceOf(product)
	assert.Equal(t, int64(70), b.Physical().Int64())
	assert.Equal(t, int64(0), b.Reserved().Int64())
}

func TestServiceRejectsUnknownLedger(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.RegisterExit(ctx, MovementInput{
		LedgerID:    id.New(),
		ProductID:   id.New(),
		Quantity:    quantity(1),
		Responsible: "alice",
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	err = svc.Reserve(ctx, id.Nil(), id.New(), quantity(1))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestServiceFailedMutationIsNotSaved(t *testing.T) {
	svc, repo, l := newTestService(t)
	ctx := context.Background()
	product := id.New()

	require.NoError(t, svc.RegisterEntry(ctx, MovementInput{
		LedgerID:    l.ID(),
		ProductID:   product,
		Quantity:    quantity(10),
		Responsible: "alice",
	}))
	savesBefore := repo.saves

	err := svc.RegisterExit(ctx, MovementInput{
		LedgerID:    l.ID(),
		ProductID:   product,
		Quantity:    quantity(11),
		Responsible: "bob",
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientAvailable))
	assert.Equal(t, savesBefore, repo.saves)
}

func TestServiceDeactivateWithInFlightOrders(t *testing.T) {
	svc, _, l := newTestService(t)
	ctx := context.Background()

	err := svc.Deactivate(ctx, l.ID(), 3)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))

	require.NoError(t, svc.Deactivate(ctx, l.ID(), 0))

	got, err := svc.GetByID(ctx, l.ID())
	require.NoError(t, err)
	assert.False(t, got.IsActive())

	require.NoError(t, svc.Activate(ctx, l.ID()))
}

func TestServiceDefineReorderPointFromHistory(t *testing.T) {
	svc, _, l := newTestService(t)
	ctx := context.Background()
	product := id.New()

	t.Run("derived from consumption", func(t *testing.T) {
		// 900 units over the 90-day window -> 10/day; 10*7+20 = 90.
		err := svc.DefineReorderPointFromHistory(ctx, l.ID(), product, quantity(900), 7, types.NewRate(20))
		require.NoError(t, err)

		got, err := svc.GetByID(ctx, l.ID())
		require.NoError(t, err)
		rop, ok := got.ReorderPointOf(product)
		require.True(t, ok)
		assert.Equal(t, int64(90), rop.Threshold().Int64())
	})

	t.Run("no data falls back to default", func(t *testing.T) {
		other := id.New()
		err := svc.DefineReorderPointFromHistory(ctx, l.ID(), other, quantity(0), 7, types.ZeroRate())
		require.NoError(t, err)

		got, err := svc.GetByID(ctx, l.ID())
		require.NoError(t, err)
		rop, ok := got.ReorderPointOf(other)
		require.True(t, ok)
		assert.Equal(t, int64(1), rop.Threshold().Int64())
	})
}

type fakeAlertPublisher struct {
	alerts []ReorderAlert
}

func (p *fakeAlertPublisher) PublishReorderAlert(_ context.Context, alert ReorderAlert) error {
	p.alerts = append(p.alerts, alert)
	return nil
}

func TestServiceAlertsOnThresholdCrossing(t *testing.T) {
	repo := newFakeRepo()
	alerts := &fakeAlertPublisher{}
	svc := NewService(repo, noopTxManager{}, WithAlertPublisher(alerts))
	ctx := context.Background()

	l, err := svc.Create(ctx, CreateInput{
		OwnerID:  id.New(),
		Name:     "Alerting Depot",
		Address:  "1 Alert St",
		Capacity: quantity(1000),
	})
	require.NoError(t, err)
	product := id.New()

	require.NoError(t, svc.DefineReorderPoint(ctx, l.ID(), product, types.NewRate(10), 7, types.NewRate(20)))
	require.NoError(t, svc.RegisterEntry(ctx, MovementInput{
		LedgerID: l.ID(), ProductID: product, Quantity: quantity(100), Responsible: "alice",
	}))

	exit := func(qty int64) {
		t.Helper()
		require.NoError(t, svc.RegisterExit(ctx, MovementInput{
			LedgerID: l.ID(), ProductID: product, Quantity: quantity(qty), Responsible: "bob",
		}))
	}

	exit(5) // 95, above threshold 90
	assert.Empty(t, alerts.alerts)

	exit(10) // 85, crosses the threshold
	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, l.ID(), alerts.alerts[0].LedgerID)
	assert.Equal(t, product, alerts.alerts[0].ProductID)
	assert.Equal(t, int64(85), alerts.alerts[0].Physical.Int64())
	assert.Equal(t, int64(90), alerts.alerts[0].Threshold.Int64())

	exit(5) // 80, still below: no second alert
	assert.Len(t, alerts.alerts, 1)
}

func TestServiceHasReachedReorderPoint(t *testing.T) {
	svc, _, l := newTestService(t)
	ctx := context.Background()
	product := id.New()

	require.NoError(t, svc.DefineReorderPoint(ctx, l.ID(), product, types.NewRate(10), 7, types.NewRate(20)))
	require.NoError(t, svc.RegisterEntry(ctx, MovementInput{
		LedgerID:    l.ID(),
		ProductID:   product,
		Quantity:    quantity(85),
		Responsible: "alice",
	}))

	reached, err := svc.HasReachedReorderPoint(ctx, l.ID(), product)
	require.NoError(t, err)
	assert.True(t, reached)
}
