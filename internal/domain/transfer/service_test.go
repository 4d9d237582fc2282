package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/internal/domain/ledger"
)

type fakeLedgerRepo struct {
	ledgers map[id.ID]*ledger.Ledger
	saves   int
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{ledgers: make(map[id.ID]*ledger.Ledger)}
}

func (r *fakeLedgerRepo) Save(_ context.Context, l *ledger.Ledger) error {
	r.ledgers[l.ID()] = l
	r.saves++
	return nil
}

func (r *fakeLedgerRepo) FindByID(_ context.Context, ledgerID id.ID) (*ledger.Ledger, error) {
	l, ok := r.ledgers[ledgerID]
	if !ok {
		return nil, apperror.NewNotFound("ledger", ledgerID.String())
	}
	return l, nil
}

func (r *fakeLedgerRepo) List(_ context.Context, _ ledger.Filter) ([]*ledger.Ledger, error) {
	return nil, nil
}

func (r *fakeLedgerRepo) ExistsWithName(_ context.Context, _ string, _ id.ID) (bool, error) {
	return false, nil
}

func (r *fakeLedgerRepo) ExistsWithAddress(_ context.Context, _ string, _ id.ID) (bool, error) {
	return false, nil
}

type fakeTransferRepo struct {
	records []Record
}

func (r *fakeTransferRepo) Create(_ context.Context, rec *Record) error {
	r.records = append(r.records, *rec)
	return nil
}

func (r *fakeTransferRepo) List(_ context.Context, _ ListFilter) ([]Record, error) {
	return r.records, nil
}

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func quantity(v int64) types.Quantity {
	return types.Quantity(v)
}

func newTestLedger(t *testing.T, name string) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New(id.New(), name, name+" address", quantity(1000))
	require.NoError(t, err)
	return l
}

func setup(t *testing.T) (*Service, *fakeLedgerRepo, *fakeTransferRepo, *ledger.Ledger, *ledger.Ledger, id.ID) {
	t.Helper()
	ledgers := newFakeLedgerRepo()
	transfers := &fakeTransferRepo{}
	svc := NewService(ledgers, transfers, noopTxManager{})

	source := newTestLedger(t, "Source Depot")
	destination := newTestLedger(t, "Destination Depot")
	product := id.New()
	require.NoError(t, source.RegisterEntry(product, quantity(100), "alice", "initial load", nil))

	require.NoError(t, ledgers.Save(context.Background(), source))
	require.NoError(t, ledgers.Save(context.Background(), destination))
	ledgers.saves = 0

	return svc, ledgers, transfers, source, destination, product
}

func TestTransferConservesTotalStock(t *testing.T) {
	svc, _, transfers, source, destination, product := setup(t)
	ctx := context.Background()

	rec, err := svc.Transfer(ctx, source, destination, product, quantity(40), "bob", "rebalance")
	require.NoError(t, err)

	assert.Equal(t, int64(60), source.BalanceOf(product).Physical().Int64())
	assert.Equal(t, int64(40), destination.BalanceOf(product).Physical().Int64())

	total := source.BalanceOf(product).Physical().Int64() + destination.BalanceOf(product).Physical().Int64()
	assert.Equal(t, int64(100), total, "transfer must conserve total physical stock")

	require.Len(t, transfers.records, 1)
	assert.Equal(t, rec.ID, transfers.records[0].ID)
	assert.Equal(t, source.ID(), transfers.records[0].SourceID)
	assert.Equal(t, destination.ID(), transfers.records[0].DestinationID)
	assert.Equal(t, quantity(40), transfers.records[0].Quantity)
}

func TestTransferTagsDestinationMovement(t *testing.T) {
	svc, _, _, source, destination, product := setup(t)

	_, err := svc.Transfer(context.Background(), source, destination, product, quantity(10), "bob", "rebalance")
	require.NoError(t, err)

	movements := destination.MovementHistory()
	require.Len(t, movements, 1)
	assert.Equal(t, ledger.MovementEntry, movements[0].Kind())
	assert.True(t, movements[0].HasMeta(ledger.MetaTransfer))
	assert.Equal(t, "true", movements[0].Meta(ledger.MetaTransfer))
	assert.True(t, movements[0].HasMeta(ledger.MetaSourceLedger))
	assert.Equal(t, source.ID().String(), movements[0].Meta(ledger.MetaSourceLedger))
}

func TestTransferFailureLeavesDestinationUntouched(t *testing.T) {
	svc, ledgers, transfers, source, destination, product := setup(t)

	_, err := svc.Transfer(context.Background(), source, destination, product, quantity(101), "bob", "too much")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientAvailable))

	assert.Equal(t, int64(100), source.BalanceOf(product).Physical().Int64())
	assert.True(t, destination.BalanceOf(product).IsEmpty())
	assert.Empty(t, destination.MovementHistory())
	assert.Empty(t, transfers.records)
	assert.Zero(t, ledgers.saves, "nothing persisted on a failed transfer")
}

func TestTransferToInactiveLedgerFails(t *testing.T) {
	svc, _, transfers, source, destination, product := setup(t)
	require.NoError(t, destination.Deactivate())

	_, err := svc.Transfer(context.Background(), source, destination, product, quantity(10), "bob", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeLedgerInactive))
	assert.Empty(t, transfers.records)
}

func TestTransferValidation(t *testing.T) {
	svc, _, _, source, destination, product := setup(t)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, source, source, product, quantity(10), "bob", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Transfer(ctx, nil, destination, product, quantity(10), "bob", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Transfer(ctx, source, destination, id.Nil(), quantity(10), "bob", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Transfer(ctx, source, destination, product, quantity(0), "bob", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Transfer(ctx, source, destination, product, quantity(10), "  ", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestTransferByID(t *testing.T) {
	svc, ledgers, transfers, source, destination, product := setup(t)
	ctx := context.Background()

	rec, err := svc.TransferByID(ctx, source.ID(), destination.ID(), product, quantity(25), "bob", "rebalance")
	require.NoError(t, err)
	require.NotNil(t, rec)

	got := ledgers.ledgers[destination.ID()]
	assert.Equal(t, int64(25), got.BalanceOf(product).Physical().Int64())
	require.Len(t, transfers.records, 1)

	_, err = svc.TransferByID(ctx, source.ID(), source.ID(), product, quantity(1), "bob", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.TransferByID(ctx, id.New(), destination.ID(), product, quantity(1), "bob", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestHistory(t *testing.T) {
	svc, _, _, source, destination, product := setup(t)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, source, destination, product, quantity(5), "bob", "")
	require.NoError(t, err)

	records, err := svc.History(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
