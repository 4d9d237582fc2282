// Package transfer_repo provides the PostgreSQL implementation of the
// transfer record repository.
package transfer_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gestock/internal/domain/transfer"
	"gestock/internal/infrastructure/storage/postgres"
)

const transfersTable = "transfers"

// transferColumns is derived from the db tags on transfer.Record once at
// init time.
var transferColumns = postgres.ExtractDBColumns[transfer.Record]()

// TransferRepo implements transfer.Repository. Transfer records are
// append-only; there is no update or delete path.
type TransferRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewTransferRepo creates a new transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Ensure interface compliance.
var _ transfer.Repository = (*TransferRepo)(nil)

// Create appends one transfer record.
func (r *TransferRepo) Create(ctx context.Context, rec *transfer.Record) error {
	q := r.builder.Insert(transfersTable).
		SetMap(postgres.StructToMap(rec))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// List retrieves transfer records matching the filter, newest first.
func (r *TransferRepo) List(ctx context.Context, filter transfer.ListFilter) ([]transfer.Record, error) {
	q := r.builder.Select(transferColumns...).
		From(transfersTable).
		OrderBy("occurred_at DESC")

	if filter.LedgerID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"source_id": *filter.LedgerID},
			squirrel.Eq{"destination_id": *filter.LedgerID},
		})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"occurred_at": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []transfer.Record
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return nil, fmt.Errorf("select transfers: %w", err)
	}
	return records, nil
}
