// Package ledger_repo provides the PostgreSQL implementation of the stock
// ledger repository.
package ledger_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/internal/domain/ledger"
	"gestock/internal/infrastructure/storage/postgres"
)

const (
	ledgersTable       = "ledgers"
	balancesTable      = "ledger_balances"
	reorderPointsTable = "ledger_reorder_points"
	movementsTable     = "ledger_movements"
	reservationsTable  = "ledger_reservations"
)

// LedgerRepo implements ledger.Repository.
//
// The aggregate is stored across five tables: the ledger row itself, one row
// per product balance and reorder point, and append-only movement and
// reservation audit rows. Save must run inside a transaction so the whole
// aggregate lands atomically; the service layer guarantees that.
type LedgerRepo struct {
	txManager *postgres.TxManager
	audit     *postgres.AuditService
	builder   squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository. audit may be nil to disable
// audit snapshots.
func NewLedgerRepo(txManager *postgres.TxManager, audit *postgres.AuditService) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		audit:     audit,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)

// --- row types ---

type ledgerRow struct {
	ID        id.ID     `db:"id"`
	OwnerID   id.ID     `db:"owner_id"`
	Name      string    `db:"name"`
	Address   string    `db:"address"`
	Capacity  int64     `db:"capacity"`
	Active    bool      `db:"active"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type balanceRow struct {
	LedgerID  id.ID `db:"ledger_id"`
	ProductID id.ID `db:"product_id"`
	Physical  int64 `db:"physical"`
	Reserved  int64 `db:"reserved"`
}

type reorderPointRow struct {
	LedgerID            id.ID           `db:"ledger_id"`
	ProductID           id.ID           `db:"product_id"`
	AvgDailyConsumption decimal.Decimal `db:"avg_daily_consumption"`
	LeadTimeDays        int             `db:"lead_time_days"`
	SafetyStock         decimal.Decimal `db:"safety_stock"`
}

type movementRow struct {
	LineID      id.ID     `db:"line_id"`
	LedgerID    id.ID     `db:"ledger_id"`
	Kind        string    `db:"kind"`
	ProductID   id.ID     `db:"product_id"`
	Quantity    int64     `db:"quantity"`
	OccurredAt  time.Time `db:"occurred_at"`
	Responsible string    `db:"responsible"`
	Reason      string    `db:"reason"`
	Metadata    []byte    `db:"metadata"`
}

type reservationRow struct {
	LineID     id.ID     `db:"line_id"`
	LedgerID   id.ID     `db:"ledger_id"`
	Kind       string    `db:"kind"`
	ProductID  id.ID     `db:"product_id"`
	Quantity   int64     `db:"quantity"`
	OccurredAt time.Time `db:"occurred_at"`
}

// --- Repository implementation ---

// Save persists the full aggregate state. The ledger row uses optimistic
// locking on version; balances and reorder points are replaced whole, audit
// rows are append-only and only the new tail is written.
func (r *LedgerRepo) Save(ctx context.Context, l *ledger.Ledger) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		isNew, err := r.saveLedgerRow(ctx, l)
		if err != nil {
			return err
		}
		if err := r.saveBalances(ctx, l); err != nil {
			return err
		}
		if err := r.saveReorderPoints(ctx, l); err != nil {
			return err
		}
		if err := r.appendMovements(ctx, l); err != nil {
			return err
		}
		if err := r.appendReservations(ctx, l); err != nil {
			return err
		}

		if r.audit != nil {
			action := postgres.AuditActionUpdate
			if isNew {
				action = postgres.AuditActionCreate
			}
			if err := r.audit.LogSnapshot(ctx, "ledger", l.ID(), action, snapshotOf(l)); err != nil {
				return fmt.Errorf("audit ledger save: %w", err)
			}
		}
		return nil
	})
}

// saveLedgerRow inserts or version-checked-updates the ledger row.
// Returns true when the row was newly inserted.
func (r *LedgerRepo) saveLedgerRow(ctx context.Context, l *ledger.Ledger) (bool, error) {
	querier := r.txManager.GetQuerier(ctx)

	update := r.builder.Update(ledgersTable).
		Set("owner_id", l.OwnerID()).
		Set("name", l.Name()).
		Set("address", l.Address()).
		Set("capacity", l.Capacity().Int64()).
		Set("active", l.IsActive()).
		Set("version", l.Version()+1).
		Set("updated_at", l.UpdatedAt()).
		Where(squirrel.Eq{"id": l.ID(), "version": l.Version()})

	sql, args, err := update.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update ledger: %w", err)
	}
	if tag.RowsAffected() > 0 {
		l.SetVersion(l.Version() + 1)
		return false, nil
	}

	// No row matched: either the ledger is new, or someone else bumped the
	// version since we loaded it.
	var exists bool
	err = querier.QueryRow(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", ledgersTable), l.ID(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check ledger exists: %w", err)
	}
	if exists {
		return false, apperror.NewConcurrentModification("ledger", l.ID().String())
	}

	insert := r.builder.Insert(ledgersTable).
		Columns("id", "owner_id", "name", "address", "capacity", "active", "version", "created_at", "updated_at").
		Values(l.ID(), l.OwnerID(), l.Name(), l.Address(), l.Capacity().Int64(),
			l.IsActive(), l.Version(), l.CreatedAt(), l.UpdatedAt())

	sql, args, err = insert.ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return false, fmt.Errorf("insert ledger: %w", err)
	}
	return true, nil
}

// saveBalances replaces the balance rows for the ledger. Per-ledger product
// sets are small, so delete-and-reinsert in one batch round-trip beats
// diffing.
func (r *LedgerRepo) saveBalances(ctx context.Context, l *ledger.Ledger) error {
	queries := []postgres.BatchQuery{{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE ledger_id = $1", balancesTable),
		Args: []any{l.ID()},
	}}

	for productID, b := range l.AllBalances() {
		if b.IsEmpty() {
			continue
		}
		queries = append(queries, postgres.BatchQuery{
			SQL: fmt.Sprintf(
				"INSERT INTO %s (ledger_id, product_id, physical, reserved) VALUES ($1, $2, $3, $4)",
				balancesTable),
			Args: []any{l.ID(), productID, b.Physical().Int64(), b.Reserved().Int64()},
		})
	}

	executor := postgres.NewBatchExecutor(r.txManager)
	if err := executor.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("save balances: %w", err)
	}
	return nil
}

func (r *LedgerRepo) saveReorderPoints(ctx context.Context, l *ledger.Ledger) error {
	queries := []postgres.BatchQuery{{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE ledger_id = $1", reorderPointsTable),
		Args: []any{l.ID()},
	}}

	for productID, rop := range l.AllReorderPoints() {
		queries = append(queries, postgres.BatchQuery{
			SQL: fmt.Sprintf(
				"INSERT INTO %s (ledger_id, product_id, avg_daily_consumption, lead_time_days, safety_stock) VALUES ($1, $2, $3, $4, $5)",
				reorderPointsTable),
			Args: []any{l.ID(), productID, rop.AvgDailyConsumption(), rop.LeadTimeDays(), rop.SafetyStock()},
		})
	}

	executor := postgres.NewBatchExecutor(r.txManager)
	if err := executor.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("save reorder points: %w", err)
	}
	return nil
}

// appendMovements writes only the movement tail not yet persisted. The trail
// is append-only and ordered, so everything past the stored count is new.
// COPY keeps bulk loads (imports, busy ledgers) cheap.
func (r *LedgerRepo) appendMovements(ctx context.Context, l *ledger.Ledger) error {
	movements := l.MovementHistory()

	var stored int64
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE ledger_id = $1", movementsTable), l.ID(),
	).Scan(&stored)
	if err != nil {
		return fmt.Errorf("count movements: %w", err)
	}
	if int(stored) >= len(movements) {
		return nil
	}

	columns := []string{
		"line_id", "ledger_id", "kind", "product_id", "quantity",
		"occurred_at", "responsible", "reason", "metadata",
	}
	rows := make([][]any, 0, len(movements)-int(stored))
	for _, m := range movements[stored:] {
		meta, err := marshalMeta(m.Metadata())
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			m.LineID(), l.ID(), string(m.Kind()), m.ProductID(), m.Quantity().Int64(),
			m.OccurredAt(), m.Responsible(), m.Reason(), meta,
		})
	}

	inserter := postgres.NewBatchInserter(r.txManager)
	if _, err := inserter.CopyFromSlice(ctx, movementsTable, columns, rows); err != nil {
		return fmt.Errorf("copy movements: %w", err)
	}
	return nil
}

func (r *LedgerRepo) appendReservations(ctx context.Context, l *ledger.Ledger) error {
	reservations := l.ReservationHistory()

	var stored int64
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE ledger_id = $1", reservationsTable), l.ID(),
	).Scan(&stored)
	if err != nil {
		return fmt.Errorf("count reservations: %w", err)
	}
	if int(stored) >= len(reservations) {
		return nil
	}

	columns := []string{"line_id", "ledger_id", "kind", "product_id", "quantity", "occurred_at"}
	rows := make([][]any, 0, len(reservations)-int(stored))
	for _, res := range reservations[stored:] {
		rows = append(rows, []any{
			res.LineID(), l.ID(), string(res.Kind()), res.ProductID(),
			res.Quantity().Int64(), res.OccurredAt(),
		})
	}

	inserter := postgres.NewBatchInserter(r.txManager)
	if _, err := inserter.CopyFromSlice(ctx, reservationsTable, columns, rows); err != nil {
		return fmt.Errorf("copy reservations: %w", err)
	}
	return nil
}

// FindByID loads the full aggregate.
func (r *LedgerRepo) FindByID(ctx context.Context, ledgerID id.ID) (*ledger.Ledger, error) {
	querier := r.txManager.GetQuerier(ctx)

	q := r.builder.Select(ledgerColumns()...).
		From(ledgersTable).
		Where(squirrel.Eq{"id": ledgerID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row ledgerRow
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ledger", ledgerID.String())
		}
		return nil, fmt.Errorf("get ledger: %w", err)
	}

	return r.restore(ctx, row)
}

// List loads ledgers matching the filter, fully hydrated, name order.
func (r *LedgerRepo) List(ctx context.Context, filter ledger.Filter) ([]*ledger.Ledger, error) {
	q := r.builder.Select(ledgerColumns()...).
		From(ledgersTable).
		OrderBy("name")

	if filter.OwnerID != nil {
		q = q.Where(squirrel.Eq{"owner_id": *filter.OwnerID})
	}
	if filter.Active != nil {
		q = q.Where(squirrel.Eq{"active": *filter.Active})
	}
	if filter.Name != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Name + "%"})
	}
	if filter.Address != "" {
		q = q.Where(squirrel.ILike{"address": "%" + filter.Address + "%"})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []ledgerRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select ledgers: %w", err)
	}

	ledgers := make([]*ledger.Ledger, 0, len(rows))
	for _, row := range rows {
		l, err := r.restore(ctx, row)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, nil
}

// ExistsWithName reports whether another ledger already uses the name.
func (r *LedgerRepo) ExistsWithName(ctx context.Context, name string, excludeID id.ID) (bool, error) {
	return r.existsWith(ctx, "name", name, excludeID)
}

// ExistsWithAddress reports whether another ledger already uses the address.
func (r *LedgerRepo) ExistsWithAddress(ctx context.Context, address string, excludeID id.ID) (bool, error) {
	return r.existsWith(ctx, "address", address, excludeID)
}

func (r *LedgerRepo) existsWith(ctx context.Context, column, value string, excludeID id.ID) (bool, error) {
	q := r.builder.Select("1").
		From(ledgersTable).
		Where(squirrel.Eq{column: value})

	if !id.IsNil(excludeID) {
		q = q.Where(squirrel.NotEq{"id": excludeID})
	}

	sql, args, err := q.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s: %w", column, err)
	}
	return exists, nil
}

// --- hydration ---

func (r *LedgerRepo) restore(ctx context.Context, row ledgerRow) (*ledger.Ledger, error) {
	balances, err := r.loadBalances(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	reorderPoints, err := r.loadReorderPoints(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	movements, err := r.loadMovements(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	reservations, err := r.loadReservations(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	return ledger.Restore(
		row.ID, row.OwnerID, row.Name, row.Address,
		types.Quantity(row.Capacity), row.Active, row.Version,
		row.CreatedAt, row.UpdatedAt,
		balances, reorderPoints, movements, reservations,
	), nil
}

func (r *LedgerRepo) loadBalances(ctx context.Context, ledgerID id.ID) (map[id.ID]ledger.Balance, error) {
	sql, args, err := r.builder.
		Select("ledger_id", "product_id", "physical", "reserved").
		From(balancesTable).
		Where(squirrel.Eq{"ledger_id": ledgerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []balanceRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}

	balances := make(map[id.ID]ledger.Balance, len(rows))
	for _, row := range rows {
		b, err := ledger.NewBalance(types.Quantity(row.Physical), types.Quantity(row.Reserved))
		if err != nil {
			return nil, fmt.Errorf("corrupt balance for product %s: %w", row.ProductID, err)
		}
		balances[row.ProductID] = b
	}
	return balances, nil
}

func (r *LedgerRepo) loadReorderPoints(ctx context.Context, ledgerID id.ID) (map[id.ID]ledger.ReorderPoint, error) {
	sql, args, err := r.builder.
		Select("ledger_id", "product_id", "avg_daily_consumption", "lead_time_days", "safety_stock").
		From(reorderPointsTable).
		Where(squirrel.Eq{"ledger_id": ledgerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reorderPointRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select reorder points: %w", err)
	}

	reorderPoints := make(map[id.ID]ledger.ReorderPoint, len(rows))
	for _, row := range rows {
		rop, err := ledger.NewReorderPoint(row.AvgDailyConsumption, row.LeadTimeDays, row.SafetyStock)
		if err != nil {
			return nil, fmt.Errorf("corrupt reorder point for product %s: %w", row.ProductID, err)
		}
		reorderPoints[row.ProductID] = rop
	}
	return reorderPoints, nil
}

func (r *LedgerRepo) loadMovements(ctx context.Context, ledgerID id.ID) ([]ledger.MovementRecord, error) {
	sql, args, err := r.builder.
		Select("line_id", "ledger_id", "kind", "product_id", "quantity",
			"occurred_at", "responsible", "reason", "metadata").
		From(movementsTable).
		Where(squirrel.Eq{"ledger_id": ledgerID}).
		OrderBy("occurred_at", "line_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []movementRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	movements := make([]ledger.MovementRecord, 0, len(rows))
	for _, row := range rows {
		meta, err := unmarshalMeta(row.Metadata)
		if err != nil {
			return nil, fmt.Errorf("corrupt metadata on movement %s: %w", row.LineID, err)
		}
		movements = append(movements, ledger.RestoreMovementRecord(
			row.LineID, ledger.MovementKind(row.Kind), row.ProductID,
			types.Quantity(row.Quantity), row.OccurredAt,
			row.Responsible, row.Reason, meta,
		))
	}
	return movements, nil
}

func (r *LedgerRepo) loadReservations(ctx context.Context, ledgerID id.ID) ([]ledger.ReservationRecord, error) {
	sql, args, err := r.builder.
		Select("line_id", "ledger_id", "kind", "product_id", "quantity", "occurred_at").
		From(reservationsTable).
		Where(squirrel.Eq{"ledger_id": ledgerID}).
		OrderBy("occurred_at", "line_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reservationRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select reservations: %w", err)
	}

	reservations := make([]ledger.ReservationRecord, 0, len(rows))
	for _, row := range rows {
		reservations = append(reservations, ledger.RestoreReservationRecord(
			row.LineID, ledger.ReservationKind(row.Kind), row.ProductID,
			types.Quantity(row.Quantity), row.OccurredAt,
		))
	}
	return reservations, nil
}

// --- helpers ---

func ledgerColumns() []string {
	return []string{"id", "owner_id", "name", "address", "capacity", "active", "version", "created_at", "updated_at"}
}

func marshalMeta(meta map[string]string) ([]byte, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

func unmarshalMeta(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var meta map[string]string
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// ledgerSnapshot is the audit snapshot shape: identity plus balances, without
// the full audit trails (those live in their own tables already).
type ledgerSnapshot struct {
	ID       id.ID            `json:"id"`
	OwnerID  id.ID            `json:"ownerId"`
	Name     string           `json:"name"`
	Address  string           `json:"address"`
	Capacity int64            `json:"capacity"`
	Active   bool             `json:"active"`
	Version  int              `json:"version"`
	Balances map[string]int64 `json:"balances"`
}

func snapshotOf(l *ledger.Ledger) ledgerSnapshot {
	balances := make(map[string]int64)
	for productID, b := range l.AllBalances() {
		balances[productID.String()] = b.Physical().Int64()
	}
	return ledgerSnapshot{
		ID:       l.ID(),
		OwnerID:  l.OwnerID(),
		Name:     l.Name(),
		Address:  l.Address(),
		Capacity: l.Capacity().Int64(),
		Active:   l.IsActive(),
		Version:  l.Version(),
		Balances: balances,
	}
}
