package transfer

import (
	"context"
	"strings"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/tx"
	"gestock/internal/core/types"
	"gestock/internal/domain/ledger"
	"gestock/pkg/logger"
)

// Service moves stock between two ledgers: an exit on the source followed
// by an entry on the destination. The coordinator holds no state of its own;
// it borrows both aggregates for the duration of one call.
//
// If the source exit fails the destination is never touched. Durable
// atomicity across both aggregates comes from running both saves and the
// transfer record insert in a single database transaction.
type Service struct {
	ledgers   ledger.Repository
	transfers Repository
	txManager tx.Manager
}

// NewService creates a new transfer service.
func NewService(ledgers ledger.Repository, transfers Repository, txManager tx.Manager) *Service {
	return &Service{
		ledgers:   ledgers,
		transfers: transfers,
		txManager: txManager,
	}
}

// Transfer applies the exit+entry pair to already loaded aggregates and
// persists both along with a transfer record. Source and destination must
// be distinct ledgers.
func (s *Service) Transfer(
	ctx context.Context,
	source, destination *ledger.Ledger,
	productID id.ID,
	qty types.Quantity,
	responsible, reason string,
) (*Record, error) {
	if source == nil || destination == nil {
		return nil, apperror.NewValidation("source and destination ledgers are required")
	}
	if source.ID() == destination.ID() {
		return nil, apperror.NewValidation("source and destination must differ")
	}
	if id.IsNil(productID) {
		return nil, apperror.NewValidation("product is required")
	}
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive")
	}
	if strings.TrimSpace(responsible) == "" {
		return nil, apperror.NewValidation("responsible is required")
	}

	// Exit first: when the source cannot cover the quantity the whole
	// operation fails before the destination sees any effect.
	if err := source.RegisterExit(productID, qty, responsible, reason); err != nil {
		return nil, err
	}

	if err := destination.RegisterEntry(productID, qty, responsible, "stock transfer", map[string]string{
		ledger.MetaTransfer:     "true",
		ledger.MetaSourceLedger: source.ID().String(),
	}); err != nil {
		return nil, err
	}

	rec := newRecord(productID, source.ID(), destination.ID(), qty, responsible, reason)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.ledgers.Save(ctx, source); err != nil {
			return err
		}
		if err := s.ledgers.Save(ctx, destination); err != nil {
			return err
		}
		return s.transfers.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock transferred",
		"product_id", productID,
		"source_id", source.ID(),
		"destination_id", destination.ID(),
		"quantity", qty,
	)
	return rec, nil
}

// TransferByID loads both aggregates, applies the transfer and persists
// everything in one transaction.
func (s *Service) TransferByID(
	ctx context.Context,
	sourceID, destinationID, productID id.ID,
	qty types.Quantity,
	responsible, reason string,
) (*Record, error) {
	if sourceID == destinationID {
		return nil, apperror.NewValidation("source and destination must differ")
	}

	var rec *Record
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		source, err := s.ledgers.FindByID(ctx, sourceID)
		if err != nil {
			return err
		}
		destination, err := s.ledgers.FindByID(ctx, destinationID)
		if err != nil {
			return err
		}
		rec, err = s.Transfer(ctx, source, destination, productID, qty, responsible, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// History retrieves transfer records.
func (s *Service) History(ctx context.Context, filter ListFilter) ([]Record, error) {
	return s.transfers.List(ctx, filter)
}
