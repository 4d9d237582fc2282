package ledger

import (
	"context"
	"fmt"
	"strings"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/tx"
	"gestock/internal/core/types"
	"gestock/pkg/logger"
)

// Service provides application-level operations on stock ledgers: it loads
// the aggregate, applies one domain operation and saves the result, all
// inside a transaction. Cross-ledger orchestration lives in the transfer
// package.
type Service struct {
	repo      Repository
	txManager tx.Manager
	alerts    AlertPublisher
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithAlertPublisher enables reorder alerts on threshold crossings.
func WithAlertPublisher(alerts AlertPublisher) Option {
	return func(s *Service) {
		s.alerts = alerts
	}
}

// NewService creates a new ledger service.
func NewService(repo Repository, txManager tx.Manager, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		txManager: txManager,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries the fields needed to open a new ledger.
type CreateInput struct {
	OwnerID  id.ID
	Name     string
	Address  string
	Capacity types.Quantity
}

// Create opens a new ledger. Name and address must be unique across all
// ledgers.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Ledger, error) {
	l, err := New(input.OwnerID, input.Name, input.Address, input.Capacity)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		taken, err := s.repo.ExistsWithName(ctx, input.Name, id.Nil())
		if err != nil {
			return fmt.Errorf("check name: %w", err)
		}
		if taken {
			return apperror.NewDuplicate("ledger", "name", input.Name)
		}

		taken, err = s.repo.ExistsWithAddress(ctx, input.Address, id.Nil())
		if err != nil {
			return fmt.Errorf("check address: %w", err)
		}
		if taken {
			return apperror.NewDuplicate("ledger", "address", input.Address)
		}

		return s.repo.Save(ctx, l)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "ledger created",
		"ledger_id", l.ID(),
		"owner_id", l.OwnerID(),
		"name", l.Name(),
		"capacity", l.Capacity(),
	)
	return l, nil
}

// GetByID loads a single ledger.
func (s *Service) GetByID(ctx context.Context, ledgerID id.ID) (*Ledger, error) {
	return s.repo.FindByID(ctx, ledgerID)
}

// List loads ledgers matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Ledger, error) {
	return s.repo.List(ctx, filter)
}

// UpdateInfo renames a ledger and updates its address, keeping both unique.
func (s *Service) UpdateInfo(ctx context.Context, ledgerID id.ID, name, address string) error {
	return s.mutate(ctx, ledgerID, "ledger info updated", func(ctx context.Context, l *Ledger) error {
		taken, err := s.repo.ExistsWithName(ctx, name, ledgerID)
		if err != nil {
			return fmt.Errorf("check name: %w", err)
		}
		if taken {
			return apperror.NewDuplicate("ledger", "name", name)
		}

		taken, err = s.repo.ExistsWithAddress(ctx, address, ledgerID)
		if err != nil {
			return fmt.Errorf("check address: %w", err)
		}
		if taken {
			return apperror.NewDuplicate("ledger", "address", address)
		}

		return l.UpdateInfo(name, address)
	})
}

// ChangeCapacity replaces the ledger capacity.
func (s *Service) ChangeCapacity(ctx context.Context, ledgerID id.ID, newCapacity types.Quantity) error {
	return s.mutate(ctx, ledgerID, "ledger capacity changed", func(_ context.Context, l *Ledger) error {
		return l.ChangeCapacity(newCapacity)
	})
}

// Deactivate marks a ledger inactive. The count of in-flight orders against
// this ledger is supplied by the order side; deactivation is refused while
// any remain.
func (s *Service) Deactivate(ctx context.Context, ledgerID id.ID, inFlightOrders int) error {
	if inFlightOrders < 0 {
		return apperror.NewValidation("in-flight order count must be >= 0")
	}
	if inFlightOrders > 0 {
		return apperror.NewConflict("ledger has in-flight orders").
			WithDetail("ledger_id", ledgerID.String()).
			WithDetail("in_flight_orders", inFlightOrders)
	}
	return s.mutate(ctx, ledgerID, "ledger deactivated", func(_ context.Context, l *Ledger) error {
		return l.Deactivate()
	})
}

// Activate marks a ledger active.
func (s *Service) Activate(ctx context.Context, ledgerID id.ID) error {
	return s.mutate(ctx, ledgerID, "ledger activated", func(_ context.Context, l *Ledger) error {
		l.Activate()
		return nil
	})
}

// MovementInput carries the fields shared by entry/exit operations.
type MovementInput struct {
	LedgerID    id.ID
	ProductID   id.ID
	Quantity    types.Quantity
	Responsible string
	Reason      string
	Metadata    map[string]string
}

// RegisterEntry records inbound stock.
func (s *Service) RegisterEntry(ctx context.Context, input MovementInput) error {
	return s.mutate(ctx, input.LedgerID, "stock entry registered", func(_ context.Context, l *Ledger) error {
		if err := l.RegisterEntry(input.ProductID, input.Quantity, input.Responsible, input.Reason, input.Metadata); err != nil {
			return err
		}
		// Capacity is not enforced per entry (only on capacity changes), but
		// an overrun is worth surfacing to operators.
		if l.Occupancy() > l.Capacity() {
			logger.Warn(ctx, "ledger occupancy exceeds capacity",
				"ledger_id", l.ID(),
				"occupancy", l.Occupancy(),
				"capacity", l.Capacity(),
			)
		}
		return nil
	})
}

// RegisterExit records outbound stock drawn from the available balance.
func (s *Service) RegisterExit(ctx context.Context, input MovementInput) error {
	return s.mutate(ctx, input.LedgerID, "stock exit registered", func(ctx context.Context, l *Ledger) error {
		wasReached := l.HasReachedReorderPoint(input.ProductID)
		if err := l.RegisterExit(input.ProductID, input.Quantity, input.Responsible, input.Reason); err != nil {
			return err
		}
		return s.alertOnCrossing(ctx, l, input.ProductID, wasReached)
	})
}

// RegisterAdjustment records an inventory correction.
func (s *Service) RegisterAdjustment(ctx context.Context, input MovementInput, kind MovementKind) error {
	return s.mutate(ctx, input.LedgerID, "stock adjustment registered", func(ctx context.Context, l *Ledger) error {
		wasReached := l.HasReachedReorderPoint(input.ProductID)
		if err := l.RegisterAdjustment(input.ProductID, input.Quantity, kind, input.Responsible, input.Reason); err != nil {
			return err
		}
		return s.alertOnCrossing(ctx, l, input.ProductID, wasReached)
	})
}

// Reserve places a hold against available stock.
func (s *Service) Reserve(ctx context.Context, ledgerID, productID id.ID, qty types.Quantity) error {
	return s.mutate(ctx, ledgerID, "stock reserved", func(_ context.Context, l *Ledger) error {
		return l.Reserve(productID, qty)
	})
}

// ReleaseReservation returns held units to available stock.
func (s *Service) ReleaseReservation(ctx context.Context, ledgerID, productID id.ID, qty types.Quantity) error {
	return s.mutate(ctx, ledgerID, "reservation released", func(_ context.Context, l *Ledger) error {
		return l.ReleaseReservation(productID, qty)
	})
}

// ConsumeReservation fulfils a held reservation with a physical exit.
func (s *Service) ConsumeReservation(ctx context.Context, input MovementInput) error {
	return s.mutate(ctx, input.LedgerID, "reservation consumed", func(ctx context.Context, l *Ledger) error {
		wasReached := l.HasReachedReorderPoint(input.ProductID)
		if err := l.ConsumeReservationAsExit(input.ProductID, input.Quantity, input.Responsible, input.Reason); err != nil {
			return err
		}
		return s.alertOnCrossing(ctx, l, input.ProductID, wasReached)
	})
}

// DefineReorderPoint replaces the reorder point for a product.
func (s *Service) DefineReorderPoint(ctx context.Context, ledgerID, productID id.ID, avgDailyConsumption types.Rate, leadTimeDays int, safetyStock types.Rate) error {
	return s.mutate(ctx, ledgerID, "reorder point defined", func(_ context.Context, l *Ledger) error {
		return l.DefineReorderPoint(productID, avgDailyConsumption, leadTimeDays, safetyStock)
	})
}

// DefineReorderPointFromHistory derives the reorder point from the trailing
// 90-day consumption total; with no consumption data the default threshold
// of one unit applies.
func (s *Service) DefineReorderPointFromHistory(ctx context.Context, ledgerID, productID id.ID, totalConsumed types.Quantity, leadTimeDays int, safetyStock types.Rate) error {
	var rop ReorderPoint
	if totalConsumed.IsZero() && safetyStock.IsZero() {
		rop = DefaultReorderPoint()
	} else {
		var err error
		rop, err = ReorderPointFromHistory(totalConsumed, leadTimeDays, safetyStock)
		if err != nil {
			return err
		}
	}
	return s.mutate(ctx, ledgerID, "reorder point defined from history", func(_ context.Context, l *Ledger) error {
		return l.SetReorderPoint(productID, rop)
	})
}

// HasReachedReorderPoint reports whether the product's stock has fallen to
// or below its reorder threshold.
func (s *Service) HasReachedReorderPoint(ctx context.Context, ledgerID, productID id.ID) (bool, error) {
	l, err := s.repo.FindByID(ctx, ledgerID)
	if err != nil {
		return false, err
	}
	return l.HasReachedReorderPoint(productID), nil
}

// alertOnCrossing publishes a reorder alert when the operation moved the
// product from above its threshold to at-or-below it. Runs inside the same
// transaction as the movement, so a rolled back exit never alerts.
func (s *Service) alertOnCrossing(ctx context.Context, l *Ledger, productID id.ID, wasReached bool) error {
	if s.alerts == nil || wasReached || !l.HasReachedReorderPoint(productID) {
		return nil
	}
	rop, _ := l.ReorderPointOf(productID)
	return s.alerts.PublishReorderAlert(ctx, ReorderAlert{
		LedgerID:   l.ID(),
		ProductID:  productID,
		Physical:   l.BalanceOf(productID).Physical(),
		Threshold:  rop.Threshold(),
		OccurredAt: l.UpdatedAt(),
	})
}

// mutate loads the aggregate, applies fn and saves, all in one transaction.
func (s *Service) mutate(ctx context.Context, ledgerID id.ID, logMsg string, fn func(ctx context.Context, l *Ledger) error) error {
	if id.IsNil(ledgerID) {
		return apperror.NewValidation("ledger id is required")
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		l, err := s.repo.FindByID(ctx, ledgerID)
		if err != nil {
			return err
		}
		if err := fn(ctx, l); err != nil {
			return err
		}
		return s.repo.Save(ctx, l)
	})
	if err != nil {
		return err
	}

	if strings.TrimSpace(logMsg) != "" {
		logger.Info(ctx, logMsg, "ledger_id", ledgerID)
	}
	return nil
}
