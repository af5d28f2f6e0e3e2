package application

import (
	"context"
	"fmt"

	"github.com/levijcl/Wei-sub000/internal/inventory/domain"
	wesdomain "github.com/levijcl/Wei-sub000/internal/wes/domain"
	apperrors "github.com/levijcl/Wei-sub000/pkg/errors"
	"github.com/levijcl/Wei-sub000/pkg/eventbus"
	"github.com/levijcl/Wei-sub000/pkg/events"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

// InventoryAdjustmentApplicationService reconciles the local inventory
// view against the WES's physical stock counts
type InventoryAdjustmentApplicationService struct {
	adjustmentRepo domain.AdjustmentRepository
	txRepo         domain.TransactionRepository
	inventoryPort  domain.InventoryPort
	wesPort        wesdomain.WesPort
	bus            *eventbus.Bus
	logger         *logging.Logger
	metrics        *metrics.Metrics
}

// NewInventoryAdjustmentApplicationService creates a new InventoryAdjustmentApplicationService
func NewInventoryAdjustmentApplicationService(
	adjustmentRepo domain.AdjustmentRepository,
	txRepo domain.TransactionRepository,
	inventoryPort domain.InventoryPort,
	wesPort wesdomain.WesPort,
	bus *eventbus.Bus,
	logger *logging.Logger,
	m *metrics.Metrics,
) *InventoryAdjustmentApplicationService {
	return &InventoryAdjustmentApplicationService{
		adjustmentRepo: adjustmentRepo,
		txRepo:         txRepo,
		inventoryPort:  inventoryPort,
		wesPort:        wesPort,
		bus:            bus,
		logger:         logger.WithComponent("inventory-adjustment-service"),
		metrics:        m,
	}
}

// ReconcileSnapshot diffs an observed inventory snapshot against the
// WES's stock counts. A detected discrepancy is persisted and
// published; matching snapshots leave no trace.
func (s *InventoryAdjustmentApplicationService) ReconcileSnapshot(ctx context.Context, inventorySnapshots []domain.StockSnapshot, trigger events.TriggerContext) error {
	levels, err := s.wesPort.GetStockSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetching wes stock snapshot: %w", err)
	}
	wesSnapshots := make([]domain.StockSnapshot, 0, len(levels))
	for _, level := range levels {
		wesSnapshots = append(wesSnapshots, domain.StockSnapshot{
			SKU:         level.SKU,
			Quantity:    level.Quantity,
			WarehouseID: level.WarehouseID,
		})
	}

	adjustment := domain.DetectDiscrepancy(inventorySnapshots, wesSnapshots)
	if !adjustment.HasDiscrepancies() {
		s.logger.Debug("Snapshot reconciliation found no discrepancies",
			"snapshotSize", len(inventorySnapshots))
		return nil
	}

	s.metrics.DiscrepanciesDetected.Add(float64(len(adjustment.DiscrepancyLogs)))
	s.logger.Warn("Inventory discrepancies detected",
		"adjustmentId", adjustment.AdjustmentID, "discrepancies", len(adjustment.DiscrepancyLogs))
	return s.saveAndPublish(ctx, adjustment, trigger)
}

// ApplyAdjustment corrects the local inventory toward the WES's counts
// for every discrepancy on a pending adjustment. One cycle-count
// transaction carries all correcting lines for a warehouse.
func (s *InventoryAdjustmentApplicationService) ApplyAdjustment(ctx context.Context, adjustmentID string, trigger events.TriggerContext) error {
	adjustment, err := s.loadAdjustment(ctx, adjustmentID)
	if err != nil {
		return err
	}

	linesByWarehouse := make(map[string][]domain.TransactionLine)
	for _, log := range adjustment.DiscrepancyLogs {
		// correction moves the local count to the physical count
		delta := log.ExpectedQuantity - log.ActualQuantity
		if delta == 0 {
			continue
		}
		linesByWarehouse[log.WarehouseID] = append(linesByWarehouse[log.WarehouseID],
			domain.TransactionLine{SKU: log.SKU, Quantity: delta})
	}

	transactions := make([]*domain.InventoryTransaction, 0, len(linesByWarehouse))
	for warehouseID, lines := range linesByWarehouse {
		tx, err := domain.CreateAdjustmentTransaction(adjustment.AdjustmentID, domain.SourceCycleCountAdjustment, warehouseID, lines)
		if err != nil {
			return fmt.Errorf("creating adjustment transaction: %w", err)
		}
		if err := tx.MarkAsProcessing(); err != nil {
			return fmt.Errorf("marking adjustment transaction processing: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if len(transactions) == 0 {
		return nil
	}

	if err := adjustment.ApplyAdjustment(transactions[0].TransactionID); err != nil {
		return fmt.Errorf("applying adjustment %s: %w", adjustmentID, err)
	}

	var firstCallErr error
	for _, tx := range transactions {
		var callErr error
		for _, line := range tx.Lines {
			if err := s.inventoryPort.AdjustInventory(ctx, line.SKU, tx.WarehouseID, line.Quantity); err != nil {
				callErr = err
				break
			}
		}
		if callErr != nil {
			if firstCallErr == nil {
				firstCallErr = callErr
			}
			if err := tx.Fail("adjusting inventory: " + callErr.Error()); err != nil {
				return fmt.Errorf("failing adjustment transaction: %w", err)
			}
			s.metrics.TransactionsFailed.WithLabelValues(string(tx.Type)).Inc()
			s.logger.WithError(callErr).Warn("Inventory adjustment failed",
				"adjustmentId", adjustmentID, "warehouseId", tx.WarehouseID)
		} else {
			if err := tx.Complete(); err != nil {
				return fmt.Errorf("completing adjustment transaction: %w", err)
			}
			s.metrics.TransactionsCompleted.WithLabelValues(string(tx.Type)).Inc()
		}

		if err := s.saveTransactionAndPublish(ctx, tx, trigger); err != nil {
			return err
		}
	}

	if firstCallErr != nil {
		if err := adjustment.Fail("adjusting inventory: " + firstCallErr.Error()); err != nil {
			return fmt.Errorf("failing adjustment: %w", err)
		}
	} else {
		if err := adjustment.Complete(); err != nil {
			return fmt.Errorf("completing adjustment: %w", err)
		}
		s.metrics.AdjustmentsAppliedTotal.WithLabelValues("cycle_count").Inc()
	}

	return s.saveAndPublish(ctx, adjustment, trigger)
}

// GetAdjustment retrieves an adjustment by id
func (s *InventoryAdjustmentApplicationService) GetAdjustment(ctx context.Context, adjustmentID string) (*domain.InventoryAdjustment, error) {
	return s.loadAdjustment(ctx, adjustmentID)
}

// ListPendingAdjustments retrieves adjustments awaiting application
func (s *InventoryAdjustmentApplicationService) ListPendingAdjustments(ctx context.Context, limit int64) ([]*domain.InventoryAdjustment, error) {
	if limit <= 0 {
		limit = 50
	}
	adjustments, err := s.adjustmentRepo.FindByStatus(ctx, domain.AdjustmentPending, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending adjustments: %w", err)
	}
	return adjustments, nil
}

func (s *InventoryAdjustmentApplicationService) loadAdjustment(ctx context.Context, adjustmentID string) (*domain.InventoryAdjustment, error) {
	adjustment, err := s.adjustmentRepo.FindByID(ctx, adjustmentID)
	if err != nil {
		return nil, fmt.Errorf("loading adjustment: %w", err)
	}
	if adjustment == nil {
		return nil, apperrors.ErrNotFoundWithID("inventory adjustment", adjustmentID)
	}
	return adjustment, nil
}

func (s *InventoryAdjustmentApplicationService) saveAndPublish(ctx context.Context, adjustment *domain.InventoryAdjustment, trigger events.TriggerContext) error {
	evts := adjustment.GetDomainEvents()
	adjustment.ClearDomainEvents()

	if err := s.adjustmentRepo.Save(ctx, adjustment); err != nil {
		return fmt.Errorf("saving adjustment %s: %w", adjustment.AdjustmentID, err)
	}
	if err := s.bus.PublishAll(ctx, trigger, evts); err != nil {
		return fmt.Errorf("publishing adjustment events: %w", err)
	}
	return nil
}

func (s *InventoryAdjustmentApplicationService) saveTransactionAndPublish(ctx context.Context, tx *domain.InventoryTransaction, trigger events.TriggerContext) error {
	evts := tx.GetDomainEvents()
	tx.ClearDomainEvents()

	if err := s.txRepo.Save(ctx, tx); err != nil {
		return fmt.Errorf("saving transaction %s: %w", tx.TransactionID, err)
	}
	if err := s.bus.PublishAll(ctx, trigger, evts); err != nil {
		return fmt.Errorf("publishing transaction events: %w", err)
	}
	return nil
}
