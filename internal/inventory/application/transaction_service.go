package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/levijcl/Wei-sub000/internal/inventory/domain"
	apperrors "github.com/levijcl/Wei-sub000/pkg/errors"
	"github.com/levijcl/Wei-sub000/pkg/eventbus"
	"github.com/levijcl/Wei-sub000/pkg/events"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

// InventoryTransactionApplicationService handles stock movement and
// reservation use cases. External inventory failures are absorbed into
// the transaction's own failed state and surface as domain events, not
// returned errors.
type InventoryTransactionApplicationService struct {
	txRepo        domain.TransactionRepository
	inventoryPort domain.InventoryPort
	bus           *eventbus.Bus
	logger        *logging.Logger
	metrics       *metrics.Metrics
}

// NewInventoryTransactionApplicationService creates a new InventoryTransactionApplicationService
func NewInventoryTransactionApplicationService(
	txRepo domain.TransactionRepository,
	inventoryPort domain.InventoryPort,
	bus *eventbus.Bus,
	logger *logging.Logger,
	m *metrics.Metrics,
) *InventoryTransactionApplicationService {
	return &InventoryTransactionApplicationService{
		txRepo:        txRepo,
		inventoryPort: inventoryPort,
		bus:           bus,
		logger:        logger.WithComponent("inventory-service"),
		metrics:       m,
	}
}

// RequestReservation creates a reservation transaction for one order
// line and attempts the external reservation. The outcome, success or
// failure, is recorded on the transaction and published as events.
func (s *InventoryTransactionApplicationService) RequestReservation(ctx context.Context, orderID, sku, warehouseID string, quantity int, trigger events.TriggerContext) error {
	tx, err := domain.CreateReservation(orderID, sku, warehouseID, quantity)
	if err != nil {
		return apperrors.ErrValidation(err.Error())
	}

	externalID, callErr := s.inventoryPort.CreateReservation(ctx, sku, warehouseID, orderID, quantity)
	if callErr != nil {
		reason := "inventory system error: " + callErr.Error()
		if errors.Is(callErr, domain.ErrInsufficientInventory) {
			reason = "insufficient inventory"
		}
		if err := tx.Fail(reason); err != nil {
			return fmt.Errorf("failing reservation transaction: %w", err)
		}
		s.metrics.TransactionsFailed.WithLabelValues(string(tx.Type)).Inc()
		s.logger.Warn("Reservation failed",
			"orderId", orderID, "sku", sku, "reason", reason)
	} else {
		if err := tx.MarkAsReserved(externalID); err != nil {
			return fmt.Errorf("marking transaction reserved: %w", err)
		}
		s.metrics.TransactionsCompleted.WithLabelValues(string(tx.Type)).Inc()
	}

	return s.saveAndPublish(ctx, tx, trigger)
}

// ConsumeReservationsForOrder converts an order's completed
// reservations covering the given skus into outbound stock movements.
// Called when a picking task finishes; taskID becomes the movement's
// source reference.
func (s *InventoryTransactionApplicationService) ConsumeReservationsForOrder(ctx context.Context, orderID, taskID string, skus []string, trigger events.TriggerContext) error {
	reservations, err := s.txRepo.FindBySourceReference(ctx, orderID)
	if err != nil {
		return fmt.Errorf("finding reservations for order %s: %w", orderID, err)
	}

	for _, reservation := range reservations {
		if reservation.Source != domain.SourceOrderReservation ||
			reservation.Status != domain.TransactionCompleted ||
			reservation.ExternalReservationID == "" {
			continue
		}
		if !coversAnySKU(reservation, skus) {
			continue
		}

		outbound, err := domain.CreateOutboundTransaction(
			taskID, domain.SourceReservationConsumed, reservation.WarehouseID,
			reservation.Lines, reservation.ExternalReservationID)
		if err != nil {
			return apperrors.ErrValidation(err.Error())
		}
		if err := outbound.MarkAsProcessing(); err != nil {
			return fmt.Errorf("marking outbound processing: %w", err)
		}

		if callErr := s.inventoryPort.ConsumeReservation(ctx, reservation.ExternalReservationID); callErr != nil {
			if err := outbound.Fail("consuming reservation: " + callErr.Error()); err != nil {
				return fmt.Errorf("failing outbound transaction: %w", err)
			}
			s.metrics.TransactionsFailed.WithLabelValues(string(outbound.Type)).Inc()
			s.logger.WithError(callErr).Warn("Failed to consume reservation",
				"orderId", orderID, "externalReservationId", reservation.ExternalReservationID)
		} else {
			if err := outbound.Complete(); err != nil {
				return fmt.Errorf("completing outbound transaction: %w", err)
			}
			s.metrics.TransactionsCompleted.WithLabelValues(string(outbound.Type)).Inc()
		}

		if err := s.saveAndPublish(ctx, outbound, trigger); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseReservationsForOrder returns an order's completed reservations
// to the stock pool. Compensation for canceled picking work.
func (s *InventoryTransactionApplicationService) ReleaseReservationsForOrder(ctx context.Context, orderID string, trigger events.TriggerContext) error {
	reservations, err := s.txRepo.FindBySourceReference(ctx, orderID)
	if err != nil {
		return fmt.Errorf("finding reservations for order %s: %w", orderID, err)
	}

	for _, reservation := range reservations {
		if reservation.Source != domain.SourceOrderReservation ||
			reservation.Status != domain.TransactionCompleted ||
			reservation.ExternalReservationID == "" {
			continue
		}

		if callErr := s.inventoryPort.ReleaseReservation(ctx, reservation.ExternalReservationID); callErr != nil {
			s.logger.WithError(callErr).Warn("Failed to release reservation externally",
				"orderId", orderID, "externalReservationId", reservation.ExternalReservationID)
			continue
		}
		if err := reservation.ReleaseReservation(); err != nil {
			return fmt.Errorf("releasing reservation %s: %w", reservation.TransactionID, err)
		}
		if err := s.saveAndPublish(ctx, reservation, trigger); err != nil {
			return err
		}
	}
	return nil
}

// RecordInbound records a stock arrival and applies it externally
func (s *InventoryTransactionApplicationService) RecordInbound(ctx context.Context, sourceReferenceID string, source domain.TransactionSource, warehouseID string, lines []domain.TransactionLine, trigger events.TriggerContext) error {
	tx, err := domain.CreateInboundTransaction(sourceReferenceID, source, warehouseID, lines)
	if err != nil {
		return apperrors.ErrValidation(err.Error())
	}
	if err := tx.MarkAsProcessing(); err != nil {
		return fmt.Errorf("marking inbound processing: %w", err)
	}

	var callErr error
	for _, line := range lines {
		if err := s.inventoryPort.IncreaseInventory(ctx, line.SKU, warehouseID, line.Quantity); err != nil {
			callErr = err
			break
		}
	}
	if callErr != nil {
		if err := tx.Fail("increasing inventory: " + callErr.Error()); err != nil {
			return fmt.Errorf("failing inbound transaction: %w", err)
		}
		s.metrics.TransactionsFailed.WithLabelValues(string(tx.Type)).Inc()
		s.logger.WithError(callErr).Warn("Inbound stock increase failed", "sourceReferenceId", sourceReferenceID)
	} else {
		if err := tx.Complete(); err != nil {
			return fmt.Errorf("completing inbound transaction: %w", err)
		}
		s.metrics.TransactionsCompleted.WithLabelValues(string(tx.Type)).Inc()
	}

	return s.saveAndPublish(ctx, tx, trigger)
}

// GetTransaction retrieves a transaction by id
func (s *InventoryTransactionApplicationService) GetTransaction(ctx context.Context, transactionID string) (*domain.InventoryTransaction, error) {
	tx, err := s.txRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("loading transaction: %w", err)
	}
	if tx == nil {
		return nil, apperrors.ErrNotFoundWithID("inventory transaction", transactionID)
	}
	return tx, nil
}

// ListTransactionsBySource retrieves transactions referencing an order or task
func (s *InventoryTransactionApplicationService) ListTransactionsBySource(ctx context.Context, sourceReferenceID string) ([]*domain.InventoryTransaction, error) {
	txs, err := s.txRepo.FindBySourceReference(ctx, sourceReferenceID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txs, nil
}

func (s *InventoryTransactionApplicationService) saveAndPublish(ctx context.Context, tx *domain.InventoryTransaction, trigger events.TriggerContext) error {
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

func coversAnySKU(tx *domain.InventoryTransaction, skus []string) bool {
	for _, line := range tx.Lines {
		for _, sku := range skus {
			if line.SKU == sku {
				return true
			}
		}
	}
	return false
}
