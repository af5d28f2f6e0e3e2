package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	observationdomain "github.com/levijcl/Wei-sub000/internal/observation/domain"
	"github.com/levijcl/Wei-sub000/internal/order/domain"
	apperrors "github.com/levijcl/Wei-sub000/pkg/errors"
	"github.com/levijcl/Wei-sub000/pkg/eventbus"
	"github.com/levijcl/Wei-sub000/pkg/events"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

// OrderApplicationService handles order use cases
type OrderApplicationService struct {
	orderRepo domain.OrderRepository
	bus       *eventbus.Bus
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewOrderApplicationService creates a new OrderApplicationService
func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	bus *eventbus.Bus,
	logger *logging.Logger,
	m *metrics.Metrics,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo,
		bus:       bus,
		logger:    logger.WithComponent("order-service"),
		metrics:   m,
	}
}

// CreateOrder creates a new order from an operator command
func (s *OrderApplicationService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*OrderDTO, error) {
	orderID := cmd.OrderID
	if orderID == "" {
		orderID = "ORD-" + uuid.New().String()[:8]
	}

	existing, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("checking for existing order: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrConflict("order already exists").WithDetail("orderId", orderID)
	}

	order, err := domain.NewOrder(orderID, cmd.ToDomainLineItems())
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}
	if cmd.ScheduledPickupTime != nil {
		if err := order.ScheduleForLaterFulfillment(*cmd.ScheduledPickupTime, cmd.FulfillmentLeadTime); err != nil {
			return nil, apperrors.ErrValidation(err.Error())
		}
	}

	if err := s.saveAndPublish(ctx, order, events.Manual()); err != nil {
		return nil, err
	}
	s.logger.Info("Order created", "orderId", orderID, "lineItems", len(order.LineItems))
	return ToOrderDTO(order), nil
}

// CreateFromObservation creates an order from an externally observed
// one. An order that already exists is skipped silently: observation is
// at-least-once and re-delivery is expected.
func (s *OrderApplicationService) CreateFromObservation(ctx context.Context, observed observationdomain.ObservationResult, trigger events.TriggerContext) error {
	existing, err := s.orderRepo.FindByID(ctx, observed.OrderID)
	if err != nil {
		return fmt.Errorf("checking for existing order: %w", err)
	}
	if existing != nil {
		s.logger.Debug("Order already exists, skipping observation", "orderId", observed.OrderID)
		return nil
	}

	lineItems := make([]domain.OrderLineItem, 0, len(observed.Items))
	for _, item := range observed.Items {
		lineItems = append(lineItems, domain.NewOrderLineItem(item.SKU, item.Quantity, item.Price))
	}

	order, err := domain.NewOrder(observed.OrderID, lineItems)
	if err != nil {
		return apperrors.ErrValidation(err.Error())
	}
	if observed.ScheduledPickupTime != nil {
		if err := order.ScheduleForLaterFulfillment(*observed.ScheduledPickupTime, 0); err != nil {
			return apperrors.ErrValidation(err.Error())
		}
	}

	if err := s.saveAndPublish(ctx, order, trigger); err != nil {
		return err
	}
	s.logger.Info("Order created from observation", "orderId", observed.OrderID, "warehouseId", observed.WarehouseID)
	return nil
}

// InitiateFulfillment moves an order to AWAITING_FULFILLMENT and kicks
// off reservation via the emitted event
func (s *OrderApplicationService) InitiateFulfillment(ctx context.Context, cmd InitiateFulfillmentCommand) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	if err := order.MarkReadyForFulfillment(); err != nil {
		return nil, apperrors.ErrInvalidState(err.Error()).WithDetail("orderId", cmd.OrderID)
	}
	if err := s.saveAndPublish(ctx, order, events.Manual()); err != nil {
		return nil, err
	}
	return ToOrderDTO(order), nil
}

// MarkShipped records shipment of a committed order
func (s *OrderApplicationService) MarkShipped(ctx context.Context, cmd MarkShippedCommand) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	info := domain.ShipmentInfo{Carrier: cmd.Carrier, TrackingNumber: cmd.TrackingNumber}
	if err := order.MarkAsShipped(info); err != nil {
		return nil, apperrors.ErrInvalidState(err.Error()).WithDetail("orderId", cmd.OrderID)
	}
	if err := s.saveAndPublish(ctx, order, events.Manual()); err != nil {
		return nil, err
	}
	return ToOrderDTO(order), nil
}

// GetOrder retrieves an order by id
func (s *OrderApplicationService) GetOrder(ctx context.Context, query GetOrderQuery) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, query.OrderID)
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(order), nil
}

// ListOrders retrieves orders filtered by status
func (s *OrderApplicationService) ListOrders(ctx context.Context, query ListOrdersQuery) ([]OrderDTO, error) {
	status := domain.Status(query.Status)
	if query.Status != "" && !status.IsValid() {
		return nil, apperrors.ErrValidation("unknown order status").WithDetail("status", query.Status)
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	orders, err := s.orderRepo.FindByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	dtos := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, *ToOrderDTO(order))
	}
	return dtos, nil
}

// PromoteDueOrders advances CREATED orders and SCHEDULED orders whose
// pickup window has opened to AWAITING_FULFILLMENT. Called by the
// fulfillment scheduler; returns how many orders were promoted.
func (s *OrderApplicationService) PromoteDueOrders(ctx context.Context, now time.Time, trigger events.TriggerContext) (int, error) {
	created, err := s.orderRepo.FindByStatus(ctx, domain.StatusCreated, 100)
	if err != nil {
		return 0, fmt.Errorf("finding created orders: %w", err)
	}
	scheduled, err := s.orderRepo.FindScheduledBefore(ctx, now, 100)
	if err != nil {
		return 0, fmt.Errorf("finding due scheduled orders: %w", err)
	}

	promoted := 0
	for _, order := range append(created, scheduled...) {
		if order.Status == domain.StatusScheduled && !order.IsReadyForFulfillment(now) {
			continue
		}
		if err := order.MarkReadyForFulfillment(); err != nil {
			s.logger.WithError(err).Warn("Skipping order promotion", "orderId", order.OrderID, "status", string(order.Status))
			continue
		}
		if err := s.saveAndPublish(ctx, order, trigger); err != nil {
			s.logger.WithError(err).Error("Failed to promote order", "orderId", order.OrderID)
			continue
		}
		promoted++
	}
	return promoted, nil
}

// SaveAndPublish persists an order and publishes its pending events.
// Exposed for the saga handlers, which mutate orders directly.
func (s *OrderApplicationService) SaveAndPublish(ctx context.Context, order *domain.Order, trigger events.TriggerContext) error {
	return s.saveAndPublish(ctx, order, trigger)
}

// LoadOrder retrieves the raw aggregate for the saga handlers. A nil
// order with nil error means the order does not exist.
func (s *OrderApplicationService) LoadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

func (s *OrderApplicationService) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading order: %w", err)
	}
	if order == nil {
		return nil, apperrors.ErrNotFoundWithID("order", orderID)
	}
	return order, nil
}

// saveAndPublish persists the aggregate, then publishes its events.
// Publication happens only after the save succeeded so handlers always
// observe durably committed state.
func (s *OrderApplicationService) saveAndPublish(ctx context.Context, order *domain.Order, trigger events.TriggerContext) error {
	evts := order.GetDomainEvents()
	order.ClearDomainEvents()

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return fmt.Errorf("saving order %s: %w", order.OrderID, err)
	}
	if err := s.bus.PublishAll(ctx, trigger, evts); err != nil {
		return fmt.Errorf("publishing order events: %w", err)
	}
	return nil
}
