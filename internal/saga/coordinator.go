package saga

import (
	"context"
	"fmt"

	invapp "github.com/levijcl/Wei-sub000/internal/inventory/application"
	invdomain "github.com/levijcl/Wei-sub000/internal/inventory/domain"
	observationdomain "github.com/levijcl/Wei-sub000/internal/observation/domain"
	orderapp "github.com/levijcl/Wei-sub000/internal/order/application"
	orderdomain "github.com/levijcl/Wei-sub000/internal/order/domain"
	wesapp "github.com/levijcl/Wei-sub000/internal/wes/application"
	wesdomain "github.com/levijcl/Wei-sub000/internal/wes/domain"
	apperrors "github.com/levijcl/Wei-sub000/pkg/errors"
	"github.com/levijcl/Wei-sub000/pkg/eventbus"
	"github.com/levijcl/Wei-sub000/pkg/events"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

// defaultTaskPriority is assigned to picking tasks created for orders.
const defaultTaskPriority = 5

// Coordinator wires the fulfillment choreography together: it subscribes
// to the domain events of every bounded context and reacts by invoking
// the application services of the contexts downstream. Each handler is
// idempotent because bus delivery is at-least-once, and handlers that
// touch an order serialize on the order id so that concurrent deliveries
// for the same order never interleave.
type Coordinator struct {
	orders      *orderapp.OrderApplicationService
	inventory   *invapp.InventoryTransactionApplicationService
	adjustments *invapp.InventoryAdjustmentApplicationService
	tasks       *wesapp.PickingTaskApplicationService
	txRepo      invdomain.TransactionRepository
	locks       *eventbus.KeyedMutex
	logger      *logging.Logger
	metrics     *metrics.Metrics

	// Reservation requests go to the primary warehouse until the
	// order source carries warehouse routing.
	defaultWarehouseID string
}

// NewCoordinator creates a Coordinator. Call Register to attach it to a bus.
func NewCoordinator(
	orders *orderapp.OrderApplicationService,
	inventory *invapp.InventoryTransactionApplicationService,
	adjustments *invapp.InventoryAdjustmentApplicationService,
	tasks *wesapp.PickingTaskApplicationService,
	txRepo invdomain.TransactionRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *Coordinator {
	return &Coordinator{
		orders:             orders,
		inventory:          inventory,
		adjustments:        adjustments,
		tasks:              tasks,
		txRepo:             txRepo,
		locks:              eventbus.NewKeyedMutex(),
		logger:             logger.WithComponent("saga"),
		metrics:            m,
		defaultWarehouseID: "WH001",
	}
}

// Register subscribes every choreography handler on the bus.
func (c *Coordinator) Register(bus *eventbus.Bus) {
	bus.Subscribe(observationdomain.EventTypeNewOrderObserved, "saga.create-order", c.handleNewOrderObserved)
	bus.Subscribe(orderdomain.EventTypeOrderReadyForFulfillment, "saga.request-reservations", c.handleOrderReadyForFulfillment)
	bus.Subscribe(invdomain.EventTypeInventoryReserved, "saga.apply-reservation", c.handleInventoryReserved)
	bus.Subscribe(invdomain.EventTypeReservationFailed, "saga.record-reservation-failure", c.handleReservationFailed)
	bus.Subscribe(orderdomain.EventTypeOrderReserved, "saga.submit-picking-task", c.handleOrderReserved)
	bus.Subscribe(wesdomain.EventTypePickingTaskSubmitted, "saga.mark-picking-in-progress", c.handlePickingTaskSubmitted)
	bus.Subscribe(wesdomain.EventTypePickingTaskCompleted, "saga.complete-picking", c.handlePickingTaskCompleted)
	bus.Subscribe(wesdomain.EventTypePickingTaskFailed, "saga.fail-picking", c.handlePickingTaskFailed)
	bus.Subscribe(wesdomain.EventTypePickingTaskCanceled, "saga.cancel-picking", c.handlePickingTaskCanceled)
	bus.Subscribe(wesdomain.EventTypeWesTaskDiscovered, "saga.register-wes-task", c.handleWesTaskDiscovered)
	bus.Subscribe(wesdomain.EventTypeWesTaskStatusUpdated, "saga.sync-task-status", c.handleWesTaskStatusUpdated)
	bus.Subscribe(observationdomain.EventTypeInventorySnapshotObserved, "saga.reconcile-inventory", c.handleInventorySnapshotObserved)
}

// handleNewOrderObserved creates an order from an observed source order.
// An order that already exists is left untouched.
func (c *Coordinator) handleNewOrderObserved(ctx context.Context, env eventbus.Envelope) error {
	evt, ok := env.Event.(*observationdomain.NewOrderObservedEvent)
	if !ok {
		return apperrors.ErrInvalidState(fmt.Sprintf("unexpected payload for %s", env.Event.EventType()))
	}

	orderID := evt.ObservedOrder.OrderID
	return c.locks.WithLock(orderID, func() error {
		return c.orders.CreateFromObservation(ctx, evt.ObservedOrder, c.nextTrigger(env))
	})
}

// handleOrderReadyForFulfillment requests an inventory reservation for
// every line item that has not been attempted yet. A reservation request
// that fails is logged and skipped: the inventory context reports the
// outcome through its own events.
func (c *Coordinator) handleOrderReadyForFulfillment(ctx context.Context, env eventbus.Envelope) error {
	orderID := env.Event.AggregateID()
	trigger := c.nextTrigger(env)

	return c.locks.WithLock(orderID, func() error {
		order, err := c.orders.LoadOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.ErrInvalidState("order not found: " + orderID)
		}

		for _, item := range order.LineItems {
			if item.ReservationInfo != nil {
				continue
			}
			if err := c.inventory.RequestReservation(ctx, orderID, item.SKU, c.defaultWarehouseID, item.Quantity, trigger); err != nil {
				c.logger.WithError(err).Error("Failed to request reservation",
					"orderId", orderID, "sku", item.SKU)
			}
		}
		return nil
	})
}

// handleInventoryReserved applies a successful reservation to the order
// line items covered by the transaction. A missing order means it was
// removed after the reservation started, so the event is skipped; a
// missing transaction or line item is a broken invariant.
func (c *Coordinator) handleInventoryReserved(ctx context.Context, env eventbus.Envelope) error {
	evt, ok := env.Event.(*invdomain.InventoryReservedEvent)
	if !ok {
		return apperrors.ErrInvalidState(fmt.Sprintf("unexpected payload for %s", env.Event.EventType()))
	}

	return c.locks.WithLock(evt.OrderID, func() error {
		order, err := c.orders.LoadOrder(ctx, evt.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			c.logger.Warn("Order not found for reserved inventory, skipping",
				"orderId", evt.OrderID, "transactionId", evt.TransactionID)
			return nil
		}

		tx, err := c.txRepo.FindByID(ctx, evt.TransactionID)
		if err != nil {
			return err
		}
		if tx == nil {
			return apperrors.ErrInvalidState("transaction not found: " + evt.TransactionID)
		}

		for _, line := range tx.Lines {
			item, found := order.FindLineItemBySKU(line.SKU)
			if !found {
				return apperrors.ErrInvalidState(
					fmt.Sprintf("line item not found for sku %s in order %s", line.SKU, evt.OrderID))
			}
			if item.ReservationInfo.IsReserved() {
				continue
			}
			if err := order.ReserveLineItem(item.LineItemID, tx.TransactionID, evt.ExternalReservationID, tx.WarehouseID); err != nil {
				return err
			}
		}

		if order.IsFullyReserved() && c.metrics != nil {
			c.metrics.OrdersReservedTotal.Inc()
		}
		return c.orders.SaveAndPublish(ctx, order, c.nextTrigger(env))
	})
}

// handleReservationFailed records a failed reservation on the order and,
// when every line item has failed, escalates the whole order to
// FAILED_TO_RESERVE. Partial failures leave the order awaiting the
// remaining reservations.
func (c *Coordinator) handleReservationFailed(ctx context.Context, env eventbus.Envelope) error {
	evt, ok := env.Event.(*invdomain.ReservationFailedEvent)
	if !ok {
		return apperrors.ErrInvalidState(fmt.Sprintf("unexpected payload for %s", env.Event.EventType()))
	}

	return c.locks.WithLock(evt.OrderID, func() error {
		order, err := c.orders.LoadOrder(ctx, evt.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			c.logger.Warn("Order not found for failed reservation, skipping",
				"orderId", evt.OrderID, "transactionId", evt.TransactionID)
			return nil
		}

		tx, err := c.txRepo.FindByID(ctx, evt.TransactionID)
		if err != nil {
			return err
		}
		if tx == nil {
			return apperrors.ErrInvalidState("transaction not found: " + evt.TransactionID)
		}
		if len(tx.Lines) == 0 {
			return apperrors.ErrInvalidState("transaction has no lines: " + evt.TransactionID)
		}

		sku := tx.Lines[0].SKU
		item, found := order.FindLineItemBySKU(sku)
		if !found {
			return apperrors.ErrInvalidState(
				fmt.Sprintf("line item not found for sku %s in order %s", sku, evt.OrderID))
		}
		if !item.ReservationInfo.IsFailed() {
			if err := order.MarkLineReservationFailed(item.LineItemID, evt.Reason); err != nil {
				return err
			}
		}

		if order.HasAnyReservationFailed() && !order.IsPartiallyReserved() {
			reason := "All line items failed to reserve. First reason: " + evt.Reason
			if err := order.MarkAsFailedToReserve(reason); err != nil {
				return err
			}
			if c.metrics != nil {
				c.metrics.OrdersFailedToReserve.Inc()
			}
		}
		return c.orders.SaveAndPublish(ctx, order, c.nextTrigger(env))
	})
}

// handleOrderReserved submits a picking task covering the reserved line
// items. A submission failure is absorbed by the wes context, which
// records the task as FAILED. Redelivery after a task already exists
// for the order is a no-op.
func (c *Coordinator) handleOrderReserved(ctx context.Context, env eventbus.Envelope) error {
	orderID := env.Event.AggregateID()

	return c.locks.WithLock(orderID, func() error {
		order, err := c.orders.LoadOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.ErrInvalidState("order not found: " + orderID)
		}

		existing, err := c.tasks.ListTasksForOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			c.logger.Debug("Picking task already exists for order, skipping",
				"orderId", orderID, "taskId", existing[0].TaskID)
			return nil
		}

		reserved := order.ReservedLineItems()
		items := make([]wesdomain.TaskItem, 0, len(reserved))
		for _, li := range reserved {
			items = append(items, wesdomain.TaskItem{
				SKU:      li.SKU,
				Quantity: li.Quantity,
				Location: li.ReservationInfo.WarehouseID,
			})
		}
		return c.tasks.SubmitTaskForOrder(ctx, orderID, items, defaultTaskPriority, c.nextTrigger(env))
	})
}

// handlePickingTaskSubmitted marks the covered line items as picking in
// progress. Tasks discovered in WES are skipped: they carry no order.
func (c *Coordinator) handlePickingTaskSubmitted(ctx context.Context, env eventbus.Envelope) error {
	evt, ok := env.Event.(*wesdomain.PickingTaskSubmittedEvent)
	if !ok {
		return apperrors.ErrInvalidState(fmt.Sprintf("unexpected payload for %s", env.Event.EventType()))
	}
	if evt.OrderID == "" {
		return nil
	}

	task, err := c.tasks.FindTask(ctx, evt.TaskID)
	if err != nil {
		return err
	}
	if task == nil {
		return apperrors.ErrInvalidState("picking task not found: " + evt.TaskID)
	}
	if !task.Origin.IsOrchestratorSubmitted() {
		return nil
	}

	return c.locks.WithLock(evt.OrderID, func() error {
		order, err := c.orders.LoadOrder(ctx, evt.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.ErrInvalidState("order not found: " + evt.OrderID)
		}
		order.MarkItemsAsPickingInProgress(task.SKUs(), task.TaskID)
		return c.orders.SaveAndPublish(ctx, order, c.nextTrigger(env))
	})
}

// handlePickingTaskCompleted commits the covered line items and consumes
// the matching reservations so external stock reflects the pick.
func (c *Coordinator) handlePickingTaskCompleted(ctx context.Context, env eventbus.Envelope) error {
	evt, ok := env.Event.(*wesdomain.PickingTaskCompletedEvent)
	if !ok {
		return apperrors.ErrInvalidState(fmt.Sprintf("unexpected payload for %s", env.Event.EventType()))
	}
	if evt.OrderID == "" {
		return nil
	}

	task, err := c.tasks.FindTask(ctx, evt.TaskID)
	if err != nil {
		return err
	}
	if task == nil {
		return apperrors.ErrInvalidState("picking task not found: " + evt.TaskID)
	}

	trigger := c.nextTrigger(env)
	return c.locks.WithLock(evt.OrderID, func() error {
		order, err := c.orders.LoadOrder(ctx, evt.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.ErrInvalidState("order not found: " + evt.OrderID)
		}

		if err := order.MarkItemsAsPickingCompleted(task.SKUs(), evt.WesTaskID); err != nil {
			return err
		}
		if err := c.orders.SaveAndPublish(ctx, order, trigger); err != nil {
			return err
		}
		return c.inventory.ConsumeReservationsForOrder(ctx, evt.OrderID, task.TaskID, task.SKUs(), trigger)
	})
}

// handlePickingTaskFailed records a commitment failure on the covered
// line items. Reservations stay held for a retry or manual resolution.
func (c *Coordinator) handlePickingTaskFailed(ctx context.Context, env eventbus.Envelope) error {
	evt, ok := env.Event.(*wesdomain.PickingTaskFailedEvent)
	if !ok {
		return apperrors.ErrInvalidState(fmt.Sprintf("unexpected payload for %s", env.Event.EventType()))
	}
	if evt.OrderID == "" {
		return nil
	}

	task, err := c.tasks.FindTask(ctx, evt.TaskID)
	if err != nil {
		return err
	}
	if task == nil {
		return apperrors.ErrInvalidState("picking task not found: " + evt.TaskID)
	}

	return c.locks.WithLock(evt.OrderID, func() error {
		order, err := c.orders.LoadOrder(ctx, evt.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.ErrInvalidState("order not found: " + evt.OrderID)
		}
		if err := order.MarkItemsAsPickingFailed(task.SKUs(), evt.Reason); err != nil {
			return err
		}
		return c.orders.SaveAndPublish(ctx, order, c.nextTrigger(env))
	})
}

// handlePickingTaskCanceled records the cancellation on the order and
// compensates by releasing the reservations held for it.
func (c *Coordinator) handlePickingTaskCanceled(ctx context.Context, env eventbus.Envelope) error {
	evt, ok := env.Event.(*wesdomain.PickingTaskCanceledEvent)
	if !ok {
		return apperrors.ErrInvalidState(fmt.Sprintf("unexpected payload for %s", env.Event.EventType()))
	}
	if evt.OrderID == "" {
		return nil
	}

	task, err := c.tasks.FindTask(ctx, evt.TaskID)
	if err != nil {
		return err
	}
	if task == nil {
		return apperrors.ErrInvalidState("picking task not found: " + evt.TaskID)
	}

	trigger := c.nextTrigger(env)
	return c.locks.WithLock(evt.OrderID, func() error {
		order, err := c.orders.LoadOrder(ctx, evt.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.ErrInvalidState("order not found: " + evt.OrderID)
		}

		if err := order.MarkItemsAsPickingCanceled(task.SKUs(), evt.Reason); err != nil {
			return err
		}
		if err := c.orders.SaveAndPublish(ctx, order, trigger); err != nil {
			return err
		}
		return c.inventory.ReleaseReservationsForOrder(ctx, evt.OrderID, trigger)
	})
}

// handleWesTaskDiscovered registers a task that operators created
// directly in WES so its lifecycle is tracked here too.
func (c *Coordinator) handleWesTaskDiscovered(ctx context.Context, env eventbus.Envelope) error {
	evt, ok := env.Event.(*wesdomain.WesTaskDiscoveredEvent)
	if !ok {
		return apperrors.ErrInvalidState(fmt.Sprintf("unexpected payload for %s", env.Event.EventType()))
	}
	return c.tasks.RegisterWesDirectTask(ctx, wesdomain.WesTaskDto{
		WesTaskID: evt.WesTaskID,
		Status:    string(evt.Status),
		Priority:  evt.Priority,
		Items:     evt.Items,
	}, c.nextTrigger(env))
}

// handleWesTaskStatusUpdated syncs an observed WES status change onto
// the local task, which in turn drives the order-side handlers.
func (c *Coordinator) handleWesTaskStatusUpdated(ctx context.Context, env eventbus.Envelope) error {
	evt, ok := env.Event.(*wesdomain.WesTaskStatusUpdatedEvent)
	if !ok {
		return apperrors.ErrInvalidState(fmt.Sprintf("unexpected payload for %s", env.Event.EventType()))
	}
	return c.tasks.UpdateTaskStatusFromWes(ctx, evt.WesTaskID, evt.Status, c.nextTrigger(env))
}

// handleInventorySnapshotObserved compares the observed snapshot against
// WES stock and opens an adjustment for any discrepancy.
func (c *Coordinator) handleInventorySnapshotObserved(ctx context.Context, env eventbus.Envelope) error {
	evt, ok := env.Event.(*observationdomain.InventorySnapshotObservedEvent)
	if !ok {
		return apperrors.ErrInvalidState(fmt.Sprintf("unexpected payload for %s", env.Event.EventType()))
	}
	return c.adjustments.ReconcileSnapshot(ctx, evt.Snapshots, c.nextTrigger(env))
}

func (c *Coordinator) nextTrigger(env eventbus.Envelope) events.TriggerContext {
	return env.Trigger.Next(env.Event.EventType(), env.ID)
}
