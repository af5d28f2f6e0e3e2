package domain

import (
	"time"

	"github.com/levijcl/Wei-sub000/pkg/events"
)

// Event types published by the order context
const (
	EventTypeOrderScheduled           = "fulfillment.order.scheduled"
	EventTypeOrderReadyForFulfillment = "fulfillment.order.ready-for-fulfillment"
	EventTypeOrderReserved            = "fulfillment.order.reserved"
	EventTypeOrderReservationFailed   = "fulfillment.order.reservation-failed"
)

// OrderScheduledEvent is raised when an order is parked for later fulfillment
type OrderScheduledEvent struct {
	events.BaseDomainEvent
	OrderID    string    `json:"orderId"`
	PickupTime time.Time `json:"pickupTime"`
}

// NewOrderScheduledEvent creates a new OrderScheduledEvent
func NewOrderScheduledEvent(orderID string, pickupTime time.Time) *OrderScheduledEvent {
	return &OrderScheduledEvent{
		BaseDomainEvent: events.NewBase(EventTypeOrderScheduled, orderID),
		OrderID:         orderID,
		PickupTime:      pickupTime,
	}
}

// OrderReadyForFulfillmentEvent is raised when an order may start reserving stock
type OrderReadyForFulfillmentEvent struct {
	events.BaseDomainEvent
	OrderID string `json:"orderId"`
}

// NewOrderReadyForFulfillmentEvent creates a new OrderReadyForFulfillmentEvent
func NewOrderReadyForFulfillmentEvent(orderID string) *OrderReadyForFulfillmentEvent {
	return &OrderReadyForFulfillmentEvent{
		BaseDomainEvent: events.NewBase(EventTypeOrderReadyForFulfillment, orderID),
		OrderID:         orderID,
	}
}

// OrderReservedEvent is raised exactly once, on the rollup transition
// into RESERVED
type OrderReservedEvent struct {
	events.BaseDomainEvent
	OrderID             string   `json:"orderId"`
	ReservedLineItemIDs []string `json:"reservedLineItemIds"`
}

// NewOrderReservedEvent creates a new OrderReservedEvent
func NewOrderReservedEvent(orderID string, reservedLineItemIDs []string) *OrderReservedEvent {
	return &OrderReservedEvent{
		BaseDomainEvent:     events.NewBase(EventTypeOrderReserved, orderID),
		OrderID:             orderID,
		ReservedLineItemIDs: reservedLineItemIDs,
	}
}

// OrderReservationFailedEvent is raised when an order is marked
// FAILED_TO_RESERVE
type OrderReservationFailedEvent struct {
	events.BaseDomainEvent
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// NewOrderReservationFailedEvent creates a new OrderReservationFailedEvent
func NewOrderReservationFailedEvent(orderID, reason string) *OrderReservationFailedEvent {
	return &OrderReservationFailedEvent{
		BaseDomainEvent: events.NewBase(EventTypeOrderReservationFailed, orderID),
		OrderID:         orderID,
		Reason:          reason,
	}
}
