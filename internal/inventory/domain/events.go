package domain

import (
	"github.com/levijcl/Wei-sub000/pkg/events"
)

// Event types published by the inventory context
const (
	EventTypeReservationRequested  = "fulfillment.inventory.reservation-requested"
	EventTypeInventoryReserved     = "fulfillment.inventory.reserved"
	EventTypeReservationFailed     = "fulfillment.inventory.reservation-failed"
	EventTypeReservationConsumed   = "fulfillment.inventory.reservation-consumed"
	EventTypeReservationReleased   = "fulfillment.inventory.reservation-released"
	EventTypeInventoryIncreased    = "fulfillment.inventory.increased"
	EventTypeInventoryDecreased    = "fulfillment.inventory.decreased"
	EventTypeInventoryAdjusted     = "fulfillment.inventory.adjusted"
	EventTypeTransactionCreated    = "fulfillment.inventory.transaction-created"
	EventTypeTransactionCompleted  = "fulfillment.inventory.transaction-completed"
	EventTypeTransactionFailed     = "fulfillment.inventory.transaction-failed"
	EventTypeDiscrepancyDetected   = "fulfillment.inventory.discrepancy-detected"
	EventTypeAdjustmentApplied     = "fulfillment.inventory.adjustment-applied"
)

// InventoryReservationRequestedEvent signals the external inventory
// adapter to attempt a reservation
type InventoryReservationRequestedEvent struct {
	events.BaseDomainEvent
	TransactionID string `json:"transactionId"`
	OrderID       string `json:"orderId"`
	SKU           string `json:"sku"`
	WarehouseID   string `json:"warehouseId"`
	Quantity      int    `json:"quantity"`
}

// NewInventoryReservationRequestedEvent creates a new InventoryReservationRequestedEvent
func NewInventoryReservationRequestedEvent(transactionID, orderID, sku, warehouseID string, quantity int) *InventoryReservationRequestedEvent {
	return &InventoryReservationRequestedEvent{
		BaseDomainEvent: events.NewBase(EventTypeReservationRequested, transactionID),
		TransactionID:   transactionID,
		OrderID:         orderID,
		SKU:             sku,
		WarehouseID:     warehouseID,
		Quantity:        quantity,
	}
}

// InventoryReservedEvent is raised when an external reservation succeeds
type InventoryReservedEvent struct {
	events.BaseDomainEvent
	TransactionID         string `json:"transactionId"`
	OrderID               string `json:"orderId"`
	ExternalReservationID string `json:"externalReservationId"`
}

// NewInventoryReservedEvent creates a new InventoryReservedEvent
func NewInventoryReservedEvent(transactionID, orderID, externalReservationID string) *InventoryReservedEvent {
	return &InventoryReservedEvent{
		BaseDomainEvent:       events.NewBase(EventTypeInventoryReserved, transactionID),
		TransactionID:         transactionID,
		OrderID:               orderID,
		ExternalReservationID: externalReservationID,
	}
}

// ReservationFailedEvent is raised when a reservation attempt fails.
// The order saga reacts to this event, not to the generic failure.
type ReservationFailedEvent struct {
	events.BaseDomainEvent
	TransactionID string `json:"transactionId"`
	OrderID       string `json:"orderId"`
	Reason        string `json:"reason"`
}

// NewReservationFailedEvent creates a new ReservationFailedEvent
func NewReservationFailedEvent(transactionID, orderID, reason string) *ReservationFailedEvent {
	return &ReservationFailedEvent{
		BaseDomainEvent: events.NewBase(EventTypeReservationFailed, transactionID),
		TransactionID:   transactionID,
		OrderID:         orderID,
		Reason:          reason,
	}
}

// ReservationConsumedEvent is raised when a reservation's stock is
// consumed by a completed outbound transaction
type ReservationConsumedEvent struct {
	events.BaseDomainEvent
	TransactionID         string `json:"transactionId"`
	SourceReferenceID     string `json:"sourceReferenceId"`
	ExternalReservationID string `json:"externalReservationId"`
}

// NewReservationConsumedEvent creates a new ReservationConsumedEvent
func NewReservationConsumedEvent(transactionID, sourceReferenceID, externalReservationID string) *ReservationConsumedEvent {
	return &ReservationConsumedEvent{
		BaseDomainEvent:       events.NewBase(EventTypeReservationConsumed, transactionID),
		TransactionID:         transactionID,
		SourceReferenceID:     sourceReferenceID,
		ExternalReservationID: externalReservationID,
	}
}

// ReservationReleasedEvent is raised when reserved stock is returned to
// the pool as compensation
type ReservationReleasedEvent struct {
	events.BaseDomainEvent
	TransactionID         string `json:"transactionId"`
	SourceReferenceID     string `json:"sourceReferenceId"`
	ExternalReservationID string `json:"externalReservationId"`
}

// NewReservationReleasedEvent creates a new ReservationReleasedEvent
func NewReservationReleasedEvent(transactionID, sourceReferenceID, externalReservationID string) *ReservationReleasedEvent {
	return &ReservationReleasedEvent{
		BaseDomainEvent:       events.NewBase(EventTypeReservationReleased, transactionID),
		TransactionID:         transactionID,
		SourceReferenceID:     sourceReferenceID,
		ExternalReservationID: externalReservationID,
	}
}

// InventoryIncreasedEvent carries the stock delta of a completed
// inbound transaction
type InventoryIncreasedEvent struct {
	events.BaseDomainEvent
	TransactionID string            `json:"transactionId"`
	WarehouseID   string            `json:"warehouseId"`
	Lines         []TransactionLine `json:"lines"`
}

// NewInventoryIncreasedEvent creates a new InventoryIncreasedEvent
func NewInventoryIncreasedEvent(transactionID, warehouseID string, lines []TransactionLine) *InventoryIncreasedEvent {
	return &InventoryIncreasedEvent{
		BaseDomainEvent: events.NewBase(EventTypeInventoryIncreased, transactionID),
		TransactionID:   transactionID,
		WarehouseID:     warehouseID,
		Lines:           lines,
	}
}

// InventoryDecreasedEvent carries the stock delta of a completed
// outbound transaction
type InventoryDecreasedEvent struct {
	events.BaseDomainEvent
	TransactionID string            `json:"transactionId"`
	WarehouseID   string            `json:"warehouseId"`
	Lines         []TransactionLine `json:"lines"`
}

// NewInventoryDecreasedEvent creates a new InventoryDecreasedEvent
func NewInventoryDecreasedEvent(transactionID, warehouseID string, lines []TransactionLine) *InventoryDecreasedEvent {
	return &InventoryDecreasedEvent{
		BaseDomainEvent: events.NewBase(EventTypeInventoryDecreased, transactionID),
		TransactionID:   transactionID,
		WarehouseID:     warehouseID,
		Lines:           lines,
	}
}

// InventoryAdjustedEvent carries the signed stock delta of a completed
// adjustment transaction
type InventoryAdjustedEvent struct {
	events.BaseDomainEvent
	TransactionID string            `json:"transactionId"`
	WarehouseID   string            `json:"warehouseId"`
	Lines         []TransactionLine `json:"lines"`
}

// NewInventoryAdjustedEvent creates a new InventoryAdjustedEvent
func NewInventoryAdjustedEvent(transactionID, warehouseID string, lines []TransactionLine) *InventoryAdjustedEvent {
	return &InventoryAdjustedEvent{
		BaseDomainEvent: events.NewBase(EventTypeInventoryAdjusted, transactionID),
		TransactionID:   transactionID,
		WarehouseID:     warehouseID,
		Lines:           lines,
	}
}

// InventoryTransactionCreatedEvent is raised when a transaction is created
type InventoryTransactionCreatedEvent struct {
	events.BaseDomainEvent
	TransactionID     string            `json:"transactionId"`
	TransactionType   TransactionType   `json:"transactionType"`
	SourceReferenceID string            `json:"sourceReferenceId"`
	Source            TransactionSource `json:"source"`
}

// NewInventoryTransactionCreatedEvent creates a new InventoryTransactionCreatedEvent
func NewInventoryTransactionCreatedEvent(transactionID string, txType TransactionType, sourceReferenceID string, source TransactionSource) *InventoryTransactionCreatedEvent {
	return &InventoryTransactionCreatedEvent{
		BaseDomainEvent:   events.NewBase(EventTypeTransactionCreated, transactionID),
		TransactionID:     transactionID,
		TransactionType:   txType,
		SourceReferenceID: sourceReferenceID,
		Source:            source,
	}
}

// InventoryTransactionCompletedEvent terminates a transaction's event stream
type InventoryTransactionCompletedEvent struct {
	events.BaseDomainEvent
	TransactionID     string            `json:"transactionId"`
	TransactionType   TransactionType   `json:"transactionType"`
	Source            TransactionSource `json:"source"`
	SourceReferenceID string            `json:"sourceReferenceId"`
}

// NewInventoryTransactionCompletedEvent creates a new InventoryTransactionCompletedEvent
func NewInventoryTransactionCompletedEvent(transactionID string, txType TransactionType, source TransactionSource, sourceReferenceID string) *InventoryTransactionCompletedEvent {
	return &InventoryTransactionCompletedEvent{
		BaseDomainEvent:   events.NewBase(EventTypeTransactionCompleted, transactionID),
		TransactionID:     transactionID,
		TransactionType:   txType,
		Source:            source,
		SourceReferenceID: sourceReferenceID,
	}
}

// InventoryTransactionFailedEvent is raised when a transaction fails
type InventoryTransactionFailedEvent struct {
	events.BaseDomainEvent
	TransactionID   string            `json:"transactionId"`
	TransactionType TransactionType   `json:"transactionType"`
	Source          TransactionSource `json:"source"`
	Reason          string            `json:"reason"`
}

// NewInventoryTransactionFailedEvent creates a new InventoryTransactionFailedEvent
func NewInventoryTransactionFailedEvent(transactionID string, txType TransactionType, source TransactionSource, reason string) *InventoryTransactionFailedEvent {
	return &InventoryTransactionFailedEvent{
		BaseDomainEvent: events.NewBase(EventTypeTransactionFailed, transactionID),
		TransactionID:   transactionID,
		TransactionType: txType,
		Source:          source,
		Reason:          reason,
	}
}

// InventoryDiscrepancyDetectedEvent is raised once per detection run
// that found at least one discrepancy
type InventoryDiscrepancyDetectedEvent struct {
	events.BaseDomainEvent
	AdjustmentID string           `json:"adjustmentId"`
	Logs         []DiscrepancyLog `json:"logs"`
}

// NewInventoryDiscrepancyDetectedEvent creates a new InventoryDiscrepancyDetectedEvent
func NewInventoryDiscrepancyDetectedEvent(adjustmentID string, logs []DiscrepancyLog) *InventoryDiscrepancyDetectedEvent {
	return &InventoryDiscrepancyDetectedEvent{
		BaseDomainEvent: events.NewBase(EventTypeDiscrepancyDetected, adjustmentID),
		AdjustmentID:    adjustmentID,
		Logs:            logs,
	}
}

// InventoryAdjustmentAppliedEvent is raised when an adjustment's
// correcting transaction has been created
type InventoryAdjustmentAppliedEvent struct {
	events.BaseDomainEvent
	AdjustmentID  string `json:"adjustmentId"`
	TransactionID string `json:"transactionId"`
}

// NewInventoryAdjustmentAppliedEvent creates a new InventoryAdjustmentAppliedEvent
func NewInventoryAdjustmentAppliedEvent(adjustmentID, transactionID string) *InventoryAdjustmentAppliedEvent {
	return &InventoryAdjustmentAppliedEvent{
		BaseDomainEvent: events.NewBase(EventTypeAdjustmentApplied, adjustmentID),
		AdjustmentID:    adjustmentID,
		TransactionID:   transactionID,
	}
}
