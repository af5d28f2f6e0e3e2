package domain

import (
	invdomain "github.com/levijcl/Wei-sub000/internal/inventory/domain"
	"github.com/levijcl/Wei-sub000/pkg/events"
)

// Event types published by the observation context
const (
	EventTypeNewOrderObserved          = "fulfillment.observation.new-order-observed"
	EventTypeInventorySnapshotObserved = "fulfillment.observation.inventory-snapshot-observed"
)

// NewOrderObservedEvent is raised when polling finds an order this
// coordinator has no record of
type NewOrderObservedEvent struct {
	events.BaseDomainEvent
	ObserverID    string            `json:"observerId"`
	ObservedOrder ObservationResult `json:"observedOrder"`
}

// NewNewOrderObservedEvent creates a new NewOrderObservedEvent
func NewNewOrderObservedEvent(observerID string, observed ObservationResult) *NewOrderObservedEvent {
	return &NewOrderObservedEvent{
		BaseDomainEvent: events.NewBase(EventTypeNewOrderObserved, observed.OrderID),
		ObserverID:      observerID,
		ObservedOrder:   observed,
	}
}

// InventorySnapshotObservedEvent carries a full stock snapshot taken
// from the inventory system, feeding discrepancy detection
type InventorySnapshotObservedEvent struct {
	events.BaseDomainEvent
	ObserverID string                    `json:"observerId"`
	Snapshots  []invdomain.StockSnapshot `json:"snapshots"`
}

// NewInventorySnapshotObservedEvent creates a new InventorySnapshotObservedEvent
func NewInventorySnapshotObservedEvent(observerID string, snapshots []invdomain.StockSnapshot) *InventorySnapshotObservedEvent {
	return &InventorySnapshotObservedEvent{
		BaseDomainEvent: events.NewBase(EventTypeInventorySnapshotObserved, observerID),
		ObserverID:      observerID,
		Snapshots:       snapshots,
	}
}
