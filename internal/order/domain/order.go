package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/levijcl/Wei-sub000/pkg/events"
)

// Errors for Order aggregate
var (
	ErrNoLineItems       = errors.New("order must have at least one line item")
	ErrLineItemNotFound  = errors.New("line item not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNilPickupTime     = errors.New("scheduled pickup time cannot be zero")
	ErrNegativeLeadTime  = errors.New("fulfillment lead time cannot be negative")
)

// Status represents the order-level rollup status
type Status string

const (
	StatusCreated             Status = "CREATED"
	StatusScheduled           Status = "SCHEDULED"
	StatusAwaitingFulfillment Status = "AWAITING_FULFILLMENT"
	StatusPartiallyReserved   Status = "PARTIALLY_RESERVED"
	StatusReserved            Status = "RESERVED"
	StatusPartiallyCommitted  Status = "PARTIALLY_COMMITTED"
	StatusCommitted           Status = "COMMITTED"
	StatusShipped             Status = "SHIPPED"
	StatusFailedToReserve     Status = "FAILED_TO_RESERVE"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusScheduled, StatusAwaitingFulfillment,
		StatusPartiallyReserved, StatusReserved, StatusPartiallyCommitted,
		StatusCommitted, StatusShipped, StatusFailedToReserve:
		return true
	default:
		return false
	}
}

// ShipmentInfo carries carrier details recorded when the order ships
type ShipmentInfo struct {
	Carrier        string `bson:"carrier" json:"carrier"`
	TrackingNumber string `bson:"trackingNumber" json:"trackingNumber"`
}

// DefaultFulfillmentLeadTime is applied when an order is scheduled
// without an explicit lead time.
const DefaultFulfillmentLeadTime = 2 * time.Hour

// Order is the aggregate root for the fulfillment bounded context. Its
// status is always the rollup of line-item sub-states except for the
// explicit transitions (schedule, commit, ship, failed-to-reserve).
type Order struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID             string             `bson:"orderId" json:"orderId"`
	Status              Status             `bson:"status" json:"status"`
	LineItems           []OrderLineItem    `bson:"lineItems" json:"lineItems"`
	ScheduledPickupTime *time.Time         `bson:"scheduledPickupTime,omitempty" json:"scheduledPickupTime,omitempty"`
	FulfillmentLeadTime time.Duration      `bson:"fulfillmentLeadTimeNs,omitempty" json:"fulfillmentLeadTime,omitempty"`
	ShipmentInfo        *ShipmentInfo      `bson:"shipmentInfo,omitempty" json:"shipmentInfo,omitempty"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Domain events - transient, not persisted
	domainEvents []events.DomainEvent `bson:"-" json:"-"`
}

// NewOrder creates an Order in CREATED with the given line items
func NewOrder(orderID string, lineItems []OrderLineItem) (*Order, error) {
	if len(lineItems) == 0 {
		return nil, ErrNoLineItems
	}

	now := time.Now().UTC()
	return &Order{
		ID:           primitive.NewObjectID(),
		OrderID:      orderID,
		Status:       StatusCreated,
		LineItems:    lineItems,
		CreatedAt:    now,
		UpdatedAt:    now,
		domainEvents: make([]events.DomainEvent, 0),
	}, nil
}

// ScheduleForLaterFulfillment parks a CREATED order until its pickup
// window opens.
func (o *Order) ScheduleForLaterFulfillment(pickupTime time.Time, leadTime time.Duration) error {
	if o.Status != StatusCreated {
		return fmt.Errorf("%w: cannot schedule order in status %s", ErrInvalidTransition, o.Status)
	}
	if pickupTime.IsZero() {
		return ErrNilPickupTime
	}
	if leadTime < 0 {
		return ErrNegativeLeadTime
	}
	if leadTime == 0 {
		leadTime = DefaultFulfillmentLeadTime
	}

	o.ScheduledPickupTime = &pickupTime
	o.FulfillmentLeadTime = leadTime
	o.Status = StatusScheduled
	o.touch()
	o.addDomainEvent(NewOrderScheduledEvent(o.OrderID, pickupTime))
	return nil
}

// IsReadyForFulfillment reports whether a SCHEDULED order's fulfillment
// window has opened at the given time.
func (o *Order) IsReadyForFulfillment(now time.Time) bool {
	if o.Status != StatusScheduled {
		return false
	}
	if o.ScheduledPickupTime == nil {
		return false
	}
	start := o.ScheduledPickupTime.Add(-o.FulfillmentLeadTime)
	return !now.Before(start)
}

// MarkReadyForFulfillment promotes the order to AWAITING_FULFILLMENT,
// the state from which reservations are requested. Idempotent.
func (o *Order) MarkReadyForFulfillment() error {
	if o.Status == StatusAwaitingFulfillment {
		return nil
	}
	if o.Status != StatusCreated && o.Status != StatusScheduled {
		return fmt.Errorf("%w: cannot mark order ready for fulfillment in status %s", ErrInvalidTransition, o.Status)
	}
	o.Status = StatusAwaitingFulfillment
	o.touch()
	o.addDomainEvent(NewOrderReadyForFulfillmentEvent(o.OrderID))
	return nil
}

// ReserveLineItem records a successful reservation for one line item
// and re-derives the order status.
func (o *Order) ReserveLineItem(lineItemID, transactionID, externalReservationID, warehouseID string) error {
	item, err := o.findLineItem(lineItemID)
	if err != nil {
		return err
	}
	if err := item.Reserve(transactionID, externalReservationID, warehouseID); err != nil {
		return err
	}
	o.rollupStatus()
	o.touch()
	return nil
}

// MarkLineReservationFailed records a failed reservation for one line
// item and re-derives the order status.
func (o *Order) MarkLineReservationFailed(lineItemID, reason string) error {
	item, err := o.findLineItem(lineItemID)
	if err != nil {
		return err
	}
	if err := item.MarkReservationFailed(reason); err != nil {
		return err
	}
	o.rollupStatus()
	o.touch()
	return nil
}

// MarkAsFailedToReserve is the compensating transition taken when every
// line item failed reservation. Re-applying it is a no-op.
func (o *Order) MarkAsFailedToReserve(reason string) error {
	if o.Status == StatusFailedToReserve {
		return nil
	}
	if o.Status != StatusAwaitingFulfillment {
		return fmt.Errorf("%w: cannot mark order failed to reserve in status %s", ErrInvalidTransition, o.Status)
	}
	o.Status = StatusFailedToReserve
	o.touch()
	o.addDomainEvent(NewOrderReservationFailedEvent(o.OrderID, reason))
	return nil
}

// MarkItemsAsPickingInProgress flags commitment IN_PROGRESS for lines
// matching the given skus. Unmatched skus are ignored since a task may
// cover a subset of the order.
func (o *Order) MarkItemsAsPickingInProgress(skus []string, pickingTaskID string) {
	for i := range o.LineItems {
		if containsSKU(skus, o.LineItems[i].SKU) {
			o.LineItems[i].MarkPickingInProgress(pickingTaskID)
		}
	}
	o.touch()
}

// MarkItemsAsPickingCompleted completes commitment for lines matching
// the given skus and re-derives the order status.
func (o *Order) MarkItemsAsPickingCompleted(skus []string, wesTransactionID string) error {
	for i := range o.LineItems {
		if !containsSKU(skus, o.LineItems[i].SKU) {
			continue
		}
		if err := o.LineItems[i].Commit(wesTransactionID); err != nil {
			return fmt.Errorf("committing line %s: %w", o.LineItems[i].LineItemID, err)
		}
	}
	o.rollupStatus()
	o.touch()
	return nil
}

// MarkItemsAsPickingFailed fails commitment for lines matching the
// given skus.
func (o *Order) MarkItemsAsPickingFailed(skus []string, reason string) error {
	for i := range o.LineItems {
		if !containsSKU(skus, o.LineItems[i].SKU) {
			continue
		}
		if err := o.LineItems[i].MarkCommitmentFailed(reason); err != nil {
			return fmt.Errorf("failing line %s: %w", o.LineItems[i].LineItemID, err)
		}
	}
	o.rollupStatus()
	o.touch()
	return nil
}

// MarkItemsAsPickingCanceled records canceled picking as a commitment
// failure carrying the cancellation reason.
func (o *Order) MarkItemsAsPickingCanceled(skus []string, reason string) error {
	return o.MarkItemsAsPickingFailed(skus, reason)
}

// CommitOrder moves a RESERVED order to COMMITTED. Idempotent.
func (o *Order) CommitOrder() error {
	if o.Status == StatusCommitted {
		return nil
	}
	if o.Status != StatusReserved {
		return fmt.Errorf("%w: cannot commit order in status %s", ErrInvalidTransition, o.Status)
	}
	o.Status = StatusCommitted
	o.touch()
	return nil
}

// MarkAsShipped terminates a COMMITTED order. Idempotent.
func (o *Order) MarkAsShipped(info ShipmentInfo) error {
	if o.Status == StatusShipped {
		return nil
	}
	if o.Status != StatusCommitted {
		return fmt.Errorf("%w: cannot mark order shipped in status %s", ErrInvalidTransition, o.Status)
	}
	o.ShipmentInfo = &info
	o.Status = StatusShipped
	o.touch()
	return nil
}

// IsFullyReserved reports whether every line holds a reservation
func (o *Order) IsFullyReserved() bool {
	if len(o.LineItems) == 0 {
		return false
	}
	for i := range o.LineItems {
		if !o.LineItems[i].IsReserved() {
			return false
		}
	}
	return true
}

// IsPartiallyReserved reports whether some but not all lines are reserved
func (o *Order) IsPartiallyReserved() bool {
	if o.IsFullyReserved() {
		return false
	}
	for i := range o.LineItems {
		if o.LineItems[i].IsReserved() {
			return true
		}
	}
	return false
}

// HasAnyReservationFailed reports whether any line failed reservation
func (o *Order) HasAnyReservationFailed() bool {
	for i := range o.LineItems {
		if o.LineItems[i].HasReservationFailed() {
			return true
		}
	}
	return false
}

// IsFullyCommitted reports whether every line's commitment completed
func (o *Order) IsFullyCommitted() bool {
	if len(o.LineItems) == 0 {
		return false
	}
	for i := range o.LineItems {
		if !o.LineItems[i].IsCommitted() {
			return false
		}
	}
	return true
}

// IsPartiallyCommitted reports whether some but not all lines committed
func (o *Order) IsPartiallyCommitted() bool {
	if o.IsFullyCommitted() {
		return false
	}
	for i := range o.LineItems {
		if o.LineItems[i].IsCommitted() {
			return true
		}
	}
	return false
}

// ReservedLineItems returns the lines holding a successful reservation
func (o *Order) ReservedLineItems() []OrderLineItem {
	reserved := make([]OrderLineItem, 0, len(o.LineItems))
	for i := range o.LineItems {
		if o.LineItems[i].IsReserved() {
			reserved = append(reserved, o.LineItems[i])
		}
	}
	return reserved
}

// FindLineItemBySKU returns the first line with the given sku
func (o *Order) FindLineItemBySKU(sku string) (*OrderLineItem, bool) {
	for i := range o.LineItems {
		if o.LineItems[i].SKU == sku {
			return &o.LineItems[i], true
		}
	}
	return nil, false
}

// DeriveStatus computes the rollup status for a set of line items.
// Commitment outranks reservation; when neither applies the current
// status is kept.
func DeriveStatus(current Status, lineItems []OrderLineItem) Status {
	o := Order{Status: current, LineItems: lineItems}
	switch {
	case o.IsFullyCommitted():
		return StatusCommitted
	case o.IsPartiallyCommitted():
		return StatusPartiallyCommitted
	case o.IsFullyReserved():
		return StatusReserved
	case o.IsPartiallyReserved():
		return StatusPartiallyReserved
	default:
		return current
	}
}

// rollupStatus re-derives the order status and raises OrderReserved on
// the transition into RESERVED only, so redelivery cannot duplicate it.
func (o *Order) rollupStatus() {
	previous := o.Status
	o.Status = DeriveStatus(o.Status, o.LineItems)
	if o.Status == StatusReserved && previous != StatusReserved {
		o.addDomainEvent(NewOrderReservedEvent(o.OrderID, o.reservedLineItemIDs()))
	}
}

func (o *Order) reservedLineItemIDs() []string {
	ids := make([]string, 0, len(o.LineItems))
	for i := range o.LineItems {
		if o.LineItems[i].IsReserved() {
			ids = append(ids, o.LineItems[i].LineItemID)
		}
	}
	return ids
}

func (o *Order) findLineItem(lineItemID string) (*OrderLineItem, error) {
	for i := range o.LineItems {
		if o.LineItems[i].LineItemID == lineItemID {
			return &o.LineItems[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLineItemNotFound, lineItemID)
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func containsSKU(skus []string, sku string) bool {
	for _, s := range skus {
		if s == sku {
			return true
		}
	}
	return false
}

// GetDomainEvents returns the accumulated domain events
func (o *Order) GetDomainEvents() []events.DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears the accumulated domain events
func (o *Order) ClearDomainEvents() {
	o.domainEvents = nil
}

func (o *Order) addDomainEvent(event events.DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}
