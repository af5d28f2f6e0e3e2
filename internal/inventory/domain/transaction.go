package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/google/uuid"

	"github.com/levijcl/Wei-sub000/pkg/events"
)

// Errors for InventoryTransaction aggregate
var (
	ErrBlankSourceReference = errors.New("source reference id cannot be blank")
	ErrNoTransactionLines   = errors.New("transaction must have at least one line")
	ErrNonPositiveQuantity  = errors.New("quantity must be positive")
	ErrZeroQuantity         = errors.New("quantity cannot be zero")
	ErrInvalidTransition    = errors.New("invalid transaction status transition")
	ErrNotReservation       = errors.New("only order reservation transactions can be marked as reserved")
	ErrNoExternalID         = errors.New("transaction has no external reservation id")
)

// TransactionType classifies the stock effect of a transaction
type TransactionType string

const (
	TypeInbound    TransactionType = "INBOUND"
	TypeOutbound   TransactionType = "OUTBOUND"
	TypeAdjustment TransactionType = "ADJUSTMENT"
)

// TransactionStatus is the transaction lifecycle state
type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "PENDING"
	TransactionProcessing TransactionStatus = "PROCESSING"
	TransactionCompleted  TransactionStatus = "COMPLETED"
	TransactionFailed     TransactionStatus = "FAILED"
)

// IsTerminal reports whether the status is final
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionCompleted || s == TransactionFailed
}

func (s TransactionStatus) canProcess() bool {
	return s == TransactionPending
}

func (s TransactionStatus) canComplete() bool {
	return s == TransactionProcessing
}

func (s TransactionStatus) canFail() bool {
	return s == TransactionPending || s == TransactionProcessing
}

// TransactionSource records the causal origin of a transaction
type TransactionSource string

const (
	SourceOrderReservation     TransactionSource = "ORDER_RESERVATION"
	SourceReservationConsumed  TransactionSource = "RESERVATION_CONSUMED"
	SourceReservationReleased  TransactionSource = "RESERVATION_RELEASED"
	SourcePickingTaskCompleted TransactionSource = "PICKING_TASK_COMPLETED"
	SourcePutawayTaskCompleted TransactionSource = "PUTAWAY_TASK_COMPLETED"
	SourceManualAdjustment     TransactionSource = "MANUAL_ADJUSTMENT"
	SourceCycleCountAdjustment TransactionSource = "CYCLE_COUNT_ADJUSTMENT"
	SourceOrderCancellation    TransactionSource = "ORDER_CANCELLATION"
)

// IsReservationRelated reports whether the source participates in the
// reservation protocol
func (s TransactionSource) IsReservationRelated() bool {
	return s == SourceOrderReservation || s == SourceReservationConsumed || s == SourceReservationReleased
}

// IsTaskRelated reports whether the source is a warehouse task outcome
func (s TransactionSource) IsTaskRelated() bool {
	return s == SourcePickingTaskCompleted || s == SourcePutawayTaskCompleted
}

// IsAdjustmentRelated reports whether the source is a stock adjustment
func (s TransactionSource) IsAdjustmentRelated() bool {
	return s == SourceManualAdjustment || s == SourceCycleCountAdjustment
}

// TransactionLine is one sku/quantity movement within a transaction
type TransactionLine struct {
	SKU      string `bson:"sku" json:"sku"`
	Quantity int    `bson:"quantity" json:"quantity"`
}

// InventoryTransaction records one movement or reservation of stock.
// Terminal transitions (complete, fail) are one-way.
type InventoryTransaction struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TransactionID         string             `bson:"transactionId" json:"transactionId"`
	Type                  TransactionType    `bson:"type" json:"type"`
	Status                TransactionStatus  `bson:"status" json:"status"`
	Source                TransactionSource  `bson:"source" json:"source"`
	SourceReferenceID     string             `bson:"sourceReferenceId" json:"sourceReferenceId"`
	WarehouseID           string             `bson:"warehouseId" json:"warehouseId"`
	Lines                 []TransactionLine  `bson:"lines" json:"lines"`
	ExternalReservationID string             `bson:"externalReservationId,omitempty" json:"externalReservationId,omitempty"`
	FailureReason         string             `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CreatedAt             time.Time          `bson:"createdAt" json:"createdAt"`
	CompletedAt           *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`

	domainEvents []events.DomainEvent `bson:"-" json:"-"`
}

func newTransaction(txType TransactionType, source TransactionSource, sourceReferenceID, warehouseID string, lines []TransactionLine) *InventoryTransaction {
	return &InventoryTransaction{
		ID:                primitive.NewObjectID(),
		TransactionID:     uuid.New().String(),
		Type:              txType,
		Status:            TransactionPending,
		Source:            source,
		SourceReferenceID: sourceReferenceID,
		WarehouseID:       warehouseID,
		Lines:             lines,
		CreatedAt:         time.Now().UTC(),
	}
}

// CreateReservation builds a PENDING reservation for one order line and
// immediately requests the external reservation via the emitted event.
func CreateReservation(orderID, sku, warehouseID string, quantity int) (*InventoryTransaction, error) {
	if orderID == "" {
		return nil, ErrBlankSourceReference
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w for reservation", ErrNonPositiveQuantity)
	}

	tx := newTransaction(TypeOutbound, SourceOrderReservation, orderID, warehouseID, []TransactionLine{{SKU: sku, Quantity: quantity}})
	tx.addDomainEvent(NewInventoryReservationRequestedEvent(tx.TransactionID, orderID, sku, warehouseID, quantity))
	return tx, nil
}

// CreateOutboundTransaction builds a PENDING outbound stock movement
func CreateOutboundTransaction(sourceReferenceID string, source TransactionSource, warehouseID string, lines []TransactionLine, externalReservationID string) (*InventoryTransaction, error) {
	if sourceReferenceID == "" {
		return nil, ErrBlankSourceReference
	}
	if len(lines) == 0 {
		return nil, ErrNoTransactionLines
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w for OUTBOUND transaction", ErrNonPositiveQuantity)
		}
	}

	tx := newTransaction(TypeOutbound, source, sourceReferenceID, warehouseID, lines)
	tx.ExternalReservationID = externalReservationID
	tx.addDomainEvent(NewInventoryTransactionCreatedEvent(tx.TransactionID, TypeOutbound, sourceReferenceID, source))
	return tx, nil
}

// CreateInboundTransaction builds a PENDING inbound stock movement
func CreateInboundTransaction(sourceReferenceID string, source TransactionSource, warehouseID string, lines []TransactionLine) (*InventoryTransaction, error) {
	if sourceReferenceID == "" {
		return nil, ErrBlankSourceReference
	}
	if len(lines) == 0 {
		return nil, ErrNoTransactionLines
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w for INBOUND transaction", ErrNonPositiveQuantity)
		}
	}

	tx := newTransaction(TypeInbound, source, sourceReferenceID, warehouseID, lines)
	tx.addDomainEvent(NewInventoryTransactionCreatedEvent(tx.TransactionID, TypeInbound, sourceReferenceID, source))
	return tx, nil
}

// CreateAdjustmentTransaction builds a PENDING adjustment; quantities
// are signed.
func CreateAdjustmentTransaction(sourceReferenceID string, source TransactionSource, warehouseID string, lines []TransactionLine) (*InventoryTransaction, error) {
	if sourceReferenceID == "" {
		return nil, ErrBlankSourceReference
	}
	if len(lines) == 0 {
		return nil, ErrNoTransactionLines
	}
	for _, line := range lines {
		if line.Quantity == 0 {
			return nil, ErrZeroQuantity
		}
	}

	tx := newTransaction(TypeAdjustment, source, sourceReferenceID, warehouseID, lines)
	tx.addDomainEvent(NewInventoryTransactionCreatedEvent(tx.TransactionID, TypeAdjustment, sourceReferenceID, source))
	return tx, nil
}

// MarkAsReserved records the external reservation outcome and completes
// the transaction. Legal only for PENDING order reservations;
// re-applying the same external id is a no-op.
func (t *InventoryTransaction) MarkAsReserved(externalReservationID string) error {
	if t.Source != SourceOrderReservation {
		return ErrNotReservation
	}
	if t.Status == TransactionCompleted && t.ExternalReservationID == externalReservationID {
		return nil
	}
	if t.Status != TransactionPending {
		return fmt.Errorf("%w: can only mark PENDING transaction as reserved, got %s", ErrInvalidTransition, t.Status)
	}

	now := time.Now().UTC()
	t.ExternalReservationID = externalReservationID
	t.Status = TransactionCompleted
	t.CompletedAt = &now
	t.addDomainEvent(NewInventoryReservedEvent(t.TransactionID, t.SourceReferenceID, externalReservationID))
	return nil
}

// MarkAsProcessing moves a PENDING transaction to PROCESSING
func (t *InventoryTransaction) MarkAsProcessing() error {
	if t.Status == TransactionProcessing {
		return nil
	}
	if !t.Status.canProcess() {
		return fmt.Errorf("%w: cannot process transaction in status %s", ErrInvalidTransition, t.Status)
	}
	t.Status = TransactionProcessing
	return nil
}

// Complete terminates a PROCESSING transaction. Events are emitted in a
// fixed order: the reservation-consumed marker when applicable, then
// the type-specific stock effect, then the completion event, so a
// single stock-effect listener can apply the delta without knowing the
// source.
func (t *InventoryTransaction) Complete() error {
	if !t.Status.canComplete() {
		return fmt.Errorf("%w: cannot complete transaction in status %s", ErrInvalidTransition, t.Status)
	}

	now := time.Now().UTC()
	t.Status = TransactionCompleted
	t.CompletedAt = &now

	switch t.Type {
	case TypeInbound:
		t.addDomainEvent(NewInventoryIncreasedEvent(t.TransactionID, t.WarehouseID, t.Lines))
	case TypeOutbound:
		if t.Source == SourceReservationConsumed && t.ExternalReservationID != "" {
			t.addDomainEvent(NewReservationConsumedEvent(t.TransactionID, t.SourceReferenceID, t.ExternalReservationID))
		}
		t.addDomainEvent(NewInventoryDecreasedEvent(t.TransactionID, t.WarehouseID, t.Lines))
	case TypeAdjustment:
		t.addDomainEvent(NewInventoryAdjustedEvent(t.TransactionID, t.WarehouseID, t.Lines))
	}

	t.addDomainEvent(NewInventoryTransactionCompletedEvent(t.TransactionID, t.Type, t.Source, t.SourceReferenceID))
	return nil
}

// Fail terminates the transaction with a reason. Reservation-sourced
// failures additionally emit ReservationFailed first, the event the
// order saga reacts to.
func (t *InventoryTransaction) Fail(reason string) error {
	if !t.Status.canFail() {
		return fmt.Errorf("%w: cannot fail transaction in status %s", ErrInvalidTransition, t.Status)
	}

	now := time.Now().UTC()
	t.Status = TransactionFailed
	t.FailureReason = reason
	t.CompletedAt = &now

	if t.Source == SourceOrderReservation {
		t.addDomainEvent(NewReservationFailedEvent(t.TransactionID, t.SourceReferenceID, reason))
	}
	t.addDomainEvent(NewInventoryTransactionFailedEvent(t.TransactionID, t.Type, t.Source, reason))
	return nil
}

// ReleaseReservation returns reserved stock to the pool as a
// compensation step, completing the transaction.
func (t *InventoryTransaction) ReleaseReservation() error {
	if t.ExternalReservationID == "" {
		return ErrNoExternalID
	}
	if t.Status == TransactionFailed {
		return fmt.Errorf("%w: cannot release reservation in status %s", ErrInvalidTransition, t.Status)
	}

	now := time.Now().UTC()
	t.Status = TransactionCompleted
	t.CompletedAt = &now

	t.addDomainEvent(NewReservationReleasedEvent(t.TransactionID, t.SourceReferenceID, t.ExternalReservationID))
	t.addDomainEvent(NewInventoryTransactionCompletedEvent(t.TransactionID, t.Type, SourceReservationReleased, t.SourceReferenceID))
	return nil
}

// GetDomainEvents returns the accumulated domain events
func (t *InventoryTransaction) GetDomainEvents() []events.DomainEvent {
	return t.domainEvents
}

// ClearDomainEvents clears the accumulated domain events
func (t *InventoryTransaction) ClearDomainEvents() {
	t.domainEvents = nil
}

func (t *InventoryTransaction) addDomainEvent(event events.DomainEvent) {
	t.domainEvents = append(t.domainEvents, event)
}
