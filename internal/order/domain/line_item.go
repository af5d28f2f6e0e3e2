package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors for line item sub-state transitions
var (
	ErrLineAlreadyReserved  = errors.New("line item is already reserved")
	ErrLineNotReserved      = errors.New("line item is not reserved")
	ErrLineAlreadyCommitted = errors.New("line item is already committed")
	ErrBlankTransactionID   = errors.New("transaction id cannot be blank")
	ErrBlankReservationID   = errors.New("external reservation id cannot be blank")
	ErrBlankWarehouseID     = errors.New("warehouse id cannot be blank")
	ErrBlankFailureReason   = errors.New("failure reason cannot be blank")
)

// ReservationStatus is the per-line reservation sub-state
type ReservationStatus string

const (
	ReservationReserved ReservationStatus = "RESERVED"
	ReservationFailed   ReservationStatus = "FAILED"
)

// CommitmentStatus is the per-line commitment sub-state
type CommitmentStatus string

const (
	CommitmentInProgress CommitmentStatus = "IN_PROGRESS"
	CommitmentCompleted  CommitmentStatus = "COMPLETED"
	CommitmentFailed     CommitmentStatus = "FAILED"
)

// ReservationInfo records the outcome of reserving one line item.
// Nil on the line item means reservation has not been attempted.
type ReservationInfo struct {
	Status                ReservationStatus `bson:"status" json:"status"`
	TransactionID         string            `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	ExternalReservationID string            `bson:"externalReservationId,omitempty" json:"externalReservationId,omitempty"`
	WarehouseID           string            `bson:"warehouseId,omitempty" json:"warehouseId,omitempty"`
	FailureReason         string            `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	ReservedAt            time.Time         `bson:"reservedAt" json:"reservedAt"`
}

// IsReserved reports whether the line carries a successful reservation
func (r *ReservationInfo) IsReserved() bool {
	return r != nil && r.Status == ReservationReserved
}

// IsFailed reports whether the reservation attempt failed
func (r *ReservationInfo) IsFailed() bool {
	return r != nil && r.Status == ReservationFailed
}

// CommitmentInfo records the picking/commitment progress of one line
// item. Nil means picking has not started.
type CommitmentInfo struct {
	Status           CommitmentStatus `bson:"status" json:"status"`
	PickingTaskID    string           `bson:"pickingTaskId,omitempty" json:"pickingTaskId,omitempty"`
	WesTransactionID string           `bson:"wesTransactionId,omitempty" json:"wesTransactionId,omitempty"`
	FailureReason    string           `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CommittedAt      time.Time        `bson:"committedAt" json:"committedAt"`
}

// IsCommitted reports whether the line's stock consumption completed
func (c *CommitmentInfo) IsCommitted() bool {
	return c != nil && c.Status == CommitmentCompleted
}

// IsFailed reports whether picking for the line failed
func (c *CommitmentInfo) IsFailed() bool {
	return c != nil && c.Status == CommitmentFailed
}

// OrderLineItem is one orderable line of an Order. The two sub-records
// advance independently: reservation first, commitment once picking runs.
type OrderLineItem struct {
	LineItemID      string           `bson:"lineItemId" json:"lineItemId"`
	SKU             string           `bson:"sku" json:"sku"`
	Quantity        int              `bson:"quantity" json:"quantity"`
	Price           float64          `bson:"price" json:"price"`
	ReservationInfo *ReservationInfo `bson:"reservationInfo,omitempty" json:"reservationInfo,omitempty"`
	CommitmentInfo  *CommitmentInfo  `bson:"commitmentInfo,omitempty" json:"commitmentInfo,omitempty"`
}

// NewOrderLineItem creates a line item with a generated id
func NewOrderLineItem(sku string, quantity int, price float64) OrderLineItem {
	return OrderLineItem{
		LineItemID: uuid.New().String(),
		SKU:        sku,
		Quantity:   quantity,
		Price:      price,
	}
}

// Reserve records a successful reservation. Re-applying the same
// transaction id is a no-op so redelivered events converge.
func (li *OrderLineItem) Reserve(transactionID, externalReservationID, warehouseID string) error {
	if transactionID == "" {
		return ErrBlankTransactionID
	}
	if externalReservationID == "" {
		return ErrBlankReservationID
	}
	if warehouseID == "" {
		return ErrBlankWarehouseID
	}
	if li.ReservationInfo.IsReserved() {
		if li.ReservationInfo.TransactionID == transactionID {
			return nil
		}
		return ErrLineAlreadyReserved
	}
	li.ReservationInfo = &ReservationInfo{
		Status:                ReservationReserved,
		TransactionID:         transactionID,
		ExternalReservationID: externalReservationID,
		WarehouseID:           warehouseID,
		ReservedAt:            time.Now().UTC(),
	}
	return nil
}

// MarkReservationFailed records a failed reservation attempt. A line
// that already holds a successful reservation cannot be failed.
func (li *OrderLineItem) MarkReservationFailed(reason string) error {
	if reason == "" {
		return ErrBlankFailureReason
	}
	if li.ReservationInfo.IsReserved() {
		return ErrLineAlreadyReserved
	}
	li.ReservationInfo = &ReservationInfo{
		Status:        ReservationFailed,
		FailureReason: reason,
		ReservedAt:    time.Now().UTC(),
	}
	return nil
}

// MarkPickingInProgress records that a picking task covers this line
func (li *OrderLineItem) MarkPickingInProgress(pickingTaskID string) {
	if li.CommitmentInfo.IsCommitted() {
		return
	}
	li.CommitmentInfo = &CommitmentInfo{
		Status:        CommitmentInProgress,
		PickingTaskID: pickingTaskID,
	}
}

// Commit records completed stock consumption for this line.
// Re-applying the same WES transaction id is a no-op.
func (li *OrderLineItem) Commit(wesTransactionID string) error {
	if !li.ReservationInfo.IsReserved() {
		return ErrLineNotReserved
	}
	if li.CommitmentInfo.IsCommitted() {
		if li.CommitmentInfo.WesTransactionID == wesTransactionID {
			return nil
		}
		return ErrLineAlreadyCommitted
	}
	pickingTaskID := ""
	if li.CommitmentInfo != nil {
		pickingTaskID = li.CommitmentInfo.PickingTaskID
	}
	li.CommitmentInfo = &CommitmentInfo{
		Status:           CommitmentCompleted,
		PickingTaskID:    pickingTaskID,
		WesTransactionID: wesTransactionID,
		CommittedAt:      time.Now().UTC(),
	}
	return nil
}

// MarkCommitmentFailed records failed picking for this line
func (li *OrderLineItem) MarkCommitmentFailed(reason string) error {
	if li.CommitmentInfo.IsCommitted() {
		return ErrLineAlreadyCommitted
	}
	pickingTaskID := ""
	if li.CommitmentInfo != nil {
		pickingTaskID = li.CommitmentInfo.PickingTaskID
	}
	li.CommitmentInfo = &CommitmentInfo{
		Status:        CommitmentFailed,
		PickingTaskID: pickingTaskID,
		FailureReason: reason,
	}
	return nil
}

// IsReserved reports whether this line holds a successful reservation
func (li *OrderLineItem) IsReserved() bool {
	return li.ReservationInfo.IsReserved()
}

// IsCommitted reports whether this line's commitment completed
func (li *OrderLineItem) IsCommitted() bool {
	return li.CommitmentInfo.IsCommitted()
}

// HasReservationFailed reports whether reservation failed for this line
func (li *OrderLineItem) HasReservationFailed() bool {
	return li.ReservationInfo.IsFailed()
}

// HasCommitmentFailed reports whether picking failed for this line
func (li *OrderLineItem) HasCommitmentFailed() bool {
	return li.CommitmentInfo.IsFailed()
}
