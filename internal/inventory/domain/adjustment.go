package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/google/uuid"

	"github.com/levijcl/Wei-sub000/pkg/events"
)

// AdjustmentStatus is the reconciliation lifecycle state
type AdjustmentStatus string

const (
	AdjustmentPending    AdjustmentStatus = "PENDING"
	AdjustmentProcessing AdjustmentStatus = "PROCESSING"
	AdjustmentCompleted  AdjustmentStatus = "COMPLETED"
	AdjustmentFailed     AdjustmentStatus = "FAILED"
)

func (s AdjustmentStatus) canProcess() bool {
	return s == AdjustmentPending
}

func (s AdjustmentStatus) canComplete() bool {
	return s == AdjustmentProcessing
}

func (s AdjustmentStatus) canFail() bool {
	return s == AdjustmentPending || s == AdjustmentProcessing
}

// StockSnapshot is one (sku, warehouse, quantity) observation of a
// stock-keeping system
type StockSnapshot struct {
	SKU         string `bson:"sku" json:"sku"`
	Quantity    int    `bson:"quantity" json:"quantity"`
	WarehouseID string `bson:"warehouseId" json:"warehouseId"`
}

func (s StockSnapshot) key() string {
	return s.WarehouseID + ":" + s.SKU
}

// DiscrepancyLog records one mismatch between the local stock view and
// the warehouse execution system's view. Difference is actual minus
// expected: negative means understock.
type DiscrepancyLog struct {
	SKU              string    `bson:"sku" json:"sku"`
	WarehouseID      string    `bson:"warehouseId" json:"warehouseId"`
	ExpectedQuantity int       `bson:"expectedQuantity" json:"expectedQuantity"`
	ActualQuantity   int       `bson:"actualQuantity" json:"actualQuantity"`
	Difference       int       `bson:"difference" json:"difference"`
	DetectedAt       time.Time `bson:"detectedAt" json:"detectedAt"`
}

// IsOverstock reports whether local stock exceeds the expected quantity
func (d DiscrepancyLog) IsOverstock() bool {
	return d.Difference > 0
}

// IsUnderstock reports whether local stock is below the expected quantity
func (d DiscrepancyLog) IsUnderstock() bool {
	return d.Difference < 0
}

func newDiscrepancyLog(sku, warehouseID string, expected, actual int) DiscrepancyLog {
	return DiscrepancyLog{
		SKU:              sku,
		WarehouseID:      warehouseID,
		ExpectedQuantity: expected,
		ActualQuantity:   actual,
		Difference:       actual - expected,
		DetectedAt:       time.Now().UTC(),
	}
}

// InventoryAdjustment reconciles the local stock view against the WES
// view. A sibling state machine to InventoryTransaction.
type InventoryAdjustment struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AdjustmentID         string             `bson:"adjustmentId" json:"adjustmentId"`
	Status               AdjustmentStatus   `bson:"status" json:"status"`
	DiscrepancyLogs      []DiscrepancyLog   `bson:"discrepancyLogs" json:"discrepancyLogs"`
	AppliedTransactionID string             `bson:"appliedTransactionId,omitempty" json:"appliedTransactionId,omitempty"`
	FailureReason        string             `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	ProcessedAt          *time.Time         `bson:"processedAt,omitempty" json:"processedAt,omitempty"`

	domainEvents []events.DomainEvent `bson:"-" json:"-"`
}

// DetectDiscrepancy diffs the local inventory snapshots (actual)
// against the WES snapshots (expected), keyed by (warehouse, sku).
// Entries present locally but absent in the WES view with a positive
// quantity are logged against an expected quantity of zero. Exactly one
// discrepancy event is raised when at least one log exists.
func DetectDiscrepancy(inventorySnapshots, wesSnapshots []StockSnapshot) *InventoryAdjustment {
	adjustment := &InventoryAdjustment{
		ID:              primitive.NewObjectID(),
		AdjustmentID:    uuid.New().String(),
		Status:          AdjustmentPending,
		DiscrepancyLogs: make([]DiscrepancyLog, 0),
		CreatedAt:       time.Now().UTC(),
	}

	inventoryByKey := make(map[string]StockSnapshot, len(inventorySnapshots))
	for _, snapshot := range inventorySnapshots {
		inventoryByKey[snapshot.key()] = snapshot
	}
	wesByKey := make(map[string]StockSnapshot, len(wesSnapshots))
	for _, snapshot := range wesSnapshots {
		wesByKey[snapshot.key()] = snapshot
	}

	for _, wesSnapshot := range wesSnapshots {
		expected := wesSnapshot.Quantity
		actual := 0
		if local, ok := inventoryByKey[wesSnapshot.key()]; ok {
			actual = local.Quantity
		}
		if expected != actual {
			adjustment.DiscrepancyLogs = append(adjustment.DiscrepancyLogs,
				newDiscrepancyLog(wesSnapshot.SKU, wesSnapshot.WarehouseID, expected, actual))
		}
	}

	for _, local := range inventorySnapshots {
		if _, ok := wesByKey[local.key()]; !ok && local.Quantity > 0 {
			adjustment.DiscrepancyLogs = append(adjustment.DiscrepancyLogs,
				newDiscrepancyLog(local.SKU, local.WarehouseID, 0, local.Quantity))
		}
	}

	if len(adjustment.DiscrepancyLogs) > 0 {
		adjustment.addDomainEvent(NewInventoryDiscrepancyDetectedEvent(adjustment.AdjustmentID, adjustment.DiscrepancyLogs))
	}

	return adjustment
}

// HasDiscrepancies reports whether the detection run found mismatches
func (a *InventoryAdjustment) HasDiscrepancies() bool {
	return len(a.DiscrepancyLogs) > 0
}

// MarkAsProcessing moves a PENDING adjustment to PROCESSING
func (a *InventoryAdjustment) MarkAsProcessing() error {
	if a.Status == AdjustmentProcessing {
		return nil
	}
	if !a.Status.canProcess() {
		return fmt.Errorf("%w: cannot process adjustment in status %s", ErrInvalidTransition, a.Status)
	}
	a.Status = AdjustmentProcessing
	return nil
}

// ApplyAdjustment binds the correcting transaction to the adjustment
func (a *InventoryAdjustment) ApplyAdjustment(transactionID string) error {
	if transactionID == "" {
		return ErrBlankSourceReference
	}
	if !a.Status.canProcess() && !a.Status.canComplete() {
		return fmt.Errorf("%w: cannot apply adjustment in status %s", ErrInvalidTransition, a.Status)
	}

	a.Status = AdjustmentProcessing
	a.AppliedTransactionID = transactionID
	a.addDomainEvent(NewInventoryAdjustmentAppliedEvent(a.AdjustmentID, transactionID))
	return nil
}

// Complete terminates a PROCESSING adjustment
func (a *InventoryAdjustment) Complete() error {
	if !a.Status.canComplete() {
		return fmt.Errorf("%w: cannot complete adjustment in status %s", ErrInvalidTransition, a.Status)
	}
	now := time.Now().UTC()
	a.Status = AdjustmentCompleted
	a.ProcessedAt = &now
	return nil
}

// Fail terminates the adjustment with a reason
func (a *InventoryAdjustment) Fail(reason string) error {
	if !a.Status.canFail() {
		return fmt.Errorf("%w: cannot fail adjustment in status %s", ErrInvalidTransition, a.Status)
	}
	now := time.Now().UTC()
	a.Status = AdjustmentFailed
	a.FailureReason = reason
	a.ProcessedAt = &now
	return nil
}

// GetDomainEvents returns the accumulated domain events
func (a *InventoryAdjustment) GetDomainEvents() []events.DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the accumulated domain events
func (a *InventoryAdjustment) ClearDomainEvents() {
	a.domainEvents = nil
}

func (a *InventoryAdjustment) addDomainEvent(event events.DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}
