package domain

import (
	"context"
	"errors"
)

// Errors returned by InventoryPort implementations
var (
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrReservationNotFound   = errors.New("reservation not found")
)

// InventoryPort is the outbound port to the external inventory system
type InventoryPort interface {
	// CreateReservation reserves stock externally and returns the
	// external reservation id
	CreateReservation(ctx context.Context, sku, warehouseID, orderID string, quantity int) (string, error)

	// ConsumeReservation consumes a previously created reservation
	ConsumeReservation(ctx context.Context, externalReservationID string) error

	// ReleaseReservation returns reserved stock to the pool
	ReleaseReservation(ctx context.Context, externalReservationID string) error

	// IncreaseInventory adds stock at a warehouse
	IncreaseInventory(ctx context.Context, sku, warehouseID string, quantity int) error

	// AdjustInventory applies a signed stock correction
	AdjustInventory(ctx context.Context, sku, warehouseID string, quantity int) error

	// GetInventorySnapshot returns the external system's stock view
	GetInventorySnapshot(ctx context.Context) ([]StockSnapshot, error)
}

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	// Save persists a transaction (upsert)
	Save(ctx context.Context, tx *InventoryTransaction) error

	// FindByID retrieves a transaction by its TransactionID
	FindByID(ctx context.Context, transactionID string) (*InventoryTransaction, error)

	// FindBySourceReference retrieves transactions for an order or task
	FindBySourceReference(ctx context.Context, sourceReferenceID string) ([]*InventoryTransaction, error)

	// FindByStatus retrieves transactions by status
	FindByStatus(ctx context.Context, status TransactionStatus, limit int64) ([]*InventoryTransaction, error)
}

// AdjustmentRepository defines the interface for adjustment persistence
type AdjustmentRepository interface {
	// Save persists an adjustment (upsert)
	Save(ctx context.Context, adjustment *InventoryAdjustment) error

	// FindByID retrieves an adjustment by its AdjustmentID
	FindByID(ctx context.Context, adjustmentID string) (*InventoryAdjustment, error)

	// FindByStatus retrieves adjustments by status
	FindByStatus(ctx context.Context, status AdjustmentStatus, limit int64) ([]*InventoryAdjustment, error)
}
