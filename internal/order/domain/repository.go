package domain

import (
	"context"
	"time"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Save persists an order (upsert)
	Save(ctx context.Context, order *Order) error

	// FindByID retrieves an order by its OrderID
	FindByID(ctx context.Context, orderID string) (*Order, error)

	// FindByStatus retrieves orders by status
	FindByStatus(ctx context.Context, status Status, limit int64) ([]*Order, error)

	// FindScheduledBefore retrieves SCHEDULED orders whose fulfillment
	// window opens at or before the given time
	FindScheduledBefore(ctx context.Context, t time.Time, limit int64) ([]*Order, error)
}
