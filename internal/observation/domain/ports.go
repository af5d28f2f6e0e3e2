package domain

import (
	"context"
	"time"
)

// OrderSourcePort fetches orders from the external order source
type OrderSourcePort interface {
	// FetchNewOrders returns orders created at the source after since.
	// A nil since means fetch everything.
	FetchNewOrders(ctx context.Context, endpoint SourceEndpoint, since *time.Time) ([]ObservationResult, error)
}

// OrderObserverRepository persists order observer polling state
type OrderObserverRepository interface {
	Save(ctx context.Context, observer *OrderObserver) error
	FindByID(ctx context.Context, observerID string) (*OrderObserver, error)
	FindAll(ctx context.Context) ([]*OrderObserver, error)
}

// WesObserverRepository persists WES observer polling state
type WesObserverRepository interface {
	Save(ctx context.Context, observer *WesObserver) error
	FindByID(ctx context.Context, observerID string) (*WesObserver, error)
	FindAll(ctx context.Context) ([]*WesObserver, error)
}

// InventoryObserverRepository persists inventory observer polling state
type InventoryObserverRepository interface {
	Save(ctx context.Context, observer *InventoryObserver) error
	FindByID(ctx context.Context, observerID string) (*InventoryObserver, error)
	FindAll(ctx context.Context) ([]*InventoryObserver, error)
}
