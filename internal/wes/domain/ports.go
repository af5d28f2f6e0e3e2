package domain

import (
	"context"
)

// WesTaskDto is the external WES view of a task returned by polling
type WesTaskDto struct {
	WesTaskID string     `json:"wesTaskId"`
	Status    string     `json:"status"`
	Priority  int        `json:"priority"`
	Items     []TaskItem `json:"items"`
}

// WesPort is the outbound port to the warehouse execution system
type WesPort interface {
	// SubmitPickingTask hands a task to the WES and returns its
	// external id
	SubmitPickingTask(ctx context.Context, task *PickingTask) (string, error)

	// CancelTask requests cancellation of a task in the WES
	CancelTask(ctx context.Context, wesTaskID string) error

	// AdjustTaskPriority changes a task's priority in the WES
	AdjustTaskPriority(ctx context.Context, wesTaskID string, priority int) error

	// PollAllTasks returns the WES's current view of all tasks
	PollAllTasks(ctx context.Context) ([]WesTaskDto, error)

	// GetStockSnapshot returns the WES's stock view per sku/warehouse
	GetStockSnapshot(ctx context.Context) ([]StockLevel, error)
}

// StockLevel is the WES's stock count for one sku at one warehouse
type StockLevel struct {
	SKU         string `json:"sku"`
	WarehouseID string `json:"warehouseId"`
	Quantity    int    `json:"quantity"`
}

// PickingTaskRepository defines the interface for task persistence
type PickingTaskRepository interface {
	// Save persists a task (upsert)
	Save(ctx context.Context, task *PickingTask) error

	// FindByID retrieves a task by its TaskID
	FindByID(ctx context.Context, taskID string) (*PickingTask, error)

	// FindByWesTaskID retrieves a task by its external WES id
	FindByWesTaskID(ctx context.Context, wesTaskID string) (*PickingTask, error)

	// FindByOrderID retrieves all tasks created for an order
	FindByOrderID(ctx context.Context, orderID string) ([]*PickingTask, error)

	// FindByStatus retrieves tasks by status
	FindByStatus(ctx context.Context, status TaskStatus, limit int64) ([]*PickingTask, error)
}
