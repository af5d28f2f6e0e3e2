package domain

import (
	"github.com/levijcl/Wei-sub000/pkg/events"
)

// Event types published by the WES context
const (
	EventTypePickingTaskCreated          = "fulfillment.wes.task-created"
	EventTypePickingTaskSubmitted        = "fulfillment.wes.task-submitted"
	EventTypePickingTaskCompleted        = "fulfillment.wes.task-completed"
	EventTypePickingTaskFailed           = "fulfillment.wes.task-failed"
	EventTypePickingTaskCanceled         = "fulfillment.wes.task-canceled"
	EventTypePickingTaskPriorityAdjusted = "fulfillment.wes.task-priority-adjusted"
	EventTypeWesTaskDiscovered           = "fulfillment.wes.task-discovered"
	EventTypeWesTaskStatusUpdated        = "fulfillment.wes.task-status-updated"
)

// PickingTaskCreatedEvent is raised when a task aggregate is created
type PickingTaskCreatedEvent struct {
	events.BaseDomainEvent
	TaskID   string     `json:"taskId"`
	OrderID  string     `json:"orderId,omitempty"`
	Origin   TaskOrigin `json:"origin"`
	Priority int        `json:"priority"`
	Items    []TaskItem `json:"items"`
}

// NewPickingTaskCreatedEvent creates a new PickingTaskCreatedEvent
func NewPickingTaskCreatedEvent(task *PickingTask) *PickingTaskCreatedEvent {
	return &PickingTaskCreatedEvent{
		BaseDomainEvent: events.NewBase(EventTypePickingTaskCreated, task.TaskID),
		TaskID:          task.TaskID,
		OrderID:         task.OrderID,
		Origin:          task.Origin,
		Priority:        task.Priority,
		Items:           task.Items,
	}
}

// PickingTaskSubmittedEvent is raised when a task is handed to the WES
type PickingTaskSubmittedEvent struct {
	events.BaseDomainEvent
	TaskID    string   `json:"taskId"`
	OrderID   string   `json:"orderId,omitempty"`
	WesTaskID string   `json:"wesTaskId"`
	SKUs      []string `json:"skus"`
}

// NewPickingTaskSubmittedEvent creates a new PickingTaskSubmittedEvent
func NewPickingTaskSubmittedEvent(taskID, orderID, wesTaskID string, skus []string) *PickingTaskSubmittedEvent {
	return &PickingTaskSubmittedEvent{
		BaseDomainEvent: events.NewBase(EventTypePickingTaskSubmitted, taskID),
		TaskID:          taskID,
		OrderID:         orderID,
		WesTaskID:       wesTaskID,
		SKUs:            skus,
	}
}

// PickingTaskCompletedEvent is raised when picking finished successfully
type PickingTaskCompletedEvent struct {
	events.BaseDomainEvent
	TaskID    string   `json:"taskId"`
	WesTaskID string   `json:"wesTaskId,omitempty"`
	OrderID   string   `json:"orderId,omitempty"`
	SKUs      []string `json:"skus"`
}

// NewPickingTaskCompletedEvent creates a new PickingTaskCompletedEvent
func NewPickingTaskCompletedEvent(taskID, wesTaskID, orderID string, skus []string) *PickingTaskCompletedEvent {
	return &PickingTaskCompletedEvent{
		BaseDomainEvent: events.NewBase(EventTypePickingTaskCompleted, taskID),
		TaskID:          taskID,
		WesTaskID:       wesTaskID,
		OrderID:         orderID,
		SKUs:            skus,
	}
}

// PickingTaskFailedEvent is raised when picking failed
type PickingTaskFailedEvent struct {
	events.BaseDomainEvent
	TaskID    string   `json:"taskId"`
	WesTaskID string   `json:"wesTaskId,omitempty"`
	OrderID   string   `json:"orderId,omitempty"`
	Reason    string   `json:"reason"`
	SKUs      []string `json:"skus"`
}

// NewPickingTaskFailedEvent creates a new PickingTaskFailedEvent
func NewPickingTaskFailedEvent(taskID, wesTaskID, orderID, reason string, skus []string) *PickingTaskFailedEvent {
	return &PickingTaskFailedEvent{
		BaseDomainEvent: events.NewBase(EventTypePickingTaskFailed, taskID),
		TaskID:          taskID,
		WesTaskID:       wesTaskID,
		OrderID:         orderID,
		Reason:          reason,
		SKUs:            skus,
	}
}

// PickingTaskCanceledEvent is raised when a task is canceled
type PickingTaskCanceledEvent struct {
	events.BaseDomainEvent
	TaskID    string   `json:"taskId"`
	WesTaskID string   `json:"wesTaskId,omitempty"`
	OrderID   string   `json:"orderId,omitempty"`
	Reason    string   `json:"reason"`
	SKUs      []string `json:"skus"`
}

// NewPickingTaskCanceledEvent creates a new PickingTaskCanceledEvent
func NewPickingTaskCanceledEvent(taskID, wesTaskID, orderID, reason string, skus []string) *PickingTaskCanceledEvent {
	return &PickingTaskCanceledEvent{
		BaseDomainEvent: events.NewBase(EventTypePickingTaskCanceled, taskID),
		TaskID:          taskID,
		WesTaskID:       wesTaskID,
		OrderID:         orderID,
		Reason:          reason,
		SKUs:            skus,
	}
}

// PickingTaskPriorityAdjustedEvent is raised when a task's priority changed
type PickingTaskPriorityAdjustedEvent struct {
	events.BaseDomainEvent
	TaskID      string `json:"taskId"`
	OldPriority int    `json:"oldPriority"`
	NewPriority int    `json:"newPriority"`
}

// NewPickingTaskPriorityAdjustedEvent creates a new PickingTaskPriorityAdjustedEvent
func NewPickingTaskPriorityAdjustedEvent(taskID string, oldPriority, newPriority int) *PickingTaskPriorityAdjustedEvent {
	return &PickingTaskPriorityAdjustedEvent{
		BaseDomainEvent: events.NewBase(EventTypePickingTaskPriorityAdjusted, taskID),
		TaskID:          taskID,
		OldPriority:     oldPriority,
		NewPriority:     newPriority,
	}
}

// WesTaskDiscoveredEvent is raised when polling finds a WES task this
// coordinator has no record of
type WesTaskDiscoveredEvent struct {
	events.BaseDomainEvent
	WesTaskID string     `json:"wesTaskId"`
	Status    TaskStatus `json:"status"`
	Items     []TaskItem `json:"items"`
	Priority  int        `json:"priority"`
}

// NewWesTaskDiscoveredEvent creates a new WesTaskDiscoveredEvent
func NewWesTaskDiscoveredEvent(wesTaskID string, status TaskStatus, items []TaskItem, priority int) *WesTaskDiscoveredEvent {
	return &WesTaskDiscoveredEvent{
		BaseDomainEvent: events.NewBase(EventTypeWesTaskDiscovered, wesTaskID),
		WesTaskID:       wesTaskID,
		Status:          status,
		Items:           items,
		Priority:        priority,
	}
}

// WesTaskStatusUpdatedEvent is raised when polling observes a status
// change for a known WES task
type WesTaskStatusUpdatedEvent struct {
	events.BaseDomainEvent
	WesTaskID string `json:"wesTaskId"`
	Status    string `json:"status"`
}

// NewWesTaskStatusUpdatedEvent creates a new WesTaskStatusUpdatedEvent
func NewWesTaskStatusUpdatedEvent(wesTaskID, status string) *WesTaskStatusUpdatedEvent {
	return &WesTaskStatusUpdatedEvent{
		BaseDomainEvent: events.NewBase(EventTypeWesTaskStatusUpdated, wesTaskID),
		WesTaskID:       wesTaskID,
		Status:          status,
	}
}
