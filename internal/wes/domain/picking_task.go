package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/google/uuid"

	"github.com/levijcl/Wei-sub000/pkg/events"
)

// Errors for PickingTask aggregate
var (
	ErrBlankOrderID      = errors.New("order id cannot be blank")
	ErrBlankWesTaskID    = errors.New("wes task id cannot be blank")
	ErrNoTaskItems       = errors.New("task must have at least one item")
	ErrInvalidPriority   = errors.New("priority must be between 1 and 10")
	ErrInvalidTransition = errors.New("invalid task status transition")
	ErrUnknownStatus     = errors.New("unknown task status")
)

// TaskStatus is the picking task lifecycle state
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskSubmitted  TaskStatus = "SUBMITTED"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
	TaskCanceled   TaskStatus = "CANCELED"
)

// ParseTaskStatus maps an external status string to a TaskStatus
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskPending, TaskSubmitted, TaskInProgress, TaskCompleted, TaskFailed, TaskCanceled:
		return TaskStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// IsTerminal reports whether the status is final
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCanceled
}

func (s TaskStatus) canSubmit() bool {
	return s == TaskPending
}

func (s TaskStatus) canUpdateFromWes() bool {
	return s == TaskSubmitted || s == TaskInProgress
}

func (s TaskStatus) canCancel() bool {
	return s == TaskPending || s == TaskSubmitted || s == TaskInProgress
}

// TaskOrigin discriminates who created the task. It is the single gate
// deciding whether task transitions may cascade to an Order.
type TaskOrigin string

const (
	OriginOrchestratorSubmitted TaskOrigin = "ORCHESTRATOR_SUBMITTED"
	OriginWesDirect             TaskOrigin = "WES_DIRECT"
)

// IsOrchestratorSubmitted reports whether this coordinator created the task
func (o TaskOrigin) IsOrchestratorSubmitted() bool {
	return o == OriginOrchestratorSubmitted
}

// IsWesDirect reports whether the task was observed from the WES and
// must never touch an Order
func (o TaskOrigin) IsWesDirect() bool {
	return o == OriginWesDirect
}

// TaskItem is one sku/quantity unit of picking work
type TaskItem struct {
	SKU      string `bson:"sku" json:"sku"`
	Quantity int    `bson:"quantity" json:"quantity"`
	Location string `bson:"location" json:"location"`
}

// PickingTask represents one warehouse picking unit of work. Tasks with
// origin WES_DIRECT carry no order id: they are WES-local and their
// transitions never cascade to an Order.
type PickingTask struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TaskID        string             `bson:"taskId" json:"taskId"`
	WesTaskID     string             `bson:"wesTaskId,omitempty" json:"wesTaskId,omitempty"`
	OrderID       string             `bson:"orderId,omitempty" json:"orderId,omitempty"`
	Origin        TaskOrigin         `bson:"origin" json:"origin"`
	Priority      int                `bson:"priority" json:"priority"`
	Status        TaskStatus         `bson:"status" json:"status"`
	Items         []TaskItem         `bson:"items" json:"items"`
	FailureReason string             `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	SubmittedAt   *time.Time         `bson:"submittedAt,omitempty" json:"submittedAt,omitempty"`
	CompletedAt   *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CanceledAt    *time.Time         `bson:"canceledAt,omitempty" json:"canceledAt,omitempty"`

	domainEvents []events.DomainEvent `bson:"-" json:"-"`
}

func validateItems(items []TaskItem) error {
	if len(items) == 0 {
		return ErrNoTaskItems
	}
	for _, item := range items {
		if item.SKU == "" {
			return fmt.Errorf("task item sku cannot be blank")
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("task item quantity must be positive, got %d", item.Quantity)
		}
	}
	return nil
}

func validatePriority(priority int) error {
	if priority < 1 || priority > 10 {
		return fmt.Errorf("%w, got %d", ErrInvalidPriority, priority)
	}
	return nil
}

// CreateForOrder builds a PENDING orchestrator-submitted task for an order
func CreateForOrder(orderID string, items []TaskItem, priority int) (*PickingTask, error) {
	if orderID == "" {
		return nil, ErrBlankOrderID
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}
	if err := validatePriority(priority); err != nil {
		return nil, err
	}

	task := &PickingTask{
		ID:        primitive.NewObjectID(),
		TaskID:    "PICK-" + uuid.New().String(),
		OrderID:   orderID,
		Origin:    OriginOrchestratorSubmitted,
		Priority:  priority,
		Status:    TaskPending,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}
	task.addDomainEvent(NewPickingTaskCreatedEvent(task))
	return task, nil
}

// CreateFromWesTask builds a SUBMITTED task for work observed in the
// WES that this coordinator did not originate
func CreateFromWesTask(wesTaskID string, items []TaskItem, priority int) (*PickingTask, error) {
	if wesTaskID == "" {
		return nil, ErrBlankWesTaskID
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}
	if err := validatePriority(priority); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &PickingTask{
		ID:          primitive.NewObjectID(),
		TaskID:      "PICK-" + uuid.New().String(),
		WesTaskID:   wesTaskID,
		Origin:      OriginWesDirect,
		Priority:    priority,
		Status:      TaskSubmitted,
		Items:       items,
		CreatedAt:   now,
		SubmittedAt: &now,
	}
	task.addDomainEvent(NewPickingTaskCreatedEvent(task))
	return task, nil
}

// SubmitToWes binds the external task id and moves the task to
// SUBMITTED. Re-applying the same wes task id is a no-op.
func (t *PickingTask) SubmitToWes(wesTaskID string) error {
	if wesTaskID == "" {
		return ErrBlankWesTaskID
	}
	if t.Status == TaskSubmitted && t.WesTaskID == wesTaskID {
		return nil
	}
	if !t.Status.canSubmit() {
		return fmt.Errorf("%w: task cannot be submitted in status %s", ErrInvalidTransition, t.Status)
	}

	now := time.Now().UTC()
	t.WesTaskID = wesTaskID
	t.Status = TaskSubmitted
	t.SubmittedAt = &now
	t.addDomainEvent(NewPickingTaskSubmittedEvent(t.TaskID, t.OrderID, wesTaskID, t.taskSKUs()))
	return nil
}

// UpdateStatusFromWes routes an externally observed status to the
// matching transition. Re-delivery of the current status is a no-op;
// conflicting terminal statuses are rejected.
func (t *PickingTask) UpdateStatusFromWes(newStatus TaskStatus) error {
	if t.Status == newStatus {
		return nil
	}
	if !t.Status.canUpdateFromWes() {
		return fmt.Errorf("%w: cannot update status from WES in status %s", ErrInvalidTransition, t.Status)
	}

	switch newStatus {
	case TaskInProgress:
		t.Status = TaskInProgress
		return nil
	case TaskCompleted:
		return t.MarkCompleted()
	case TaskFailed:
		return t.MarkFailed("reported failed by WES")
	case TaskCanceled:
		return t.Cancel("canceled in WES")
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStatus, newStatus)
	}
}

// MarkCompleted terminates the task as COMPLETED. Idempotent.
func (t *PickingTask) MarkCompleted() error {
	if t.Status == TaskCompleted {
		return nil
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: task is already in terminal status %s", ErrInvalidTransition, t.Status)
	}

	now := time.Now().UTC()
	t.Status = TaskCompleted
	t.CompletedAt = &now
	t.addDomainEvent(NewPickingTaskCompletedEvent(t.TaskID, t.WesTaskID, t.OrderID, t.taskSKUs()))
	return nil
}

// MarkFailed terminates the task as FAILED. Idempotent.
func (t *PickingTask) MarkFailed(reason string) error {
	if t.Status == TaskFailed {
		return nil
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: task is already in terminal status %s", ErrInvalidTransition, t.Status)
	}

	now := time.Now().UTC()
	t.Status = TaskFailed
	t.CompletedAt = &now
	t.FailureReason = reason
	t.addDomainEvent(NewPickingTaskFailedEvent(t.TaskID, t.WesTaskID, t.OrderID, reason, t.taskSKUs()))
	return nil
}

// Cancel terminates the task as CANCELED. Idempotent.
func (t *PickingTask) Cancel(reason string) error {
	if t.Status == TaskCanceled {
		return nil
	}
	if !t.Status.canCancel() {
		return fmt.Errorf("%w: task cannot be canceled in status %s", ErrInvalidTransition, t.Status)
	}

	now := time.Now().UTC()
	t.Status = TaskCanceled
	t.CanceledAt = &now
	t.FailureReason = reason
	t.addDomainEvent(NewPickingTaskCanceledEvent(t.TaskID, t.WesTaskID, t.OrderID, reason, t.taskSKUs()))
	return nil
}

// AdjustPriority changes the task priority. Unchanged priority is a no-op.
func (t *PickingTask) AdjustPriority(newPriority int) error {
	if err := validatePriority(newPriority); err != nil {
		return err
	}
	if t.Priority == newPriority {
		return nil
	}
	old := t.Priority
	t.Priority = newPriority
	t.addDomainEvent(NewPickingTaskPriorityAdjustedEvent(t.TaskID, old, newPriority))
	return nil
}

// SKUs returns the distinct skus covered by this task
func (t *PickingTask) SKUs() []string {
	return t.taskSKUs()
}

func (t *PickingTask) taskSKUs() []string {
	skus := make([]string, 0, len(t.Items))
	seen := make(map[string]struct{}, len(t.Items))
	for _, item := range t.Items {
		if _, ok := seen[item.SKU]; ok {
			continue
		}
		seen[item.SKU] = struct{}{}
		skus = append(skus, item.SKU)
	}
	return skus
}

// GetDomainEvents returns the accumulated domain events
func (t *PickingTask) GetDomainEvents() []events.DomainEvent {
	return t.domainEvents
}

// ClearDomainEvents clears the accumulated domain events
func (t *PickingTask) ClearDomainEvents() {
	t.domainEvents = nil
}

func (t *PickingTask) addDomainEvent(event events.DomainEvent) {
	t.domainEvents = append(t.domainEvents, event)
}
