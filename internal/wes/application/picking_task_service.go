package application

import (
	"context"
	"fmt"

	"github.com/levijcl/Wei-sub000/internal/wes/domain"
	apperrors "github.com/levijcl/Wei-sub000/pkg/errors"
	"github.com/levijcl/Wei-sub000/pkg/eventbus"
	"github.com/levijcl/Wei-sub000/pkg/events"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

// PickingTaskApplicationService handles picking task use cases
type PickingTaskApplicationService struct {
	taskRepo domain.PickingTaskRepository
	wesPort  domain.WesPort
	bus      *eventbus.Bus
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewPickingTaskApplicationService creates a new PickingTaskApplicationService
func NewPickingTaskApplicationService(
	taskRepo domain.PickingTaskRepository,
	wesPort domain.WesPort,
	bus *eventbus.Bus,
	logger *logging.Logger,
	m *metrics.Metrics,
) *PickingTaskApplicationService {
	return &PickingTaskApplicationService{
		taskRepo: taskRepo,
		wesPort:  wesPort,
		bus:      bus,
		logger:   logger.WithComponent("picking-task-service"),
		metrics:  m,
	}
}

// SubmitTaskForOrder creates a picking task for an order and hands it
// to the WES. A WES submission failure marks the task FAILED locally
// and is never returned as an error: the order's reserved state was
// durably committed before this ran, and a retry of the whole handler
// would only duplicate the task.
func (s *PickingTaskApplicationService) SubmitTaskForOrder(ctx context.Context, orderID string, items []domain.TaskItem, priority int, trigger events.TriggerContext) error {
	task, err := domain.CreateForOrder(orderID, items, priority)
	if err != nil {
		return apperrors.ErrValidation(err.Error())
	}

	wesTaskID, callErr := s.wesPort.SubmitPickingTask(ctx, task)
	if callErr != nil {
		if err := task.MarkFailed("wes submission failed: " + callErr.Error()); err != nil {
			return fmt.Errorf("marking task failed: %w", err)
		}
		s.metrics.PickingTasksSubmitted.WithLabelValues("failed").Inc()
		s.logger.WithError(callErr).Error("WES submission failed",
			"taskId", task.TaskID, "orderId", orderID)
	} else {
		if err := task.SubmitToWes(wesTaskID); err != nil {
			return fmt.Errorf("binding wes task id: %w", err)
		}
		s.metrics.PickingTasksSubmitted.WithLabelValues("submitted").Inc()
		s.logger.Info("Picking task submitted",
			"taskId", task.TaskID, "orderId", orderID, "wesTaskId", wesTaskID)
	}

	return s.saveAndPublish(ctx, task, trigger)
}

// RegisterWesDirectTask records a task discovered in the WES that this
// coordinator did not originate. It never references an order.
func (s *PickingTaskApplicationService) RegisterWesDirectTask(ctx context.Context, dto domain.WesTaskDto, trigger events.TriggerContext) error {
	existing, err := s.taskRepo.FindByWesTaskID(ctx, dto.WesTaskID)
	if err != nil {
		return fmt.Errorf("checking for existing task: %w", err)
	}
	if existing != nil {
		s.logger.Debug("WES task already registered, skipping", "wesTaskId", dto.WesTaskID)
		return nil
	}

	priority := dto.Priority
	if priority < 1 || priority > 10 {
		priority = 5
	}
	task, err := domain.CreateFromWesTask(dto.WesTaskID, dto.Items, priority)
	if err != nil {
		return apperrors.ErrValidation(err.Error())
	}

	if status, parseErr := domain.ParseTaskStatus(dto.Status); parseErr == nil && status != task.Status {
		if err := task.UpdateStatusFromWes(status); err != nil {
			s.logger.WithError(err).Warn("Discovered task in unexpected status",
				"wesTaskId", dto.WesTaskID, "status", dto.Status)
		}
	}

	if err := s.saveAndPublish(ctx, task, trigger); err != nil {
		return err
	}
	s.logger.Info("Registered WES-originated task", "taskId", task.TaskID, "wesTaskId", dto.WesTaskID)
	return nil
}

// UpdateTaskStatusFromWes routes an externally observed status change
// to the matching task transition. The wes task id is
// coordinator-internal by the time this runs; a miss is corrupted
// state, not staleness.
func (s *PickingTaskApplicationService) UpdateTaskStatusFromWes(ctx context.Context, wesTaskID, status string, trigger events.TriggerContext) error {
	task, err := s.taskRepo.FindByWesTaskID(ctx, wesTaskID)
	if err != nil {
		return fmt.Errorf("loading task by wes task id: %w", err)
	}
	if task == nil {
		return apperrors.ErrInvalidState("picking task not found for wes task id").WithDetail("wesTaskId", wesTaskID)
	}

	newStatus, err := domain.ParseTaskStatus(status)
	if err != nil {
		return apperrors.ErrValidation(err.Error()).WithDetail("wesTaskId", wesTaskID)
	}
	if err := task.UpdateStatusFromWes(newStatus); err != nil {
		return apperrors.ErrInvalidState(err.Error()).WithDetail("taskId", task.TaskID)
	}

	return s.saveAndPublish(ctx, task, trigger)
}

// CancelTask cancels a task both in the WES and locally
func (s *PickingTaskApplicationService) CancelTask(ctx context.Context, taskID, reason string) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.WesTaskID != "" {
		if callErr := s.wesPort.CancelTask(ctx, task.WesTaskID); callErr != nil {
			return apperrors.ErrServiceUnavailable("wes cancel failed").Wrap(callErr)
		}
	}
	if err := task.Cancel(reason); err != nil {
		return apperrors.ErrInvalidState(err.Error()).WithDetail("taskId", taskID)
	}

	return s.saveAndPublish(ctx, task, events.Manual())
}

// AdjustTaskPriority changes a task's priority in the WES and locally
func (s *PickingTaskApplicationService) AdjustTaskPriority(ctx context.Context, taskID string, priority int) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.WesTaskID != "" {
		if callErr := s.wesPort.AdjustTaskPriority(ctx, task.WesTaskID, priority); callErr != nil {
			return apperrors.ErrServiceUnavailable("wes priority adjustment failed").Wrap(callErr)
		}
	}
	if err := task.AdjustPriority(priority); err != nil {
		return apperrors.ErrValidation(err.Error()).WithDetail("taskId", taskID)
	}

	return s.saveAndPublish(ctx, task, events.Manual())
}

// GetTask retrieves a task by id
func (s *PickingTaskApplicationService) GetTask(ctx context.Context, taskID string) (*domain.PickingTask, error) {
	return s.loadTask(ctx, taskID)
}

// FindTask retrieves the raw aggregate for the saga handlers. A nil
// task with nil error means the task does not exist.
func (s *PickingTaskApplicationService) FindTask(ctx context.Context, taskID string) (*domain.PickingTask, error) {
	return s.taskRepo.FindByID(ctx, taskID)
}

// ListTasksForOrder retrieves all tasks created for an order
func (s *PickingTaskApplicationService) ListTasksForOrder(ctx context.Context, orderID string) ([]*domain.PickingTask, error) {
	tasks, err := s.taskRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks for order %s: %w", orderID, err)
	}
	return tasks, nil
}

// ListOpenTasks retrieves tasks the WES observer should track
func (s *PickingTaskApplicationService) ListOpenTasks(ctx context.Context) ([]*domain.PickingTask, error) {
	var open []*domain.PickingTask
	for _, status := range []domain.TaskStatus{domain.TaskSubmitted, domain.TaskInProgress} {
		tasks, err := s.taskRepo.FindByStatus(ctx, status, 500)
		if err != nil {
			return nil, fmt.Errorf("listing %s tasks: %w", status, err)
		}
		open = append(open, tasks...)
	}
	return open, nil
}

func (s *PickingTaskApplicationService) loadTask(ctx context.Context, taskID string) (*domain.PickingTask, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("loading task: %w", err)
	}
	if task == nil {
		return nil, apperrors.ErrNotFoundWithID("picking task", taskID)
	}
	return task, nil
}

func (s *PickingTaskApplicationService) saveAndPublish(ctx context.Context, task *domain.PickingTask, trigger events.TriggerContext) error {
	evts := task.GetDomainEvents()
	task.ClearDomainEvents()

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return fmt.Errorf("saving task %s: %w", task.TaskID, err)
	}
	if err := s.bus.PublishAll(ctx, trigger, evts); err != nil {
		return fmt.Errorf("publishing task events: %w", err)
	}
	return nil
}
