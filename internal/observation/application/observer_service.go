package application

import (
	"context"
	"fmt"

	invdomain "github.com/levijcl/Wei-sub000/internal/inventory/domain"
	"github.com/levijcl/Wei-sub000/internal/observation/domain"
	wesdomain "github.com/levijcl/Wei-sub000/internal/wes/domain"
	"github.com/levijcl/Wei-sub000/pkg/eventbus"
	"github.com/levijcl/Wei-sub000/pkg/events"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

// OrderObserverApplicationService drives order source polling
type OrderObserverApplicationService struct {
	observerRepo domain.OrderObserverRepository
	orderSource  domain.OrderSourcePort
	bus          *eventbus.Bus
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewOrderObserverApplicationService creates a new OrderObserverApplicationService
func NewOrderObserverApplicationService(
	observerRepo domain.OrderObserverRepository,
	orderSource domain.OrderSourcePort,
	bus *eventbus.Bus,
	logger *logging.Logger,
	m *metrics.Metrics,
) *OrderObserverApplicationService {
	return &OrderObserverApplicationService{
		observerRepo: observerRepo,
		orderSource:  orderSource,
		bus:          bus,
		logger:       logger.WithComponent("order-observer-service"),
		metrics:      m,
	}
}

// PollAll runs every registered order observer that is due. One
// observer's failure does not block the others.
func (s *OrderObserverApplicationService) PollAll(ctx context.Context) {
	observers, err := s.observerRepo.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load order observers")
		return
	}

	for _, observer := range observers {
		s.metrics.ObserverPollsTotal.WithLabelValues("order").Inc()
		if err := observer.PollOrderSource(ctx, s.orderSource); err != nil {
			s.metrics.ObserverPollErrorsTotal.WithLabelValues("order").Inc()
			s.logger.WithError(err).Error("Order source poll failed", "observerId", observer.ObserverID)
			continue
		}
		if err := s.publishAndSave(ctx, observer); err != nil {
			s.logger.WithError(err).Error("Failed to persist order observer state", "observerId", observer.ObserverID)
		}
	}
}

// RegisterObserver stores an observer definition, replacing any
// previous one with the same id but keeping its polling history
func (s *OrderObserverApplicationService) RegisterObserver(ctx context.Context, observer *domain.OrderObserver) error {
	existing, err := s.observerRepo.FindByID(ctx, observer.ObserverID)
	if err != nil {
		return fmt.Errorf("checking for existing observer: %w", err)
	}
	if existing != nil {
		observer.LastPolledTimestamp = existing.LastPolledTimestamp
	}
	return s.observerRepo.Save(ctx, observer)
}

func (s *OrderObserverApplicationService) publishAndSave(ctx context.Context, observer *domain.OrderObserver) error {
	evts := observer.GetDomainEvents()
	observer.ClearDomainEvents()

	if err := s.observerRepo.Save(ctx, observer); err != nil {
		return fmt.Errorf("saving observer %s: %w", observer.ObserverID, err)
	}
	return s.bus.PublishAll(ctx, events.Scheduled("order-observer"), evts)
}

// WesObserverApplicationService drives WES task polling
type WesObserverApplicationService struct {
	observerRepo domain.WesObserverRepository
	taskRepo     wesdomain.PickingTaskRepository
	wesPort      wesdomain.WesPort
	bus          *eventbus.Bus
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewWesObserverApplicationService creates a new WesObserverApplicationService
func NewWesObserverApplicationService(
	observerRepo domain.WesObserverRepository,
	taskRepo wesdomain.PickingTaskRepository,
	wesPort wesdomain.WesPort,
	bus *eventbus.Bus,
	logger *logging.Logger,
	m *metrics.Metrics,
) *WesObserverApplicationService {
	return &WesObserverApplicationService{
		observerRepo: observerRepo,
		taskRepo:     taskRepo,
		wesPort:      wesPort,
		bus:          bus,
		logger:       logger.WithComponent("wes-observer-service"),
		metrics:      m,
	}
}

// PollAll runs every registered WES observer that is due, diffing the
// WES's task list against locally tracked open tasks
func (s *WesObserverApplicationService) PollAll(ctx context.Context) {
	observers, err := s.observerRepo.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load wes observers")
		return
	}

	for _, observer := range observers {
		s.metrics.ObserverPollsTotal.WithLabelValues("wes").Inc()

		knownTasks, err := s.openTasks(ctx)
		if err != nil {
			s.metrics.ObserverPollErrorsTotal.WithLabelValues("wes").Inc()
			s.logger.WithError(err).Error("Failed to load open picking tasks", "observerId", observer.ObserverID)
			continue
		}
		if err := observer.PollWesTasks(ctx, s.wesPort, knownTasks); err != nil {
			s.metrics.ObserverPollErrorsTotal.WithLabelValues("wes").Inc()
			s.logger.WithError(err).Error("WES task poll failed", "observerId", observer.ObserverID)
			continue
		}
		if err := s.publishAndSave(ctx, observer); err != nil {
			s.logger.WithError(err).Error("Failed to persist wes observer state", "observerId", observer.ObserverID)
		}
	}
}

// RegisterObserver stores an observer definition, keeping any existing
// polling history
func (s *WesObserverApplicationService) RegisterObserver(ctx context.Context, observer *domain.WesObserver) error {
	existing, err := s.observerRepo.FindByID(ctx, observer.ObserverID)
	if err != nil {
		return fmt.Errorf("checking for existing observer: %w", err)
	}
	if existing != nil {
		observer.LastPolledTimestamp = existing.LastPolledTimestamp
	}
	return s.observerRepo.Save(ctx, observer)
}

func (s *WesObserverApplicationService) openTasks(ctx context.Context) ([]*wesdomain.PickingTask, error) {
	var open []*wesdomain.PickingTask
	for _, status := range []wesdomain.TaskStatus{wesdomain.TaskSubmitted, wesdomain.TaskInProgress} {
		tasks, err := s.taskRepo.FindByStatus(ctx, status, 500)
		if err != nil {
			return nil, err
		}
		open = append(open, tasks...)
	}
	return open, nil
}

func (s *WesObserverApplicationService) publishAndSave(ctx context.Context, observer *domain.WesObserver) error {
	evts := observer.GetDomainEvents()
	observer.ClearDomainEvents()

	if err := s.observerRepo.Save(ctx, observer); err != nil {
		return fmt.Errorf("saving observer %s: %w", observer.ObserverID, err)
	}
	return s.bus.PublishAll(ctx, events.Scheduled("wes-observer"), evts)
}

// InventoryObserverApplicationService drives inventory snapshot polling
type InventoryObserverApplicationService struct {
	observerRepo  domain.InventoryObserverRepository
	inventoryPort invdomain.InventoryPort
	bus           *eventbus.Bus
	logger        *logging.Logger
	metrics       *metrics.Metrics
}

// NewInventoryObserverApplicationService creates a new InventoryObserverApplicationService
func NewInventoryObserverApplicationService(
	observerRepo domain.InventoryObserverRepository,
	inventoryPort invdomain.InventoryPort,
	bus *eventbus.Bus,
	logger *logging.Logger,
	m *metrics.Metrics,
) *InventoryObserverApplicationService {
	return &InventoryObserverApplicationService{
		observerRepo:  observerRepo,
		inventoryPort: inventoryPort,
		bus:           bus,
		logger:        logger.WithComponent("inventory-observer-service"),
		metrics:       m,
	}
}

// PollAll runs every registered inventory observer that is due
func (s *InventoryObserverApplicationService) PollAll(ctx context.Context) {
	observers, err := s.observerRepo.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load inventory observers")
		return
	}

	for _, observer := range observers {
		s.metrics.ObserverPollsTotal.WithLabelValues("inventory").Inc()
		if err := observer.PollInventorySnapshot(ctx, s.inventoryPort); err != nil {
			s.metrics.ObserverPollErrorsTotal.WithLabelValues("inventory").Inc()
			s.logger.WithError(err).Error("Inventory snapshot poll failed", "observerId", observer.ObserverID)
			continue
		}
		if err := s.publishAndSave(ctx, observer); err != nil {
			s.logger.WithError(err).Error("Failed to persist inventory observer state", "observerId", observer.ObserverID)
		}
	}
}

// RegisterObserver stores an observer definition, keeping any existing
// polling history
func (s *InventoryObserverApplicationService) RegisterObserver(ctx context.Context, observer *domain.InventoryObserver) error {
	existing, err := s.observerRepo.FindByID(ctx, observer.ObserverID)
	if err != nil {
		return fmt.Errorf("checking for existing observer: %w", err)
	}
	if existing != nil {
		observer.LastPolledTimestamp = existing.LastPolledTimestamp
	}
	return s.observerRepo.Save(ctx, observer)
}

func (s *InventoryObserverApplicationService) publishAndSave(ctx context.Context, observer *domain.InventoryObserver) error {
	evts := observer.GetDomainEvents()
	observer.ClearDomainEvents()

	if err := s.observerRepo.Save(ctx, observer); err != nil {
		return fmt.Errorf("saving observer %s: %w", observer.ObserverID, err)
	}
	return s.bus.PublishAll(ctx, events.Scheduled("inventory-observer"), evts)
}
