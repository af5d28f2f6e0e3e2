package saga

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invapp "github.com/levijcl/Wei-sub000/internal/inventory/application"
	invdomain "github.com/levijcl/Wei-sub000/internal/inventory/domain"
	observationdomain "github.com/levijcl/Wei-sub000/internal/observation/domain"
	orderapp "github.com/levijcl/Wei-sub000/internal/order/application"
	orderdomain "github.com/levijcl/Wei-sub000/internal/order/domain"
	wesapp "github.com/levijcl/Wei-sub000/internal/wes/application"
	wesdomain "github.com/levijcl/Wei-sub000/internal/wes/domain"
	"github.com/levijcl/Wei-sub000/pkg/eventbus"
	"github.com/levijcl/Wei-sub000/pkg/events"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

const waitFor = 3 * time.Second
const tick = 10 * time.Millisecond

// ---- in-memory repositories ----

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*orderdomain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*orderdomain.Order)}
}

func copyOrder(o *orderdomain.Order) *orderdomain.Order {
	cp := *o
	cp.LineItems = make([]orderdomain.OrderLineItem, len(o.LineItems))
	for i, li := range o.LineItems {
		item := li
		if li.ReservationInfo != nil {
			info := *li.ReservationInfo
			item.ReservationInfo = &info
		}
		if li.CommitmentInfo != nil {
			info := *li.CommitmentInfo
			item.CommitmentInfo = &info
		}
		cp.LineItems[i] = item
	}
	cp.ClearDomainEvents()
	return &cp
}

func (r *memOrderRepo) Save(_ context.Context, order *orderdomain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.OrderID] = copyOrder(order)
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, orderID string) (*orderdomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	return copyOrder(order), nil
}

func (r *memOrderRepo) FindByStatus(_ context.Context, status orderdomain.Status, limit int64) ([]*orderdomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*orderdomain.Order
	for _, order := range r.orders {
		if order.Status == status && int64(len(out)) < limit {
			out = append(out, copyOrder(order))
		}
	}
	return out, nil
}

func (r *memOrderRepo) FindScheduledBefore(_ context.Context, t time.Time, limit int64) ([]*orderdomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*orderdomain.Order
	for _, order := range r.orders {
		if order.Status == orderdomain.StatusScheduled && int64(len(out)) < limit {
			out = append(out, copyOrder(order))
		}
	}
	return out, nil
}

type memTxRepo struct {
	mu  sync.Mutex
	txs map[string]*invdomain.InventoryTransaction
}

func newMemTxRepo() *memTxRepo {
	return &memTxRepo{txs: make(map[string]*invdomain.InventoryTransaction)}
}

func copyTx(tx *invdomain.InventoryTransaction) *invdomain.InventoryTransaction {
	cp := *tx
	cp.Lines = append([]invdomain.TransactionLine(nil), tx.Lines...)
	cp.ClearDomainEvents()
	return &cp
}

func (r *memTxRepo) Save(_ context.Context, tx *invdomain.InventoryTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[tx.TransactionID] = copyTx(tx)
	return nil
}

func (r *memTxRepo) FindByID(_ context.Context, transactionID string) (*invdomain.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[transactionID]
	if !ok {
		return nil, nil
	}
	return copyTx(tx), nil
}

func (r *memTxRepo) FindBySourceReference(_ context.Context, sourceReferenceID string) ([]*invdomain.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*invdomain.InventoryTransaction
	for _, tx := range r.txs {
		if tx.SourceReferenceID == sourceReferenceID {
			out = append(out, copyTx(tx))
		}
	}
	return out, nil
}

func (r *memTxRepo) FindByStatus(_ context.Context, status invdomain.TransactionStatus, limit int64) ([]*invdomain.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*invdomain.InventoryTransaction
	for _, tx := range r.txs {
		if tx.Status == status && int64(len(out)) < limit {
			out = append(out, copyTx(tx))
		}
	}
	return out, nil
}

type memAdjustmentRepo struct {
	mu          sync.Mutex
	adjustments map[string]*invdomain.InventoryAdjustment
}

func newMemAdjustmentRepo() *memAdjustmentRepo {
	return &memAdjustmentRepo{adjustments: make(map[string]*invdomain.InventoryAdjustment)}
}

func (r *memAdjustmentRepo) Save(_ context.Context, adjustment *invdomain.InventoryAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *adjustment
	cp.ClearDomainEvents()
	r.adjustments[adjustment.AdjustmentID] = &cp
	return nil
}

func (r *memAdjustmentRepo) FindByID(_ context.Context, adjustmentID string) (*invdomain.InventoryAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	adjustment, ok := r.adjustments[adjustmentID]
	if !ok {
		return nil, nil
	}
	cp := *adjustment
	return &cp, nil
}

func (r *memAdjustmentRepo) FindByStatus(_ context.Context, status invdomain.AdjustmentStatus, limit int64) ([]*invdomain.InventoryAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*invdomain.InventoryAdjustment
	for _, adjustment := range r.adjustments {
		if adjustment.Status == status && int64(len(out)) < limit {
			cp := *adjustment
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*wesdomain.PickingTask
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]*wesdomain.PickingTask)}
}

func copyTask(task *wesdomain.PickingTask) *wesdomain.PickingTask {
	cp := *task
	cp.Items = append([]wesdomain.TaskItem(nil), task.Items...)
	cp.ClearDomainEvents()
	return &cp
}

func (r *memTaskRepo) Save(_ context.Context, task *wesdomain.PickingTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.TaskID] = copyTask(task)
	return nil
}

func (r *memTaskRepo) FindByID(_ context.Context, taskID string) (*wesdomain.PickingTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return copyTask(task), nil
}

func (r *memTaskRepo) FindByWesTaskID(_ context.Context, wesTaskID string) (*wesdomain.PickingTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		if task.WesTaskID == wesTaskID {
			return copyTask(task), nil
		}
	}
	return nil, nil
}

func (r *memTaskRepo) FindByOrderID(_ context.Context, orderID string) ([]*wesdomain.PickingTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*wesdomain.PickingTask
	for _, task := range r.tasks {
		if task.OrderID == orderID {
			out = append(out, copyTask(task))
		}
	}
	return out, nil
}

func (r *memTaskRepo) FindByStatus(_ context.Context, status wesdomain.TaskStatus, limit int64) ([]*wesdomain.PickingTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*wesdomain.PickingTask
	for _, task := range r.tasks {
		if task.Status == status && int64(len(out)) < limit {
			out = append(out, copyTask(task))
		}
	}
	return out, nil
}

// ---- external system fakes ----

type fakeInventoryPort struct {
	mu          sync.Mutex
	failSKUs    map[string]error
	reserved    []string
	consumed    []string
	released    []string
	adjustments []string
}

func newFakeInventoryPort() *fakeInventoryPort {
	return &fakeInventoryPort{failSKUs: make(map[string]error)}
}

func (f *fakeInventoryPort) CreateReservation(_ context.Context, sku, _, _ string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failSKUs[sku]; ok {
		return "", err
	}
	id := "RSV-" + sku
	f.reserved = append(f.reserved, id)
	return id, nil
}

func (f *fakeInventoryPort) ConsumeReservation(_ context.Context, externalReservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed = append(f.consumed, externalReservationID)
	return nil
}

func (f *fakeInventoryPort) ReleaseReservation(_ context.Context, externalReservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, externalReservationID)
	return nil
}

func (f *fakeInventoryPort) IncreaseInventory(_ context.Context, _, _ string, _ int) error {
	return nil
}

func (f *fakeInventoryPort) AdjustInventory(_ context.Context, sku, warehouseID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjustments = append(f.adjustments, fmt.Sprintf("%s:%s:%d", warehouseID, sku, quantity))
	return nil
}

func (f *fakeInventoryPort) GetInventorySnapshot(_ context.Context) ([]invdomain.StockSnapshot, error) {
	return nil, nil
}

func (f *fakeInventoryPort) consumedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.consumed...)
}

func (f *fakeInventoryPort) releasedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

type fakeWesPort struct {
	mu        sync.Mutex
	submitErr error
	submitted int
	stock     []wesdomain.StockLevel
}

func (f *fakeWesPort) SubmitPickingTask(_ context.Context, _ *wesdomain.PickingTask) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted++
	return fmt.Sprintf("WES-%d", f.submitted), nil
}

func (f *fakeWesPort) CancelTask(_ context.Context, _ string) error { return nil }

func (f *fakeWesPort) AdjustTaskPriority(_ context.Context, _ string, _ int) error { return nil }

func (f *fakeWesPort) PollAllTasks(_ context.Context) ([]wesdomain.WesTaskDto, error) {
	return nil, nil
}

func (f *fakeWesPort) GetStockSnapshot(_ context.Context) ([]wesdomain.StockLevel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wesdomain.StockLevel(nil), f.stock...), nil
}

// ---- fixture ----

type sagaFixture struct {
	bus         *eventbus.Bus
	coordinator *Coordinator
	metrics     *metrics.Metrics

	orders      *orderapp.OrderApplicationService
	tasks       *wesapp.PickingTaskApplicationService
	adjustments *invapp.InventoryAdjustmentApplicationService

	orderRepo *memOrderRepo
	txRepo    *memTxRepo
	adjRepo   *memAdjustmentRepo
	taskRepo  *memTaskRepo
	inventory *fakeInventoryPort
	wes       *fakeWesPort
}

func newSagaFixture(t *testing.T) *sagaFixture {
	t.Helper()

	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test"})
	m := metrics.New("test")
	bus := eventbus.New(eventbus.Config{
		BufferSize:   256,
		Workers:      4,
		MaxRetries:   2,
		RetryBackoff: 5 * time.Millisecond,
	}, logger, m)
	t.Cleanup(bus.Close)

	fx := &sagaFixture{
		bus:       bus,
		metrics:   m,
		orderRepo: newMemOrderRepo(),
		txRepo:    newMemTxRepo(),
		adjRepo:   newMemAdjustmentRepo(),
		taskRepo:  newMemTaskRepo(),
		inventory: newFakeInventoryPort(),
		wes:       &fakeWesPort{},
	}

	fx.orders = orderapp.NewOrderApplicationService(fx.orderRepo, bus, logger, m)
	inventoryService := invapp.NewInventoryTransactionApplicationService(fx.txRepo, fx.inventory, bus, logger, m)
	fx.adjustments = invapp.NewInventoryAdjustmentApplicationService(fx.adjRepo, fx.txRepo, fx.inventory, fx.wes, bus, logger, m)
	fx.tasks = wesapp.NewPickingTaskApplicationService(fx.taskRepo, fx.wes, bus, logger, m)

	fx.coordinator = NewCoordinator(fx.orders, inventoryService, fx.adjustments, fx.tasks, fx.txRepo, logger, m)
	fx.coordinator.Register(bus)
	return fx
}

func (fx *sagaFixture) publish(t *testing.T, event events.DomainEvent) {
	t.Helper()
	err := fx.bus.Publish(context.Background(), eventbus.NewEnvelope(event, events.Scheduled("test")))
	require.NoError(t, err)
}

func (fx *sagaFixture) orderStatus(t *testing.T, orderID string) orderdomain.Status {
	t.Helper()
	order, err := fx.orderRepo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	if order == nil {
		return ""
	}
	return order.Status
}

func observedOrder(orderID string, items ...observationdomain.ObservedOrderItem) observationdomain.ObservationResult {
	return observationdomain.ObservationResult{
		OrderID:         orderID,
		CustomerName:    "ACME Corp",
		ShippingAddress: "1 Dock Rd",
		WarehouseID:     "WH001",
		Status:          "NEW",
		Items:           items,
		ObservedAt:      time.Now().UTC(),
	}
}

func startFulfillment(t *testing.T, fx *sagaFixture, orderID string, items ...observationdomain.ObservedOrderItem) {
	t.Helper()
	ctx := context.Background()

	fx.publish(t, observationdomain.NewNewOrderObservedEvent("order-observer-1", observedOrder(orderID, items...)))
	require.Eventually(t, func() bool {
		return fx.orderStatus(t, orderID) == orderdomain.StatusCreated
	}, waitFor, tick)

	promoted, err := fx.orders.PromoteDueOrders(ctx, time.Now(), events.Scheduled("fulfillment-scheduler"))
	require.NoError(t, err)
	require.Equal(t, 1, promoted)
}

// ---- tests ----

func TestSagaHappyPathCommitsOrder(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()

	startFulfillment(t, fx, "ORD-1",
		observationdomain.ObservedOrderItem{SKU: "SKU-100", Quantity: 5, Price: 9.99},
		observationdomain.ObservedOrderItem{SKU: "SKU-200", Quantity: 2, Price: 3.50},
	)

	// Reservation succeeds for both lines, a picking task is submitted
	// and the order lines enter picking.
	var wesTaskID string
	require.Eventually(t, func() bool {
		tasks, err := fx.taskRepo.FindByOrderID(ctx, "ORD-1")
		require.NoError(t, err)
		if len(tasks) != 1 || tasks[0].Status != wesdomain.TaskSubmitted {
			return false
		}
		wesTaskID = tasks[0].WesTaskID
		order, err := fx.orderRepo.FindByID(ctx, "ORD-1")
		require.NoError(t, err)
		for _, li := range order.LineItems {
			if li.CommitmentInfo == nil {
				return false
			}
		}
		return true
	}, waitFor, tick)
	require.NotEmpty(t, wesTaskID)

	// WES reports completion through the observation side.
	fx.publish(t, wesdomain.NewWesTaskStatusUpdatedEvent(wesTaskID, string(wesdomain.TaskCompleted)))

	require.Eventually(t, func() bool {
		return fx.orderStatus(t, "ORD-1") == orderdomain.StatusCommitted
	}, waitFor, tick)

	require.Eventually(t, func() bool {
		consumed := fx.inventory.consumedIDs()
		return len(consumed) == 2
	}, waitFor, tick)
	assert.ElementsMatch(t, []string{"RSV-SKU-100", "RSV-SKU-200"}, fx.inventory.consumedIDs())
}

func TestSagaEscalatesWhenAllReservationsFail(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()
	fx.inventory.failSKUs["SKU-100"] = invdomain.ErrInsufficientInventory
	fx.inventory.failSKUs["SKU-200"] = invdomain.ErrInsufficientInventory

	startFulfillment(t, fx, "ORD-2",
		observationdomain.ObservedOrderItem{SKU: "SKU-100", Quantity: 5, Price: 9.99},
		observationdomain.ObservedOrderItem{SKU: "SKU-200", Quantity: 2, Price: 3.50},
	)

	require.Eventually(t, func() bool {
		return fx.orderStatus(t, "ORD-2") == orderdomain.StatusFailedToReserve
	}, waitFor, tick)

	order, err := fx.orderRepo.FindByID(ctx, "ORD-2")
	require.NoError(t, err)
	for _, li := range order.LineItems {
		require.NotNil(t, li.ReservationInfo)
		assert.True(t, li.ReservationInfo.IsFailed())
		assert.Equal(t, "insufficient inventory", li.ReservationInfo.FailureReason)
	}

	tasks, err := fx.taskRepo.FindByOrderID(ctx, "ORD-2")
	require.NoError(t, err)
	assert.Empty(t, tasks, "no picking task for a failed order")
}

func TestSagaPartialFailureKeepsOrderOpen(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()
	fx.inventory.failSKUs["SKU-200"] = invdomain.ErrInsufficientInventory

	startFulfillment(t, fx, "ORD-3",
		observationdomain.ObservedOrderItem{SKU: "SKU-100", Quantity: 5, Price: 9.99},
		observationdomain.ObservedOrderItem{SKU: "SKU-200", Quantity: 2, Price: 3.50},
	)

	require.Eventually(t, func() bool {
		order, err := fx.orderRepo.FindByID(ctx, "ORD-3")
		require.NoError(t, err)
		if order == nil {
			return false
		}
		reserved, failed := 0, 0
		for _, li := range order.LineItems {
			if li.ReservationInfo.IsReserved() {
				reserved++
			}
			if li.ReservationInfo.IsFailed() {
				failed++
			}
		}
		return reserved == 1 && failed == 1
	}, waitFor, tick)

	assert.Equal(t, orderdomain.StatusPartiallyReserved, fx.orderStatus(t, "ORD-3"))
}

func TestSagaAbsorbsWesSubmissionFailure(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()
	fx.wes.submitErr = fmt.Errorf("wes unreachable")

	startFulfillment(t, fx, "ORD-4",
		observationdomain.ObservedOrderItem{SKU: "SKU-100", Quantity: 5, Price: 9.99},
	)

	require.Eventually(t, func() bool {
		tasks, err := fx.taskRepo.FindByOrderID(ctx, "ORD-4")
		require.NoError(t, err)
		return len(tasks) == 1 && tasks[0].Status == wesdomain.TaskFailed
	}, waitFor, tick)

	tasks, err := fx.taskRepo.FindByOrderID(ctx, "ORD-4")
	require.NoError(t, err)
	assert.Contains(t, tasks[0].FailureReason, "wes submission failed")
	// The reservation survives the failed hand-off.
	assert.Equal(t, orderdomain.StatusReserved, fx.orderStatus(t, "ORD-4"))
}

func TestSagaCanceledTaskReleasesReservations(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()

	startFulfillment(t, fx, "ORD-5",
		observationdomain.ObservedOrderItem{SKU: "SKU-100", Quantity: 5, Price: 9.99},
	)

	var wesTaskID string
	require.Eventually(t, func() bool {
		tasks, err := fx.taskRepo.FindByOrderID(ctx, "ORD-5")
		require.NoError(t, err)
		if len(tasks) != 1 || tasks[0].Status != wesdomain.TaskSubmitted {
			return false
		}
		wesTaskID = tasks[0].WesTaskID
		return true
	}, waitFor, tick)

	fx.publish(t, wesdomain.NewWesTaskStatusUpdatedEvent(wesTaskID, string(wesdomain.TaskCanceled)))

	require.Eventually(t, func() bool {
		return len(fx.inventory.releasedIDs()) == 1
	}, waitFor, tick)
	assert.Equal(t, []string{"RSV-SKU-100"}, fx.inventory.releasedIDs())

	order, err := fx.orderRepo.FindByID(ctx, "ORD-5")
	require.NoError(t, err)
	for _, li := range order.LineItems {
		require.NotNil(t, li.CommitmentInfo)
		assert.Equal(t, orderdomain.CommitmentFailed, li.CommitmentInfo.Status)
	}
}

func TestSagaRegistersDiscoveredWesTask(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()

	fx.publish(t, wesdomain.NewWesTaskDiscoveredEvent("WES-EXT-1", wesdomain.TaskInProgress,
		[]wesdomain.TaskItem{{SKU: "SKU-900", Quantity: 1, Location: "WH001"}}, 3))

	require.Eventually(t, func() bool {
		task, err := fx.taskRepo.FindByWesTaskID(ctx, "WES-EXT-1")
		require.NoError(t, err)
		return task != nil && task.Status == wesdomain.TaskInProgress
	}, waitFor, tick)

	task, err := fx.taskRepo.FindByWesTaskID(ctx, "WES-EXT-1")
	require.NoError(t, err)
	assert.Equal(t, wesdomain.OriginWesDirect, task.Origin)
	assert.Empty(t, task.OrderID)
}

func TestSagaWesDirectTaskNeverMutatesOrders(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()

	terminal := []wesdomain.TaskStatus{wesdomain.TaskCompleted, wesdomain.TaskFailed, wesdomain.TaskCanceled}
	for i, status := range terminal {
		wesTaskID := fmt.Sprintf("WES-EXT-%d", i+10)
		fx.publish(t, wesdomain.NewWesTaskDiscoveredEvent(wesTaskID, wesdomain.TaskInProgress,
			[]wesdomain.TaskItem{{SKU: "SKU-900", Quantity: 1, Location: "WH001"}}, 3))
		require.Eventually(t, func() bool {
			task, err := fx.taskRepo.FindByWesTaskID(ctx, wesTaskID)
			require.NoError(t, err)
			return task != nil && task.Status == wesdomain.TaskInProgress
		}, waitFor, tick)

		fx.publish(t, wesdomain.NewWesTaskStatusUpdatedEvent(wesTaskID, string(status)))
		require.Eventually(t, func() bool {
			task, err := fx.taskRepo.FindByWesTaskID(ctx, wesTaskID)
			require.NoError(t, err)
			return task != nil && task.Status == status
		}, waitFor, tick)
	}

	// Let any follow-up handlers drain before inspecting side effects.
	time.Sleep(100 * time.Millisecond)
	fx.orderRepo.mu.Lock()
	orderCount := len(fx.orderRepo.orders)
	fx.orderRepo.mu.Unlock()
	assert.Zero(t, orderCount, "externally discovered tasks must not create or touch orders")
	assert.Empty(t, fx.inventory.consumedIDs())
	assert.Empty(t, fx.inventory.releasedIDs())
}

func TestSagaOpensAdjustmentForSnapshotDiscrepancy(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()
	fx.wes.stock = []wesdomain.StockLevel{
		{SKU: "SKU-100", WarehouseID: "WH001", Quantity: 40},
	}

	fx.publish(t, observationdomain.NewInventorySnapshotObservedEvent("inventory-observer-1",
		[]invdomain.StockSnapshot{{SKU: "SKU-100", WarehouseID: "WH001", Quantity: 42}}))

	require.Eventually(t, func() bool {
		pending, err := fx.adjRepo.FindByStatus(ctx, invdomain.AdjustmentPending, 10)
		require.NoError(t, err)
		return len(pending) == 1
	}, waitFor, tick)

	pending, err := fx.adjRepo.FindByStatus(ctx, invdomain.AdjustmentPending, 10)
	require.NoError(t, err)
	require.Len(t, pending[0].DiscrepancyLogs, 1)
	log := pending[0].DiscrepancyLogs[0]
	assert.Equal(t, "SKU-100", log.SKU)
	assert.Equal(t, 40, log.ExpectedQuantity)
	assert.Equal(t, 42, log.ActualQuantity)
}

func TestSagaMatchingSnapshotLeavesNoAdjustment(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()
	fx.wes.stock = []wesdomain.StockLevel{
		{SKU: "SKU-100", WarehouseID: "WH001", Quantity: 42},
	}

	fx.publish(t, observationdomain.NewInventorySnapshotObservedEvent("inventory-observer-1",
		[]invdomain.StockSnapshot{{SKU: "SKU-100", WarehouseID: "WH001", Quantity: 42}}))

	time.Sleep(100 * time.Millisecond)
	pending, err := fx.adjRepo.FindByStatus(ctx, invdomain.AdjustmentPending, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInventoryReservedSkipsMissingOrder(t *testing.T) {
	fx := newSagaFixture(t)

	env := eventbus.NewEnvelope(
		invdomain.NewInventoryReservedEvent("tx-1", "ORD-MISSING", "RSV-1"),
		events.Scheduled("test"))
	err := fx.coordinator.handleInventoryReserved(context.Background(), env)
	assert.NoError(t, err)
}

func TestOrderReservedFailsOnMissingOrder(t *testing.T) {
	fx := newSagaFixture(t)

	env := eventbus.NewEnvelope(
		orderdomain.NewOrderReservedEvent("ORD-MISSING", nil),
		events.Scheduled("test"))
	err := fx.coordinator.handleOrderReserved(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order not found")
}

func TestSagaRedeliveryDoesNotDuplicatePickingTask(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()

	startFulfillment(t, fx, "ORD-6",
		observationdomain.ObservedOrderItem{SKU: "SKU-100", Quantity: 5, Price: 9.99},
	)

	require.Eventually(t, func() bool {
		tasks, err := fx.taskRepo.FindByOrderID(ctx, "ORD-6")
		require.NoError(t, err)
		return len(tasks) == 1 && tasks[0].Status == wesdomain.TaskSubmitted
	}, waitFor, tick)

	// Redeliver the same OrderReserved event.
	env := eventbus.NewEnvelope(orderdomain.NewOrderReservedEvent("ORD-6", nil), events.Scheduled("test"))
	require.NoError(t, fx.coordinator.handleOrderReserved(ctx, env))

	tasks, err := fx.taskRepo.FindByOrderID(ctx, "ORD-6")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestReservationFailureReasonCarriesFirstReason(t *testing.T) {
	fx := newSagaFixture(t)
	ctx := context.Background()
	fx.inventory.failSKUs["SKU-100"] = invdomain.ErrInsufficientInventory

	startFulfillment(t, fx, "ORD-7",
		observationdomain.ObservedOrderItem{SKU: "SKU-100", Quantity: 5, Price: 9.99},
	)

	require.Eventually(t, func() bool {
		return fx.orderStatus(t, "ORD-7") == orderdomain.StatusFailedToReserve
	}, waitFor, tick)

	txs, err := fx.txRepo.FindBySourceReference(ctx, "ORD-7")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, invdomain.TransactionFailed, txs[0].Status)
	assert.Equal(t, "insufficient inventory", txs[0].FailureReason)
}

func TestTransactionCountersTrackTerminalOutcomes(t *testing.T) {
	fx := newSagaFixture(t)
	fx.inventory.failSKUs["SKU-200"] = invdomain.ErrInsufficientInventory

	startFulfillment(t, fx, "ORD-8",
		observationdomain.ObservedOrderItem{SKU: "SKU-100", Quantity: 5, Price: 9.99},
		observationdomain.ObservedOrderItem{SKU: "SKU-200", Quantity: 2, Price: 3.50},
	)

	require.Eventually(t, func() bool {
		return fx.orderStatus(t, "ORD-8") == orderdomain.StatusPartiallyReserved
	}, waitFor, tick)

	outbound := string(invdomain.TypeOutbound)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.TransactionsCompleted.WithLabelValues(outbound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.TransactionsFailed.WithLabelValues(outbound)))
}
