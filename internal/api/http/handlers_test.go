package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	invdomain "github.com/levijcl/Wei-sub000/internal/inventory/domain"
	orderdomain "github.com/levijcl/Wei-sub000/internal/order/domain"
	wesdomain "github.com/levijcl/Wei-sub000/internal/wes/domain"

	invapp "github.com/levijcl/Wei-sub000/internal/inventory/application"
	orderapp "github.com/levijcl/Wei-sub000/internal/order/application"
	wesapp "github.com/levijcl/Wei-sub000/internal/wes/application"

	"github.com/levijcl/Wei-sub000/pkg/eventbus"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

var errUnexpected = errors.New("unexpected call")

type fakeOrderRepo struct {
	saveFn         func(context.Context, *orderdomain.Order) error
	findByIDFn     func(context.Context, string) (*orderdomain.Order, error)
	findByStatusFn func(context.Context, orderdomain.Status, int64) ([]*orderdomain.Order, error)
}

func (f *fakeOrderRepo) Save(ctx context.Context, order *orderdomain.Order) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, order)
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, orderID string) (*orderdomain.Order, error) {
	if f.findByIDFn == nil {
		return nil, errUnexpected
	}
	return f.findByIDFn(ctx, orderID)
}

func (f *fakeOrderRepo) FindByStatus(ctx context.Context, status orderdomain.Status, limit int64) ([]*orderdomain.Order, error) {
	if f.findByStatusFn == nil {
		return nil, errUnexpected
	}
	return f.findByStatusFn(ctx, status, limit)
}

func (f *fakeOrderRepo) FindScheduledBefore(context.Context, time.Time, int64) ([]*orderdomain.Order, error) {
	return nil, errUnexpected
}

type fakeTaskRepo struct {
	saveFn     func(context.Context, *wesdomain.PickingTask) error
	findByIDFn func(context.Context, string) (*wesdomain.PickingTask, error)
}

func (f *fakeTaskRepo) Save(ctx context.Context, task *wesdomain.PickingTask) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, task)
}

func (f *fakeTaskRepo) FindByID(ctx context.Context, taskID string) (*wesdomain.PickingTask, error) {
	if f.findByIDFn == nil {
		return nil, errUnexpected
	}
	return f.findByIDFn(ctx, taskID)
}

func (f *fakeTaskRepo) FindByWesTaskID(context.Context, string) (*wesdomain.PickingTask, error) {
	return nil, errUnexpected
}

func (f *fakeTaskRepo) FindByOrderID(context.Context, string) ([]*wesdomain.PickingTask, error) {
	return nil, errUnexpected
}

func (f *fakeTaskRepo) FindByStatus(context.Context, wesdomain.TaskStatus, int64) ([]*wesdomain.PickingTask, error) {
	return nil, errUnexpected
}

type fakeTxRepo struct {
	saveFn      func(context.Context, *invdomain.InventoryTransaction) error
	findBySrcFn func(context.Context, string) ([]*invdomain.InventoryTransaction, error)
	findByIDFn  func(context.Context, string) (*invdomain.InventoryTransaction, error)
}

func (f *fakeTxRepo) Save(ctx context.Context, tx *invdomain.InventoryTransaction) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, tx)
}

func (f *fakeTxRepo) FindByID(ctx context.Context, transactionID string) (*invdomain.InventoryTransaction, error) {
	if f.findByIDFn == nil {
		return nil, errUnexpected
	}
	return f.findByIDFn(ctx, transactionID)
}

func (f *fakeTxRepo) FindBySourceReference(ctx context.Context, sourceReferenceID string) ([]*invdomain.InventoryTransaction, error) {
	if f.findBySrcFn == nil {
		return nil, errUnexpected
	}
	return f.findBySrcFn(ctx, sourceReferenceID)
}

func (f *fakeTxRepo) FindByStatus(context.Context, invdomain.TransactionStatus, int64) ([]*invdomain.InventoryTransaction, error) {
	return nil, errUnexpected
}

type fakeAdjRepo struct {
	saveFn     func(context.Context, *invdomain.InventoryAdjustment) error
	findByIDFn func(context.Context, string) (*invdomain.InventoryAdjustment, error)
}

func (f *fakeAdjRepo) Save(ctx context.Context, adjustment *invdomain.InventoryAdjustment) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, adjustment)
}

func (f *fakeAdjRepo) FindByID(ctx context.Context, adjustmentID string) (*invdomain.InventoryAdjustment, error) {
	if f.findByIDFn == nil {
		return nil, errUnexpected
	}
	return f.findByIDFn(ctx, adjustmentID)
}

func (f *fakeAdjRepo) FindByStatus(context.Context, invdomain.AdjustmentStatus, int64) ([]*invdomain.InventoryAdjustment, error) {
	return nil, errUnexpected
}

type fakeWes struct {
	cancelFn         func(context.Context, string) error
	adjustPriorityFn func(context.Context, string, int) error
}

func (f *fakeWes) SubmitPickingTask(context.Context, *wesdomain.PickingTask) (string, error) {
	return "", errUnexpected
}

func (f *fakeWes) CancelTask(ctx context.Context, wesTaskID string) error {
	if f.cancelFn == nil {
		return errUnexpected
	}
	return f.cancelFn(ctx, wesTaskID)
}

func (f *fakeWes) AdjustTaskPriority(ctx context.Context, wesTaskID string, priority int) error {
	if f.adjustPriorityFn == nil {
		return errUnexpected
	}
	return f.adjustPriorityFn(ctx, wesTaskID, priority)
}

func (f *fakeWes) PollAllTasks(context.Context) ([]wesdomain.WesTaskDto, error) {
	return nil, errUnexpected
}

func (f *fakeWes) GetStockSnapshot(context.Context) ([]wesdomain.StockLevel, error) {
	return nil, errUnexpected
}

type fakeInventory struct {
	adjustFn func(context.Context, string, string, int) error
}

func (f *fakeInventory) CreateReservation(context.Context, string, string, string, int) (string, error) {
	return "", errUnexpected
}

func (f *fakeInventory) ConsumeReservation(context.Context, string) error {
	return errUnexpected
}

func (f *fakeInventory) ReleaseReservation(context.Context, string) error {
	return errUnexpected
}

func (f *fakeInventory) IncreaseInventory(context.Context, string, string, int) error {
	return errUnexpected
}

func (f *fakeInventory) AdjustInventory(ctx context.Context, sku, warehouseID string, quantity int) error {
	if f.adjustFn == nil {
		return errUnexpected
	}
	return f.adjustFn(ctx, sku, warehouseID, quantity)
}

func (f *fakeInventory) GetInventorySnapshot(context.Context) ([]invdomain.StockSnapshot, error) {
	return nil, errUnexpected
}

type handlerEnv struct {
	router    *gin.Engine
	orderRepo *fakeOrderRepo
	taskRepo  *fakeTaskRepo
	txRepo    *fakeTxRepo
	adjRepo   *fakeAdjRepo
	wes       *fakeWes
	inventory *fakeInventory
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test"})
	m := metrics.New("apitest")

	bus := eventbus.New(eventbus.DefaultConfig(), logger, m)
	t.Cleanup(bus.Close)

	orderRepo := &fakeOrderRepo{}
	taskRepo := &fakeTaskRepo{}
	txRepo := &fakeTxRepo{}
	adjRepo := &fakeAdjRepo{}
	wes := &fakeWes{}
	inventory := &fakeInventory{}

	orders := orderapp.NewOrderApplicationService(orderRepo, bus, logger, m)
	tasks := wesapp.NewPickingTaskApplicationService(taskRepo, wes, bus, logger, m)
	transactions := invapp.NewInventoryTransactionApplicationService(txRepo, inventory, bus, logger, m)
	adjustments := invapp.NewInventoryAdjustmentApplicationService(adjRepo, txRepo, inventory, wes, bus, logger, m)

	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{
		ServiceName: "test",
		Logger:      logger,
		Metrics:     m,
		Orders:      NewOrderHandler(orders, logger, m),
		Tasks:       NewTaskHandler(tasks, logger, m),
		Inventory:   NewInventoryHandler(transactions, adjustments, logger, m),
	})

	return &handlerEnv{
		router:    router,
		orderRepo: orderRepo,
		taskRepo:  taskRepo,
		txRepo:    txRepo,
		adjRepo:   adjRepo,
		wes:       wes,
		inventory: inventory,
	}
}

func performRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newTestOrder(t *testing.T, orderID string) *orderdomain.Order {
	t.Helper()
	order, err := orderdomain.NewOrder(orderID, []orderdomain.OrderLineItem{
		orderdomain.NewOrderLineItem("SKU-1", 2, 9.99),
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderBadJSON(t *testing.T) {
	env := newHandlerEnv(t)
	resp := performRequest(env.router, http.MethodPost, "/api/v1/orders", []byte("{bad"))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateOrderMissingItems(t *testing.T) {
	env := newHandlerEnv(t)
	body, err := json.Marshal(map[string]any{"orderId": "ORD-1"})
	require.NoError(t, err)

	resp := performRequest(env.router, http.MethodPost, "/api/v1/orders", body)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateOrderSuccess(t *testing.T) {
	env := newHandlerEnv(t)
	env.orderRepo.findByIDFn = func(context.Context, string) (*orderdomain.Order, error) {
		return nil, nil
	}
	env.orderRepo.saveFn = func(context.Context, *orderdomain.Order) error { return nil }

	body, err := json.Marshal(map[string]any{
		"orderId": "ORD-1",
		"items": []map[string]any{
			{"sku": "SKU-1", "quantity": 2, "price": 9.99},
		},
	})
	require.NoError(t, err)

	resp := performRequest(env.router, http.MethodPost, "/api/v1/orders", body)
	require.Equal(t, http.StatusCreated, resp.Code)

	var created orderapp.OrderDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.Equal(t, "ORD-1", created.OrderID)
	require.Equal(t, string(orderdomain.StatusCreated), created.Status)
}

func TestCreateOrderConflict(t *testing.T) {
	env := newHandlerEnv(t)
	env.orderRepo.findByIDFn = func(ctx context.Context, orderID string) (*orderdomain.Order, error) {
		return newTestOrder(t, orderID), nil
	}

	body, err := json.Marshal(map[string]any{
		"orderId": "ORD-1",
		"items":   []map[string]any{{"sku": "SKU-1", "quantity": 1}},
	})
	require.NoError(t, err)

	resp := performRequest(env.router, http.MethodPost, "/api/v1/orders", body)
	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	env.orderRepo.findByIDFn = func(context.Context, string) (*orderdomain.Order, error) {
		return nil, nil
	}

	resp := performRequest(env.router, http.MethodGet, "/api/v1/orders/ORD-404", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetOrderSuccess(t *testing.T) {
	env := newHandlerEnv(t)
	env.orderRepo.findByIDFn = func(ctx context.Context, orderID string) (*orderdomain.Order, error) {
		return newTestOrder(t, orderID), nil
	}

	resp := performRequest(env.router, http.MethodGet, "/api/v1/orders/ORD-1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestListOrdersRequiresStatus(t *testing.T) {
	env := newHandlerEnv(t)
	resp := performRequest(env.router, http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	env := newHandlerEnv(t)
	resp := performRequest(env.router, http.MethodGet, "/api/v1/orders?status=BOGUS", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListOrdersSuccess(t *testing.T) {
	env := newHandlerEnv(t)
	env.orderRepo.findByStatusFn = func(ctx context.Context, status orderdomain.Status, limit int64) ([]*orderdomain.Order, error) {
		require.Equal(t, orderdomain.StatusCreated, status)
		require.Equal(t, int64(10), limit)
		return []*orderdomain.Order{newTestOrder(t, "ORD-1")}, nil
	}

	resp := performRequest(env.router, http.MethodGet, "/api/v1/orders?status=CREATED&limit=10", nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestInitiateFulfillmentNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	env.orderRepo.findByIDFn = func(context.Context, string) (*orderdomain.Order, error) {
		return nil, nil
	}

	resp := performRequest(env.router, http.MethodPost, "/api/v1/orders/ORD-404/fulfillment", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestInitiateFulfillmentSuccess(t *testing.T) {
	env := newHandlerEnv(t)
	env.orderRepo.findByIDFn = func(ctx context.Context, orderID string) (*orderdomain.Order, error) {
		return newTestOrder(t, orderID), nil
	}
	env.orderRepo.saveFn = func(context.Context, *orderdomain.Order) error { return nil }

	resp := performRequest(env.router, http.MethodPost, "/api/v1/orders/ORD-1/fulfillment", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var updated orderapp.OrderDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	require.Equal(t, string(orderdomain.StatusAwaitingFulfillment), updated.Status)
}

func TestMarkShippedRejectsUncommittedOrder(t *testing.T) {
	env := newHandlerEnv(t)
	env.orderRepo.findByIDFn = func(ctx context.Context, orderID string) (*orderdomain.Order, error) {
		return newTestOrder(t, orderID), nil
	}

	body, err := json.Marshal(map[string]any{"carrier": "UPS", "trackingNumber": "1Z999"})
	require.NoError(t, err)

	resp := performRequest(env.router, http.MethodPost, "/api/v1/orders/ORD-1/shipment", body)
	require.Equal(t, http.StatusConflict, resp.Code)
}

func newSubmittedTask(t *testing.T) *wesdomain.PickingTask {
	t.Helper()
	task, err := wesdomain.CreateForOrder("ORD-1", []wesdomain.TaskItem{{SKU: "SKU-1", Quantity: 2, Location: "WH001"}}, 5)
	require.NoError(t, err)
	require.NoError(t, task.SubmitToWes("WES-1"))
	task.ClearDomainEvents()
	return task
}

func TestGetTaskNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	env.taskRepo.findByIDFn = func(context.Context, string) (*wesdomain.PickingTask, error) {
		return nil, nil
	}

	resp := performRequest(env.router, http.MethodGet, "/api/v1/picking-tasks/PICK-404", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAdjustPriorityValidation(t *testing.T) {
	env := newHandlerEnv(t)
	body, err := json.Marshal(map[string]any{"priority": 0})
	require.NoError(t, err)

	resp := performRequest(env.router, http.MethodPut, "/api/v1/picking-tasks/PICK-1/priority", body)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdjustPrioritySuccess(t *testing.T) {
	env := newHandlerEnv(t)
	task := newSubmittedTask(t)
	env.taskRepo.findByIDFn = func(context.Context, string) (*wesdomain.PickingTask, error) {
		return task, nil
	}
	env.taskRepo.saveFn = func(context.Context, *wesdomain.PickingTask) error { return nil }

	var adjustedTo int
	env.wes.adjustPriorityFn = func(ctx context.Context, wesTaskID string, priority int) error {
		require.Equal(t, "WES-1", wesTaskID)
		adjustedTo = priority
		return nil
	}

	body, err := json.Marshal(map[string]any{"priority": 8})
	require.NoError(t, err)

	resp := performRequest(env.router, http.MethodPut, "/api/v1/picking-tasks/"+task.TaskID+"/priority", body)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, 8, adjustedTo)
}

func TestAdjustPriorityWesUnavailable(t *testing.T) {
	env := newHandlerEnv(t)
	task := newSubmittedTask(t)
	env.taskRepo.findByIDFn = func(context.Context, string) (*wesdomain.PickingTask, error) {
		return task, nil
	}
	env.wes.adjustPriorityFn = func(context.Context, string, int) error {
		return errors.New("connection refused")
	}

	body, err := json.Marshal(map[string]any{"priority": 8})
	require.NoError(t, err)

	resp := performRequest(env.router, http.MethodPut, "/api/v1/picking-tasks/"+task.TaskID+"/priority", body)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestCancelTaskSuccess(t *testing.T) {
	env := newHandlerEnv(t)
	task := newSubmittedTask(t)
	env.taskRepo.findByIDFn = func(context.Context, string) (*wesdomain.PickingTask, error) {
		return task, nil
	}
	env.taskRepo.saveFn = func(context.Context, *wesdomain.PickingTask) error { return nil }

	var canceled string
	env.wes.cancelFn = func(ctx context.Context, wesTaskID string) error {
		canceled = wesTaskID
		return nil
	}

	resp := performRequest(env.router, http.MethodPost, "/api/v1/picking-tasks/"+task.TaskID+"/cancel", nil)
	require.Equal(t, http.StatusAccepted, resp.Code)
	require.Equal(t, "WES-1", canceled)
}

func TestListOrderTransactions(t *testing.T) {
	env := newHandlerEnv(t)
	env.txRepo.findBySrcFn = func(ctx context.Context, sourceReferenceID string) ([]*invdomain.InventoryTransaction, error) {
		require.Equal(t, "ORD-1", sourceReferenceID)
		return nil, nil
	}

	resp := performRequest(env.router, http.MethodGet, "/api/v1/orders/ORD-1/transactions", nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestGetAdjustmentNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	env.adjRepo.findByIDFn = func(context.Context, string) (*invdomain.InventoryAdjustment, error) {
		return nil, nil
	}

	resp := performRequest(env.router, http.MethodGet, "/api/v1/inventory-adjustments/ADJ-404", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestApplyAdjustmentNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	env.adjRepo.findByIDFn = func(context.Context, string) (*invdomain.InventoryAdjustment, error) {
		return nil, nil
	}

	resp := performRequest(env.router, http.MethodPost, "/api/v1/inventory-adjustments/ADJ-404/apply", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestApplyAdjustmentSuccess(t *testing.T) {
	env := newHandlerEnv(t)
	adjustment := invdomain.DetectDiscrepancy(
		[]invdomain.StockSnapshot{{SKU: "SKU-1", WarehouseID: "WH001", Quantity: 42}},
		[]invdomain.StockSnapshot{{SKU: "SKU-1", WarehouseID: "WH001", Quantity: 40}},
	)
	require.NotNil(t, adjustment)
	adjustment.ClearDomainEvents()

	env.adjRepo.findByIDFn = func(context.Context, string) (*invdomain.InventoryAdjustment, error) {
		return adjustment, nil
	}
	env.adjRepo.saveFn = func(context.Context, *invdomain.InventoryAdjustment) error { return nil }
	env.txRepo.saveFn = func(context.Context, *invdomain.InventoryTransaction) error { return nil }

	var adjustedBy int
	env.inventory.adjustFn = func(ctx context.Context, sku, warehouseID string, quantity int) error {
		require.Equal(t, "SKU-1", sku)
		adjustedBy = quantity
		return nil
	}

	resp := performRequest(env.router, http.MethodPost, "/api/v1/inventory-adjustments/"+adjustment.AdjustmentID+"/apply", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, -2, adjustedBy)
}

func TestHealthEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	resp := performRequest(env.router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)
}
