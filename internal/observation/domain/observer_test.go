package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invdomain "github.com/levijcl/Wei-sub000/internal/inventory/domain"
	wesdomain "github.com/levijcl/Wei-sub000/internal/wes/domain"
)

type fakeOrderSource struct {
	results   []ObservationResult
	err       error
	lastSince *time.Time
	calls     int
}

func (f *fakeOrderSource) FetchNewOrders(_ context.Context, _ SourceEndpoint, since *time.Time) ([]ObservationResult, error) {
	f.calls++
	f.lastSince = since
	return f.results, f.err
}

type fakeWesPort struct {
	tasks []wesdomain.WesTaskDto
	err   error
}

func (f *fakeWesPort) SubmitPickingTask(context.Context, *wesdomain.PickingTask) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeWesPort) CancelTask(context.Context, string) error { return nil }

func (f *fakeWesPort) AdjustTaskPriority(context.Context, string, int) error { return nil }

func (f *fakeWesPort) PollAllTasks(context.Context) ([]wesdomain.WesTaskDto, error) {
	return f.tasks, f.err
}

func (f *fakeWesPort) GetStockSnapshot(context.Context) ([]wesdomain.StockLevel, error) {
	return nil, nil
}

type fakeInventoryPort struct {
	snapshots []invdomain.StockSnapshot
	err       error
}

func (f *fakeInventoryPort) CreateReservation(context.Context, string, string, string, int) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeInventoryPort) ConsumeReservation(context.Context, string) error { return nil }

func (f *fakeInventoryPort) ReleaseReservation(context.Context, string) error { return nil }

func (f *fakeInventoryPort) IncreaseInventory(context.Context, string, string, int) error {
	return nil
}

func (f *fakeInventoryPort) AdjustInventory(context.Context, string, string, int) error { return nil }

func (f *fakeInventoryPort) GetInventorySnapshot(context.Context) ([]invdomain.StockSnapshot, error) {
	return f.snapshots, f.err
}

func mustInterval(t *testing.T, d time.Duration) PollingInterval {
	t.Helper()
	interval, err := NewPollingInterval(d)
	require.NoError(t, err)
	return interval
}

func validObservation(orderID string) ObservationResult {
	return ObservationResult{
		OrderID:         orderID,
		CustomerName:    "Wei Chen",
		ShippingAddress: "No. 7, Section 5, Xinyi Road, Taipei",
		WarehouseID:     "WH-01",
		Status:          "CREATED",
		Items: []ObservedOrderItem{
			{SKU: "SKU-100", ProductName: "Widget", Quantity: 2, Price: 19.90},
		},
		ObservedAt: time.Now().UTC(),
	}
}

func TestNewPollingIntervalValidation(t *testing.T) {
	_, err := NewPollingInterval(5 * time.Second)
	assert.ErrorIs(t, err, ErrIntervalTooShort)

	interval, err := NewPollingInterval(30 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, interval.Duration())
}

func TestShouldPoll(t *testing.T) {
	endpoint, err := NewSourceEndpoint("oracle://orders.example.com:1521/ORDERS", "reader", "secret")
	require.NoError(t, err)
	observer, err := NewOrderObserver("order-observer-1", endpoint, mustInterval(t, 30*time.Second))
	require.NoError(t, err)

	now := time.Now().UTC()

	// never polled
	assert.True(t, observer.ShouldPoll(now))

	// polled 10s ago with a 30s interval
	recent := now.Add(-10 * time.Second)
	observer.LastPolledTimestamp = &recent
	assert.False(t, observer.ShouldPoll(now))

	// polled 31s ago
	stale := now.Add(-31 * time.Second)
	observer.LastPolledTimestamp = &stale
	assert.True(t, observer.ShouldPoll(now))

	// deactivated observers never poll
	observer.Deactivate()
	assert.False(t, observer.ShouldPoll(now))
	observer.Activate()
	assert.True(t, observer.ShouldPoll(now))
}

func TestPollOrderSourceEmitsPerObservedOrder(t *testing.T) {
	endpoint, err := NewSourceEndpoint("oracle://orders.example.com:1521/ORDERS", "reader", "secret")
	require.NoError(t, err)
	observer, err := NewOrderObserver("order-observer-1", endpoint, mustInterval(t, 30*time.Second))
	require.NoError(t, err)

	source := &fakeOrderSource{results: []ObservationResult{
		validObservation("ORD-001"),
		validObservation("ORD-002"),
	}}

	require.NoError(t, observer.PollOrderSource(context.Background(), source))
	require.NotNil(t, observer.LastPolledTimestamp)
	assert.Nil(t, source.lastSince, "first poll fetches everything")

	evts := observer.GetDomainEvents()
	require.Len(t, evts, 2)
	observed, ok := evts[0].(*NewOrderObservedEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeNewOrderObserved, observed.EventType())
	assert.Equal(t, "ORD-001", observed.ObservedOrder.OrderID)
	assert.Equal(t, "order-observer-1", observed.ObserverID)
}

func TestPollOrderSourceSkipsInvalidResults(t *testing.T) {
	endpoint, err := NewSourceEndpoint("oracle://orders.example.com:1521/ORDERS", "reader", "secret")
	require.NoError(t, err)
	observer, err := NewOrderObserver("order-observer-1", endpoint, mustInterval(t, 30*time.Second))
	require.NoError(t, err)

	invalid := validObservation("ORD-BAD")
	invalid.Items = nil
	source := &fakeOrderSource{results: []ObservationResult{invalid, validObservation("ORD-001")}}

	require.NoError(t, observer.PollOrderSource(context.Background(), source))
	require.Len(t, observer.GetDomainEvents(), 1)
}

func TestPollOrderSourceRespectsInterval(t *testing.T) {
	endpoint, err := NewSourceEndpoint("oracle://orders.example.com:1521/ORDERS", "reader", "secret")
	require.NoError(t, err)
	observer, err := NewOrderObserver("order-observer-1", endpoint, mustInterval(t, 30*time.Second))
	require.NoError(t, err)

	source := &fakeOrderSource{results: []ObservationResult{validObservation("ORD-001")}}
	require.NoError(t, observer.PollOrderSource(context.Background(), source))
	require.NoError(t, observer.PollOrderSource(context.Background(), source))

	assert.Equal(t, 1, source.calls, "second poll inside the interval is skipped")
}

func TestPollOrderSourceErrorLeavesLastPolledUnchanged(t *testing.T) {
	endpoint, err := NewSourceEndpoint("oracle://orders.example.com:1521/ORDERS", "reader", "secret")
	require.NoError(t, err)
	observer, err := NewOrderObserver("order-observer-1", endpoint, mustInterval(t, 30*time.Second))
	require.NoError(t, err)

	source := &fakeOrderSource{err: errors.New("connection refused")}
	assert.Error(t, observer.PollOrderSource(context.Background(), source))
	assert.Nil(t, observer.LastPolledTimestamp)
	assert.Empty(t, observer.GetDomainEvents())
}

func TestPollWesTasksDiscoversUnknownTask(t *testing.T) {
	endpoint, err := NewTaskEndpoint("http://wes.example.com/api/tasks", "token")
	require.NoError(t, err)
	observer, err := NewWesObserver("wes-observer-1", endpoint, mustInterval(t, 30*time.Second))
	require.NoError(t, err)

	wes := &fakeWesPort{tasks: []wesdomain.WesTaskDto{
		{WesTaskID: "WES-900", Status: "IN_PROGRESS", Priority: 4, Items: []wesdomain.TaskItem{{SKU: "SKU-500", Quantity: 1}}},
	}}

	require.NoError(t, observer.PollWesTasks(context.Background(), wes, nil))

	evts := observer.GetDomainEvents()
	require.Len(t, evts, 1)
	discovered, ok := evts[0].(*wesdomain.WesTaskDiscoveredEvent)
	require.True(t, ok)
	assert.Equal(t, "WES-900", discovered.WesTaskID)
	assert.Equal(t, wesdomain.TaskInProgress, discovered.Status)
}

func TestPollWesTasksEmitsOnStatusChangeOnly(t *testing.T) {
	endpoint, err := NewTaskEndpoint("http://wes.example.com/api/tasks", "token")
	require.NoError(t, err)
	observer, err := NewWesObserver("wes-observer-1", endpoint, mustInterval(t, 30*time.Second))
	require.NoError(t, err)

	task, err := wesdomain.CreateForOrder("ORD-001", []wesdomain.TaskItem{{SKU: "SKU-100", Quantity: 5}}, 5)
	require.NoError(t, err)
	require.NoError(t, task.SubmitToWes("WES-100"))

	// same status as local: nothing to report
	wes := &fakeWesPort{tasks: []wesdomain.WesTaskDto{{WesTaskID: "WES-100", Status: "SUBMITTED", Priority: 5}}}
	require.NoError(t, observer.PollWesTasks(context.Background(), wes, []*wesdomain.PickingTask{task}))
	assert.Empty(t, observer.GetDomainEvents())

	// WES moved the task forward
	observer.LastPolledTimestamp = nil
	wes.tasks = []wesdomain.WesTaskDto{{WesTaskID: "WES-100", Status: "COMPLETED", Priority: 5}}
	require.NoError(t, observer.PollWesTasks(context.Background(), wes, []*wesdomain.PickingTask{task}))

	evts := observer.GetDomainEvents()
	require.Len(t, evts, 1)
	updated, ok := evts[0].(*wesdomain.WesTaskStatusUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, "WES-100", updated.WesTaskID)
	assert.Equal(t, "COMPLETED", updated.Status)
}

func TestPollWesTasksSkipsUnparsableStatus(t *testing.T) {
	endpoint, err := NewTaskEndpoint("http://wes.example.com/api/tasks", "token")
	require.NoError(t, err)
	observer, err := NewWesObserver("wes-observer-1", endpoint, mustInterval(t, 30*time.Second))
	require.NoError(t, err)

	wes := &fakeWesPort{tasks: []wesdomain.WesTaskDto{{WesTaskID: "WES-901", Status: "EXPLODED"}}}
	require.NoError(t, observer.PollWesTasks(context.Background(), wes, nil))
	assert.Empty(t, observer.GetDomainEvents())
}

func TestPollInventorySnapshot(t *testing.T) {
	rule, err := NewObservationRule(5.0, 10)
	require.NoError(t, err)
	observer, err := NewInventoryObserver("inventory-observer-1", rule, mustInterval(t, 60*time.Second))
	require.NoError(t, err)

	inventory := &fakeInventoryPort{snapshots: []invdomain.StockSnapshot{
		{SKU: "SKU-001", Quantity: 10, WarehouseID: "WH-01"},
		{SKU: "SKU-002", Quantity: 3, WarehouseID: "WH-01"},
	}}

	require.NoError(t, observer.PollInventorySnapshot(context.Background(), inventory))

	evts := observer.GetDomainEvents()
	require.Len(t, evts, 1)
	snapshot, ok := evts[0].(*InventorySnapshotObservedEvent)
	require.True(t, ok)
	assert.Len(t, snapshot.Snapshots, 2)
	assert.Equal(t, "inventory-observer-1", snapshot.ObserverID)
}

func TestObservationResultValidate(t *testing.T) {
	valid := validObservation("ORD-001")
	assert.NoError(t, valid.Validate())

	blank := validObservation("")
	assert.ErrorIs(t, blank.Validate(), ErrBlankOrderID)

	noItems := validObservation("ORD-001")
	noItems.Items = nil
	assert.ErrorIs(t, noItems.Validate(), ErrNoObservedItems)

	badItem := validObservation("ORD-001")
	badItem.Items = []ObservedOrderItem{{SKU: "", Quantity: 1}}
	assert.ErrorIs(t, badItem.Validate(), ErrInvalidObservedItem)
}
