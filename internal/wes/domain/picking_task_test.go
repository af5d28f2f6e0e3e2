package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingTask(t *testing.T) *PickingTask {
	t.Helper()
	task, err := CreateForOrder("ORD-001", []TaskItem{
		{SKU: "SKU-100", Quantity: 5, Location: "A-01-01"},
		{SKU: "SKU-101", Quantity: 3, Location: "A-01-02"},
	}, 5)
	require.NoError(t, err)
	task.ClearDomainEvents()
	return task
}

func TestCreateForOrder(t *testing.T) {
	task, err := CreateForOrder("ORD-001", []TaskItem{{SKU: "SKU-100", Quantity: 2}}, 5)
	require.NoError(t, err)

	assert.Equal(t, TaskPending, task.Status)
	assert.Equal(t, OriginOrchestratorSubmitted, task.Origin)
	assert.Equal(t, "ORD-001", task.OrderID)
	assert.Contains(t, task.TaskID, "PICK-")
	assert.Empty(t, task.WesTaskID)

	evts := task.GetDomainEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, EventTypePickingTaskCreated, evts[0].EventType())
}

func TestCreateForOrderValidation(t *testing.T) {
	_, err := CreateForOrder("", []TaskItem{{SKU: "SKU-100", Quantity: 1}}, 5)
	assert.ErrorIs(t, err, ErrBlankOrderID)

	_, err = CreateForOrder("ORD-001", nil, 5)
	assert.ErrorIs(t, err, ErrNoTaskItems)

	_, err = CreateForOrder("ORD-001", []TaskItem{{SKU: "SKU-100", Quantity: 0}}, 5)
	assert.Error(t, err)

	_, err = CreateForOrder("ORD-001", []TaskItem{{SKU: "SKU-100", Quantity: 1}}, 0)
	assert.ErrorIs(t, err, ErrInvalidPriority)

	_, err = CreateForOrder("ORD-001", []TaskItem{{SKU: "SKU-100", Quantity: 1}}, 11)
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestCreateFromWesTaskCarriesNoOrder(t *testing.T) {
	task, err := CreateFromWesTask("WES-777", []TaskItem{{SKU: "SKU-200", Quantity: 4}}, 3)
	require.NoError(t, err)

	assert.Equal(t, OriginWesDirect, task.Origin)
	assert.True(t, task.Origin.IsWesDirect())
	assert.Empty(t, task.OrderID, "a WES-originated task must never reference an order")
	assert.Equal(t, TaskSubmitted, task.Status)
	assert.Equal(t, "WES-777", task.WesTaskID)
	require.NotNil(t, task.SubmittedAt)
}

func TestCreateFromWesTaskRequiresWesTaskID(t *testing.T) {
	_, err := CreateFromWesTask("", []TaskItem{{SKU: "SKU-200", Quantity: 1}}, 3)
	assert.ErrorIs(t, err, ErrBlankWesTaskID)
}

func TestSubmitToWes(t *testing.T) {
	task := newPendingTask(t)

	require.NoError(t, task.SubmitToWes("WES-100"))
	assert.Equal(t, TaskSubmitted, task.Status)
	assert.Equal(t, "WES-100", task.WesTaskID)
	require.NotNil(t, task.SubmittedAt)

	evts := task.GetDomainEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, EventTypePickingTaskSubmitted, evts[0].EventType())
}

func TestSubmitToWesIdempotentOnSameID(t *testing.T) {
	task := newPendingTask(t)
	require.NoError(t, task.SubmitToWes("WES-100"))
	task.ClearDomainEvents()

	require.NoError(t, task.SubmitToWes("WES-100"))
	assert.Empty(t, task.GetDomainEvents())
}

func TestSubmitToWesRejectsDifferentIDAfterSubmit(t *testing.T) {
	task := newPendingTask(t)
	require.NoError(t, task.SubmitToWes("WES-100"))

	err := task.SubmitToWes("WES-999")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "WES-100", task.WesTaskID)
}

func TestUpdateStatusFromWesRouting(t *testing.T) {
	tests := []struct {
		name       string
		target     TaskStatus
		wantStatus TaskStatus
		wantEvent  string
	}{
		{"in progress", TaskInProgress, TaskInProgress, ""},
		{"completed", TaskCompleted, TaskCompleted, EventTypePickingTaskCompleted},
		{"failed", TaskFailed, TaskFailed, EventTypePickingTaskFailed},
		{"canceled", TaskCanceled, TaskCanceled, EventTypePickingTaskCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newPendingTask(t)
			require.NoError(t, task.SubmitToWes("WES-100"))
			task.ClearDomainEvents()

			require.NoError(t, task.UpdateStatusFromWes(tt.target))
			assert.Equal(t, tt.wantStatus, task.Status)

			evts := task.GetDomainEvents()
			if tt.wantEvent == "" {
				assert.Empty(t, evts)
			} else {
				require.Len(t, evts, 1)
				assert.Equal(t, tt.wantEvent, evts[0].EventType())
			}
		})
	}
}

func TestUpdateStatusFromWesNoOpOnSameStatus(t *testing.T) {
	task := newPendingTask(t)
	require.NoError(t, task.SubmitToWes("WES-100"))
	require.NoError(t, task.UpdateStatusFromWes(TaskCompleted))
	task.ClearDomainEvents()

	// re-delivered poll result with the same terminal status
	require.NoError(t, task.UpdateStatusFromWes(TaskCompleted))
	assert.Empty(t, task.GetDomainEvents())
}

func TestUpdateStatusFromWesRejectedInTerminalStatus(t *testing.T) {
	task := newPendingTask(t)
	require.NoError(t, task.SubmitToWes("WES-100"))
	require.NoError(t, task.UpdateStatusFromWes(TaskCompleted))

	err := task.UpdateStatusFromWes(TaskFailed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, TaskCompleted, task.Status)
}

func TestUpdateStatusFromWesRejectedWhilePending(t *testing.T) {
	task := newPendingTask(t)

	err := task.UpdateStatusFromWes(TaskCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkCompletedIdempotent(t *testing.T) {
	task := newPendingTask(t)
	require.NoError(t, task.SubmitToWes("WES-100"))
	require.NoError(t, task.MarkCompleted())
	task.ClearDomainEvents()

	require.NoError(t, task.MarkCompleted())
	assert.Empty(t, task.GetDomainEvents())
}

func TestMarkFailedRejectedAfterCompleted(t *testing.T) {
	task := newPendingTask(t)
	require.NoError(t, task.SubmitToWes("WES-100"))
	require.NoError(t, task.MarkCompleted())

	err := task.MarkFailed("conveyor jam")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkFailedRecordsReason(t *testing.T) {
	task := newPendingTask(t)
	require.NoError(t, task.SubmitToWes("WES-100"))

	require.NoError(t, task.MarkFailed("conveyor jam"))
	assert.Equal(t, TaskFailed, task.Status)
	assert.Equal(t, "conveyor jam", task.FailureReason)

	evts := task.GetDomainEvents()
	require.Len(t, evts, 1)
	failed, ok := evts[0].(*PickingTaskFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "conveyor jam", failed.Reason)
	assert.ElementsMatch(t, []string{"SKU-100", "SKU-101"}, failed.SKUs)
}

func TestCancel(t *testing.T) {
	task := newPendingTask(t)

	require.NoError(t, task.Cancel("order withdrawn"))
	assert.Equal(t, TaskCanceled, task.Status)
	require.NotNil(t, task.CanceledAt)

	// re-applied cancellation is a no-op
	task.ClearDomainEvents()
	require.NoError(t, task.Cancel("order withdrawn"))
	assert.Empty(t, task.GetDomainEvents())
}

func TestCancelRejectedAfterCompletion(t *testing.T) {
	task := newPendingTask(t)
	require.NoError(t, task.SubmitToWes("WES-100"))
	require.NoError(t, task.MarkCompleted())

	err := task.Cancel("too late")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdjustPriority(t *testing.T) {
	task := newPendingTask(t)

	require.NoError(t, task.AdjustPriority(8))
	assert.Equal(t, 8, task.Priority)

	evts := task.GetDomainEvents()
	require.Len(t, evts, 1)
	adjusted, ok := evts[0].(*PickingTaskPriorityAdjustedEvent)
	require.True(t, ok)
	assert.Equal(t, 5, adjusted.OldPriority)
	assert.Equal(t, 8, adjusted.NewPriority)

	// unchanged priority is a no-op
	task.ClearDomainEvents()
	require.NoError(t, task.AdjustPriority(8))
	assert.Empty(t, task.GetDomainEvents())

	assert.ErrorIs(t, task.AdjustPriority(42), ErrInvalidPriority)
}

func TestParseTaskStatus(t *testing.T) {
	status, err := ParseTaskStatus("IN_PROGRESS")
	require.NoError(t, err)
	assert.Equal(t, TaskInProgress, status)

	_, err = ParseTaskStatus("EXPLODED")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestTaskSKUsDeduplicates(t *testing.T) {
	task, err := CreateForOrder("ORD-001", []TaskItem{
		{SKU: "SKU-100", Quantity: 2, Location: "A-01-01"},
		{SKU: "SKU-100", Quantity: 3, Location: "B-02-04"},
		{SKU: "SKU-101", Quantity: 1, Location: "A-01-02"},
	}, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"SKU-100", "SKU-101"}, task.SKUs())
}
