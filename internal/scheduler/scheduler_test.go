package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levijcl/Wei-sub000/pkg/logging"
)

func newTestScheduler() *Scheduler {
	return New(logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test"}))
}

func TestSchedulerRunsJobImmediatelyAndOnTicks(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	var runs atomic.Int64
	s.Every("counter", 20*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerStopHaltsJobs(t *testing.T) {
	s := newTestScheduler()

	var runs atomic.Int64
	s.Every("counter", 10*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})

	require.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load())

	// scheduling after Stop is a no-op
	s.Every("late", 10*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestSchedulerRecoversFromPanickingJob(t *testing.T) {
	s := newTestScheduler()
	defer s.Stop()

	var runs atomic.Int64
	s.Every("panicky", 15*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
		panic("boom")
	})

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerJobReceivesCancellationOnStop(t *testing.T) {
	s := newTestScheduler()

	done := make(chan struct{})
	s.Every("waiter", time.Hour, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})

	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job context was not canceled on Stop")
	}
}
