package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/levijcl/Wei-sub000/pkg/logging"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context)

// Scheduler runs named jobs on fixed intervals until stopped. Each job
// runs on its own goroutine; a slow job delays only its own next tick.
type Scheduler struct {
	logger *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	ctx     context.Context
	wg      sync.WaitGroup
	stopped bool
}

// New creates a Scheduler.
func New(logger *logging.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger: logger.WithComponent("scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every schedules job to run immediately and then once per interval.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("Scheduler job started", "job", name, "interval", interval.String())

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.run(name, job)
		for {
			select {
			case <-ticker.C:
				s.run(name, job)
			case <-s.ctx.Done():
				s.logger.Info("Scheduler job stopped", "job", name)
				return
			}
		}
	}()
}

func (s *Scheduler) run(name string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduler job panicked", "job", name, "panic", r)
		}
	}()
	job(s.ctx)
}

// Stop cancels all jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
