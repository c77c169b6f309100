package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/metrics"
)

// JobFunc is the body of a scheduled job. The context is cancelled on Stop.
type JobFunc func(ctx context.Context) error

type entry struct {
	name     string
	interval time.Duration
	fn       JobFunc
}

// Scheduler runs each registered job on its own ticker, once at start and then every interval.
// Ticks of a single job never overlap.
type Scheduler struct {
	mu      sync.Mutex
	entries []entry
	started bool

	ctx      context.Context
	cancel   context.CancelFunc
	running  sync.WaitGroup
	stopOnce sync.Once
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel}
}

// AddJob registers fn under name. Jobs added after Start are picked up by RunOnce only.
func (s *Scheduler) AddJob(name string, interval time.Duration, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry{name: name, interval: interval, fn: fn})
	slog.Info("Scheduler: job registered", "job", name, "interval", interval)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	for _, e := range s.entries {
		s.running.Add(1)
		go s.loop(e)
	}
	slog.Info("Scheduler: started", "jobs", len(s.entries))
}

// Stop cancels in-flight runs and waits for every loop to exit. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.running.Wait()
		slog.Info("Scheduler: stopped")
	})
}

func (s *Scheduler) loop(e entry) {
	defer s.running.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		s.run(s.ctx, e)
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// run executes one tick. A panic is recovered and reported as a failed run.
func (s *Scheduler) run(ctx context.Context, e entry) (err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			metrics.ScheduledRuns.WithLabelValues(e.name, "panic").Inc()
			slog.Error("Scheduler: job panicked", "job", e.name, "panic", r)
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			slog.Error("Scheduler: job failed", "job", e.name, "error", err, "duration", time.Since(started))
		} else {
			slog.Debug("Scheduler: job done", "job", e.name, "duration", time.Since(started))
		}
		metrics.ScheduledRuns.WithLabelValues(e.name, outcome).Inc()
	}()

	return e.fn(ctx)
}

// RunOnce runs every registered job in order with ctx and returns how many failed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.mu.Lock()
	entries := append([]entry(nil), s.entries...)
	s.mu.Unlock()

	failed := 0
	for _, e := range entries {
		if err := s.run(ctx, e); err != nil {
			failed++
		}
	}
	return failed
}
