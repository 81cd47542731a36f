package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
	"github.com/byPixelTV/TwitchNotifyBot/internal/metrics"
)

// Scheduler drives a task on a fixed interval. Each task gets its own
// Scheduler and goroutine; a panic in one cycle is recovered and counted so
// the loop keeps running.
type Scheduler struct {
	task     domain.Task
	interval time.Duration
	clock    clockwork.Clock
}

func NewScheduler(task domain.Task, interval time.Duration, clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		task:     task,
		interval: interval,
		clock:    clock,
	}
}

// Run executes the task immediately and then on every tick until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.cycle(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			s.cycle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	start := s.clock.Now()
	report, err := s.runProtected(ctx)
	elapsed := s.clock.Since(start)

	metrics.CycleDuration.WithLabelValues(s.task.Name()).Observe(elapsed.Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CyclesTotal.WithLabelValues(s.task.Name(), status).Inc()

	if err != nil {
		slog.Error("Cycle failed",
			"task", s.task.Name(),
			"duration", elapsed,
			"error", err)
		return
	}
	slog.Debug("Cycle finished",
		"task", s.task.Name(),
		"duration", elapsed,
		"examined", report.Examined,
		"posted", report.Posted,
		"edited", report.Edited,
		"recreated", report.Recreated,
		"removed", report.Removed,
		"skipped", report.Skipped,
		"errors", report.Errors)
}

// runProtected converts a panic in the task into an error so one bad cycle
// cannot take the scheduler down.
func (s *Scheduler) runProtected(ctx context.Context) (report domain.CycleReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Cycle panicked",
				"task", s.task.Name(),
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("task %s panicked: %v", s.task.Name(), r)
		}
	}()
	return s.task.RunOnce(ctx)
}
