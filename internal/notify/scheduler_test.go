package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
)

type countingTask struct {
	mu       sync.Mutex
	runs     int
	panicOn  int // panic on this run number (1-based), 0 disables
	failOn   int // return an error on this run number, 0 disables
	ran      chan struct{}
	reportFn func() domain.CycleReport
}

func newCountingTask() *countingTask {
	return &countingTask{ran: make(chan struct{}, 16)}
}

func (c *countingTask) Name() string { return "counting" }

func (c *countingTask) RunOnce(context.Context) (domain.CycleReport, error) {
	c.mu.Lock()
	c.runs++
	run := c.runs
	c.mu.Unlock()
	c.ran <- struct{}{}
	if run == c.panicOn {
		panic("boom")
	}
	if run == c.failOn {
		return domain.CycleReport{}, errors.New("cycle error")
	}
	if c.reportFn != nil {
		return c.reportFn(), nil
	}
	return domain.CycleReport{}, nil
}

func (c *countingTask) runCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

func waitForRun(t *testing.T, task *countingTask) {
	t.Helper()
	select {
	case <-task.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run in time")
	}
}

func TestScheduler_RunsImmediatelyThenOnTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	task := newCountingTask()
	sched := NewScheduler(task, time.Minute, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	waitForRun(t, task)
	require.Equal(t, 1, task.runCount())

	clock.BlockUntil(1) // scheduler is waiting on the ticker
	clock.Advance(time.Minute)
	waitForRun(t, task)
	assert.Equal(t, 2, task.runCount())
}

func TestScheduler_SurvivesPanickingCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	task := newCountingTask()
	task.panicOn = 1
	sched := NewScheduler(task, time.Minute, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	waitForRun(t, task) // first run panics

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	waitForRun(t, task) // loop still alive
	assert.Equal(t, 2, task.runCount())
}

func TestScheduler_KeepsGoingAfterCycleError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	task := newCountingTask()
	task.failOn = 1
	sched := NewScheduler(task, time.Minute, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	waitForRun(t, task)

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	waitForRun(t, task)
	assert.Equal(t, 2, task.runCount())
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	task := newCountingTask()
	sched := NewScheduler(task, time.Minute, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	waitForRun(t, task)
	clock.BlockUntil(1)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.Equal(t, 1, task.runCount())
}
