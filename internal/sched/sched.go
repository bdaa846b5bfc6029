// Package sched is a cooperative tick scheduler. It replaces blocking
// delay timing with an explicit due timestamp per task compared against
// an injectable monotonic clock. One Tick() never blocks and never
// sleeps; tasks that wait on external events report Pending and are
// re-polled on the next tick.
package sched

import (
	"context"
	"math"
	"time"

	"github.com/krti/uavcore/helpers/atomic_clock"
	"github.com/krti/uavcore/log2"
)

type Status uint8

const (
	// Done: unit of work complete, task sleeps until now+period.
	Done Status = iota
	// Pending: waiting on an external event, re-poll next tick.
	Pending
)

// TaskFunc runs exactly one bounded unit of work. It must not sleep or
// block; errors are the task's own business (log, count, recover).
type TaskFunc func(ctx context.Context) Status

const never = math.MaxInt64

type Task struct {
	name   string
	period time.Duration
	fun    TaskFunc
	due    int64 // ns timestamp, never = disabled
}

func (t *Task) Name() string { return t.name }

// Disable sets due to "never". In-flight I/O is not aborted: the owner
// of that I/O detects its own timeout.
func (t *Task) Disable() { t.due = never }

// Enable makes the task due immediately.
func (t *Task) Enable() { t.due = 0 }

func (t *Task) Enabled() bool { return t.due != never }

// Scheduler advances registered tasks in registration order, which is
// the fixed priority order within one tick.
type Scheduler struct {
	log   *log2.Log
	now   func() int64
	tasks []*Task
}

func New(log *log2.Log, now func() int64) *Scheduler {
	if now == nil {
		now = atomic_clock.Source
	}
	return &Scheduler{log: log, now: now}
}

// Register appends a task at the lowest priority so far. First run is
// due immediately.
func (s *Scheduler) Register(name string, period time.Duration, fun TaskFunc) *Task {
	if name == "" || fun == nil {
		s.log.Fatalf("code error sched.Register name='%s' fun=%v", name, fun)
	}
	t := &Task{name: name, period: period, fun: fun}
	s.tasks = append(s.tasks, t)
	return t
}

// Tick runs every due task once and reschedules it. Returns the number
// of task executions. Pending tasks stay due and are polled again on
// the next tick.
func (s *Scheduler) Tick(ctx context.Context) int {
	ran := 0
	now := s.now()
	for _, t := range s.tasks {
		if now < t.due {
			continue
		}
		ran++
		switch t.fun(ctx) {
		case Pending:
			// keep due in the past, re-poll next tick
		default:
			t.due = now + int64(t.period)
		}
	}
	return ran
}
