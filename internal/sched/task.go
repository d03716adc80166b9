package sched

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskType groups tasks that must never run at the same time.
type TaskType string

// Work is a deferred computation owned by a Task. Its error is logged and
// counted, never returned to the submitter.
type Work func(ctx context.Context) error

// TaskInfo describes the task a work function is running as.
type TaskInfo struct {
	ID          uuid.UUID
	Type        TaskType
	SubmittedAt time.Time
}

// Task is a single-shot handle around a Work.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	SubmittedAt time.Time

	work     Work
	consumed atomic.Bool
}

// NewTask wraps work into a fresh handle.
// NOTE: a nil work is accepted here; Run on such a handle is a no-op.
func NewTask(typ TaskType, work Work) *Task {
	return &Task{
		ID:          uuid.New(),
		Type:        typ,
		SubmittedAt: time.Now(),
		work:        work,
	}
}

// Info returns the identifying fields of the task.
func (t *Task) Info() TaskInfo {
	return TaskInfo{ID: t.ID, Type: t.Type, SubmittedAt: t.SubmittedAt}
}

// Run executes the held work and drops it. Calling Run a second time returns
// ErrTaskConsumed without doing anything.
func (t *Task) Run(ctx context.Context) error {
	if !t.consumed.CompareAndSwap(false, true) {
		return ErrTaskConsumed
	}
	work := t.work
	t.work = nil
	if work == nil {
		return nil
	}
	return work(withTaskInfo(ctx, t.Info()))
}

// Consumed reports whether Run has been called.
func (t *Task) Consumed() bool { return t.consumed.Load() }

type taskInfoKey struct{}

func withTaskInfo(ctx context.Context, info TaskInfo) context.Context {
	return context.WithValue(ctx, taskInfoKey{}, info)
}

// TaskInfoFromContext returns the TaskInfo of the task whose work is running
// with ctx.
func TaskInfoFromContext(ctx context.Context) (TaskInfo, bool) {
	info, ok := ctx.Value(taskInfoKey{}).(TaskInfo)
	return info, ok
}
