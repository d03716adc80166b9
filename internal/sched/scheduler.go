// internal/sched/scheduler.go

package sched

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Scheduler admits tasks so that at most one task of each type runs at any
// instant. A *Scheduler is safe for concurrent use; share the pointer among
// submitters.
type Scheduler struct {
	requests chan<- request
	queries  chan<- query
	events   <-chan Event
	exited   <-chan struct{}
	final    *Stats // valid once exited is closed

	closing   chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The scheduler tags it with component=sched.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New starts the control loop and returns its facade.
func New(cfg Config, opts ...Option) *Scheduler {
	cfg = cfg.sanitize()

	s := &Scheduler{
		closing: make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sched")

	ctl := newControl(cfg, s.closing, s.logger)
	s.requests = ctl.requests
	s.queries = ctl.queries
	s.events = ctl.events
	s.exited = ctl.exited
	s.final = &ctl.final

	go ctl.loop()
	return s
}

// Submit wraps work into a task and asks the control loop to admit it.
//
// The returned verdict is Scheduled or Rejected. ErrSchedulerShutDown is
// returned when the scheduler is closed. If ctx ends first, ctx.Err() is
// returned; a task that was already delivered may still be admitted and will
// run to completion.
func (s *Scheduler) Submit(ctx context.Context, typ TaskType, work Work) (Verdict, error) {
	if work == nil {
		return 0, ErrNilWork
	}

	select {
	case <-s.closing:
		return 0, ErrSchedulerShutDown
	default:
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	reply := make(chan Verdict, 1)
	req := request{task: NewTask(typ, work), reply: reply}

	select {
	case s.requests <- req:
	case <-s.closing:
		return 0, ErrSchedulerShutDown
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case v, ok := <-reply:
		if !ok {
			return 0, ErrSchedulerShutDown
		}
		return v, nil
	case <-s.exited:
		// the loop may have replied right before exiting
		select {
		case v, ok := <-reply:
			if ok {
				return v, nil
			}
		default:
		}
		return 0, ErrSchedulerShutDown
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Snapshot asks the control loop for the Running-Set and its counters.
func (s *Scheduler) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)

	select {
	case s.queries <- query{reply: reply}:
	case <-s.exited:
		return Snapshot{}, ErrSchedulerShutDown
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Stats returns the control loop's counters. Once the loop has exited they
// are its final values; before that they come from a Snapshot.
func (s *Scheduler) Stats(ctx context.Context) (Stats, error) {
	select {
	case <-s.exited:
		return *s.final, nil
	default:
	}
	snap, err := s.Snapshot(ctx)
	if errors.Is(err, ErrSchedulerShutDown) {
		return *s.final, nil
	}
	return snap.Stats, err
}

// Events exposes the read-only event stream, or nil when Config.EventBuffer
// is zero. It is closed when the control loop exits.
func (s *Scheduler) Events() <-chan Event { return s.events }

// Close stops admissions. Tasks in flight run to completion; the control loop
// exits once they have all reported back. Close is idempotent.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
	})
}

// Done is closed when the control loop has exited.
func (s *Scheduler) Done() <-chan struct{} { return s.exited }

// Shutdown closes the scheduler and waits for in-flight tasks, or for ctx.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Close()
	select {
	case <-s.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
