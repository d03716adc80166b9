package sched

import (
	"errors"
	"fmt"
)

var (
	// ErrSchedulerShutDown is returned by Submit and Snapshot once the control
	// loop is closed or gone.
	ErrSchedulerShutDown = errors.New("sched: scheduler shut down")

	// ErrTaskConsumed is returned when a Task is run more than once.
	ErrTaskConsumed = errors.New("sched: task already consumed")

	// ErrNilWork is returned by Submit for a nil work function.
	ErrNilWork = errors.New("sched: nil work")
)

// InvariantViolation is the panic value raised by the control loop when its
// bookkeeping is inconsistent, e.g. a completion for a type that is not running.
type InvariantViolation struct {
	Type   TaskType
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("sched: invariant violation for task type %q: %s", e.Type, e.Reason)
}
