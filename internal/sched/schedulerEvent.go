// internal/sched/schedulerEvent.go

package sched

import (
	"time"

	"github.com/google/uuid"
)

// Verdict is the admission decision delivered to a submitter. The zero value
// is not a verdict; it accompanies a non-nil error from Submit.
type Verdict int

const (
	// Scheduled means the task was handed to a runner.
	Scheduled Verdict = iota + 1
	// Rejected means a task of the same type was in flight; the submission is dropped.
	Rejected
)

func (v Verdict) String() string {
	switch v {
	case Scheduled:
		return "Scheduled"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventAdmitted EventKind = iota
	EventRejected
	EventFinished
	EventFailed
	EventPanicked
)

// Event is emitted by the control loop on admissions and completions.
type Event struct {
	Time     time.Time
	Kind     EventKind
	Type     TaskType
	TaskID   uuid.UUID
	Duration time.Duration // body run time, completions only
	Err      error         // work error or recovered panic
}

func (k EventKind) String() string {
	switch k {
	case EventAdmitted:
		return "Admitted"
	case EventRejected:
		return "Rejected"
	case EventFinished:
		return "Finished"
	case EventFailed:
		return "Failed"
	case EventPanicked:
		return "Panicked"
	default:
		return "Unknown"
	}
}
