package sched

import (
	"log/slog"
	"strings"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

// request carries one submission to the control loop.
type request struct {
	task  *Task
	reply chan<- Verdict // capacity 1, closed after the verdict
}

type query struct {
	reply chan<- Snapshot
}

// admission is the Running-Set value for a type.
type admission struct {
	taskID     uuid.UUID
	admittedAt time.Time
}

// Stats are counters kept by the control loop.
type Stats struct {
	Admitted      uint64
	Rejected      uint64
	Completed     uint64 // every completion, failed and panicked included
	Failed        uint64
	Panicked      uint64
	DroppedEvents uint64
}

// RunningTask is one entry of the Running-Set.
type RunningTask struct {
	Type       TaskType
	TaskID     uuid.UUID
	AdmittedAt time.Time
}

// Snapshot is a point-in-time view of the control loop.
type Snapshot struct {
	Running []RunningTask // ordered by type
	Stats   Stats
}

// control is the single owner of the Running-Set. Only loop mutates it.
type control struct {
	requests    chan request
	completions chan completion
	queries     chan query
	closing     <-chan struct{}
	exited      chan struct{}
	events      chan Event

	running *treemap.Map // TaskType -> admission
	stats   Stats
	final   Stats // copy of stats, readable once exited is closed

	pool    *workerPool
	runners *conc.WaitGroup
	logger  *slog.Logger
}

func newControl(cfg Config, closing <-chan struct{}, logger *slog.Logger) *control {
	c := &control{
		requests:    make(chan request, cfg.InboxSize),
		completions: make(chan completion),
		queries:     make(chan query),
		closing:     closing,
		exited:      make(chan struct{}),
		running:     treemap.NewWith(typeCmp),
		pool:        newWorkerPool(cfg.MaxWorkers),
		runners:     conc.NewWaitGroup(),
		logger:      logger,
	}
	if cfg.EventBuffer > 0 {
		c.events = make(chan Event, cfg.EventBuffer)
	}
	return c
}

// loop serves requests and completions until closed and idle.
func (c *control) loop() {
	defer func() {
		c.final = c.stats
		if c.events != nil {
			close(c.events)
		}
		close(c.exited)
	}()

	c.logger.Info("control loop started",
		"inbox_size", cap(c.requests),
		"max_workers", c.pool.Capacity())

	closing := c.closing
	for {
		if closing == nil && c.running.Empty() {
			// every runner already sent its completion
			c.runners.Wait()
			c.logger.Info("control loop stopped",
				"admitted", c.stats.Admitted,
				"rejected", c.stats.Rejected)
			return
		}

		select {
		case req := <-c.requests:
			c.admit(req)
		case done := <-c.completions:
			c.release(done)
		case q := <-c.queries:
			q.reply <- c.snapshot()
		case <-closing:
			// requests stays live: admit answers late arrivals with a closed reply
			closing = nil
			n := c.drain()
			c.logger.Info("control loop closing",
				"in_flight", c.running.Size(),
				"dropped_requests", n)
		}
	}
}

// admit decides a single submission. Check and insert happen without any
// other message being processed in between.
func (c *control) admit(req request) {
	defer close(req.reply)

	select {
	case <-c.closing:
		// raced with Close; the submitter sees a closed reply
		return
	default:
	}

	t := req.task
	now := time.Now()
	if v, found := c.running.Get(t.Type); found {
		c.stats.Rejected++
		req.reply <- Rejected
		c.logger.Debug("task rejected",
			"task_type", t.Type,
			"task_id", t.ID,
			"running_id", v.(admission).taskID)
		c.emit(Event{Time: now, Kind: EventRejected, Type: t.Type, TaskID: t.ID})
		return
	}

	c.running.Put(t.Type, admission{taskID: t.ID, admittedAt: now})
	c.stats.Admitted++
	c.spawn(t)
	req.reply <- Scheduled
	c.logger.Debug("task admitted", "task_type", t.Type, "task_id", t.ID)
	c.emit(Event{Time: now, Kind: EventAdmitted, Type: t.Type, TaskID: t.ID})
}

// release removes a finished task's type from the Running-Set.
func (c *control) release(done completion) {
	v, found := c.running.Get(done.typ)
	if !found {
		panic(&InvariantViolation{Type: done.typ, Reason: "completion for a type that is not running"})
	}
	if adm := v.(admission); adm.taskID != done.id {
		panic(&InvariantViolation{Type: done.typ, Reason: "completion from task " + done.id.String() + " but " + adm.taskID.String() + " is running"})
	}
	c.running.Remove(done.typ)
	c.stats.Completed++

	ev := Event{
		Time:     time.Now(),
		Kind:     EventFinished,
		Type:     done.typ,
		TaskID:   done.id,
		Duration: done.duration,
		Err:      done.err,
	}
	switch {
	case done.panicked:
		c.stats.Panicked++
		ev.Kind = EventPanicked
		c.logger.Warn("task panicked",
			"task_type", done.typ,
			"task_id", done.id,
			"error", done.err,
			"stack", string(done.stack))
	case done.err != nil:
		c.stats.Failed++
		ev.Kind = EventFailed
		c.logger.Warn("task failed",
			"task_type", done.typ,
			"task_id", done.id,
			"error", done.err)
	default:
		c.logger.Debug("task finished",
			"task_type", done.typ,
			"task_id", done.id,
			"duration", done.duration)
	}
	c.emit(ev)
}

// drain answers requests already buffered in the inbox with a closed reply.
func (c *control) drain() int {
	n := 0
	for {
		select {
		case req := <-c.requests:
			close(req.reply)
			n++
		default:
			return n
		}
	}
}

// emit never blocks the loop; a full stream drops the event.
func (c *control) emit(ev Event) {
	if c.events == nil {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.stats.DroppedEvents++
	}
}

func (c *control) snapshot() Snapshot {
	snap := Snapshot{
		Running: make([]RunningTask, 0, c.running.Size()),
		Stats:   c.stats,
	}
	c.running.Each(func(key, value interface{}) {
		adm := value.(admission)
		snap.Running = append(snap.Running, RunningTask{
			Type:       key.(TaskType),
			TaskID:     adm.taskID,
			AdmittedAt: adm.admittedAt,
		})
	})
	return snap
}

// typeCmp orders the Running-Set by task type.
func typeCmp(a, b interface{}) int {
	return strings.Compare(string(a.(TaskType)), string(b.(TaskType)))
}
