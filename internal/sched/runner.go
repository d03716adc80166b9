package sched

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
)

// completion is sent by a runner when its task body returns, panics included.
type completion struct {
	typ      TaskType
	id       uuid.UUID
	duration time.Duration
	err      error
	panicked bool
	stack    []byte
}

// workerPool bounds how many task bodies execute at once.
// A nil pool means unbounded.
type workerPool struct {
	slots chan struct{}
}

func newWorkerPool(n int) *workerPool {
	if n <= 0 {
		return nil
	}
	return &workerPool{slots: make(chan struct{}, n)}
}

func (p *workerPool) acquire() {
	if p == nil {
		return
	}
	p.slots <- struct{}{}
}

func (p *workerPool) release() {
	if p == nil {
		return
	}
	<-p.slots
}

// Capacity returns the pool size, or 0 if unbounded.
func (p *workerPool) Capacity() int {
	if p == nil {
		return 0
	}
	return cap(p.slots)
}

// spawn hands t to a new runner goroutine. It never blocks.
func (c *control) spawn(t *Task) {
	c.runners.Go(func() { c.run(t) })
}

// run owns t until its body returns. The completion is emitted on every exit path.
func (c *control) run(t *Task) {
	done := completion{typ: t.Type, id: t.ID}
	defer func() { c.complete(done) }()

	c.pool.acquire()
	defer c.pool.release()

	var pc panics.Catcher
	start := time.Now()
	pc.Try(func() {
		done.err = t.Run(context.Background())
	})
	done.duration = time.Since(start)

	if r := pc.Recovered(); r != nil {
		done.err = r.AsError()
		done.panicked = true
		done.stack = r.Stack
	}
}

// complete delivers the notification, or drops it if the loop is gone.
func (c *control) complete(done completion) {
	select {
	case c.completions <- done:
	case <-c.exited:
	}
}
