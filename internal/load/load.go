// Package load drives a scheduler with a synthetic stream of submissions.
package load

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"typesched/internal/job"
	"typesched/internal/sched"
)

// ErrInvalidParams is returned by Run for non-positive counts.
var ErrInvalidParams = errors.New("load: invalid parameters")

// Submitter is the part of *sched.Scheduler the driver needs.
type Submitter interface {
	Submit(ctx context.Context, typ sched.TaskType, work sched.Work) (sched.Verdict, error)
}

// Params describes one load run.
type Params struct {
	NumTasks     int           // total submissions
	NumTaskTypes int           // types cycle as task-0 .. task-(n-1)
	MaxDuration  time.Duration // each body sleeps a random duration below this
	Concurrency  int           // parallel submitters, 1 if <= 0
	Seed         int64
}

// Report summarizes a load run.
type Report struct {
	Submitted int64
	Scheduled int64
	Rejected  int64
	ShutDown  int64
	Errors    int64 // any other Submit error
	Elapsed   time.Duration
}

// Summary renders the report on one line.
func (r Report) Summary() string {
	return fmt.Sprintf("submitted=%d scheduled=%d rejected=%d shutdown=%d errors=%d elapsed=%s",
		r.Submitted, r.Scheduled, r.Rejected, r.ShutDown, r.Errors, r.Elapsed.Round(time.Millisecond))
}

// TypeFor returns the task type of the i-th submission.
func TypeFor(i, numTypes int) sched.TaskType {
	return sched.TaskType("task-" + strconv.Itoa(i%numTypes))
}

// Run submits p.NumTasks tasks and counts the verdicts. It stops early when
// ctx ends, returning the partial report and ctx.Err().
func Run(ctx context.Context, s Submitter, p Params) (Report, error) {
	if p.NumTasks <= 0 || p.NumTaskTypes <= 0 || p.MaxDuration < 0 {
		return Report{}, fmt.Errorf("%w: tasks=%d types=%d max-duration=%s",
			ErrInvalidParams, p.NumTasks, p.NumTaskTypes, p.MaxDuration)
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 1
	}

	var (
		submitted, scheduled, rejected, shutDown, failed atomic.Int64
	)
	rng := job.NewLockedRand(p.Seed)
	start := time.Now()

	wp := pool.New().WithMaxGoroutines(p.Concurrency)
	for i := 0; i < p.NumTasks; i++ {
		if ctx.Err() != nil {
			break
		}
		typ := TypeFor(i, p.NumTaskTypes)
		wp.Go(func() {
			submitted.Add(1)
			v, err := s.Submit(ctx, typ, job.RandomSleepWork(rng, p.MaxDuration))
			switch {
			case errors.Is(err, sched.ErrSchedulerShutDown):
				shutDown.Add(1)
			case err != nil:
				failed.Add(1)
			case v == sched.Scheduled:
				scheduled.Add(1)
			case v == sched.Rejected:
				rejected.Add(1)
			}
		})
	}
	wp.Wait()

	rep := Report{
		Submitted: submitted.Load(),
		Scheduled: scheduled.Load(),
		Rejected:  rejected.Load(),
		ShutDown:  shutDown.Load(),
		Errors:    failed.Load(),
		Elapsed:   time.Since(start),
	}
	return rep, ctx.Err()
}
