package load

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typesched/internal/sched"
)

// fakeSubmitter records submitted types and answers with a fixed verdict.
type fakeSubmitter struct {
	mu      sync.Mutex
	types   map[sched.TaskType]int
	verdict sched.Verdict
	err     error
}

func (f *fakeSubmitter) Submit(ctx context.Context, typ sched.TaskType, work sched.Work) (sched.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.types == nil {
		f.types = make(map[sched.TaskType]int)
	}
	f.types[typ]++
	return f.verdict, f.err
}

func TestRun_InvalidParams(t *testing.T) {
	for _, p := range []Params{
		{NumTasks: 0, NumTaskTypes: 1},
		{NumTasks: 1, NumTaskTypes: 0},
		{NumTasks: 1, NumTaskTypes: 1, MaxDuration: -time.Second},
	} {
		_, err := Run(context.Background(), &fakeSubmitter{}, p)
		assert.ErrorIs(t, err, ErrInvalidParams)
	}
}

func TestRun_CyclesTypes(t *testing.T) {
	f := &fakeSubmitter{verdict: sched.Rejected}
	rep, err := Run(context.Background(), f, Params{NumTasks: 30, NumTaskTypes: 3, Concurrency: 4})
	require.NoError(t, err)

	assert.Equal(t, int64(30), rep.Submitted)
	assert.Equal(t, int64(30), rep.Rejected)
	assert.Equal(t, map[sched.TaskType]int{"task-0": 10, "task-1": 10, "task-2": 10}, f.types)
}

func TestRun_CountsErrors(t *testing.T) {
	rep, err := Run(context.Background(), &fakeSubmitter{err: sched.ErrSchedulerShutDown}, Params{NumTasks: 5, NumTaskTypes: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(5), rep.ShutDown)

	rep, err = Run(context.Background(), &fakeSubmitter{err: errors.New("odd")}, Params{NumTasks: 5, NumTaskTypes: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(5), rep.Errors)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := Run(ctx, &fakeSubmitter{verdict: sched.Scheduled}, Params{NumTasks: 100, NumTaskTypes: 2})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rep.Submitted)
}

func TestRun_AgainstScheduler(t *testing.T) {
	s := sched.New(sched.DefaultConfig(), sched.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	rep, err := Run(context.Background(), s, Params{
		NumTasks:     2000,
		NumTaskTypes: 8,
		MaxDuration:  time.Millisecond,
		Concurrency:  8,
		Seed:         7,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	assert.Equal(t, int64(2000), rep.Scheduled+rep.Rejected)
	assert.GreaterOrEqual(t, rep.Scheduled, int64(8), "every type is admitted at least once")
	assert.Zero(t, rep.ShutDown)
	assert.Contains(t, rep.Summary(), "submitted=2000")
}

func TestTypeFor(t *testing.T) {
	assert.Equal(t, sched.TaskType("task-0"), TypeFor(0, 8))
	assert.Equal(t, sched.TaskType("task-3"), TypeFor(11, 8))
}
