package sched

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_RunOnce(t *testing.T) {
	var calls int
	task := NewTask("A", func(context.Context) error {
		calls++
		return nil
	})
	require.False(t, task.Consumed())

	require.NoError(t, task.Run(context.Background()))
	assert.True(t, task.Consumed())
	assert.ErrorIs(t, task.Run(context.Background()), ErrTaskConsumed)
	assert.Equal(t, 1, calls)
}

func TestTask_RunReturnsWorkError(t *testing.T) {
	want := errors.New("boom")
	task := NewTask("A", func(context.Context) error { return want })
	assert.ErrorIs(t, task.Run(context.Background()), want)
}

func TestTask_ConcurrentRunExecutesOnce(t *testing.T) {
	var calls atomic.Int32
	task := NewTask("A", func(context.Context) error {
		calls.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	var consumed atomic.Int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if errors.Is(task.Run(context.Background()), ErrTaskConsumed) {
				consumed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(31), consumed.Load())
}

func TestTask_InfoInContext(t *testing.T) {
	task := NewTask("backup", func(ctx context.Context) error {
		info, ok := TaskInfoFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, TaskType("backup"), info.Type)
		return nil
	})
	require.NoError(t, task.Run(context.Background()))

	_, ok := TaskInfoFromContext(context.Background())
	assert.False(t, ok)
}

func TestTask_NilWork(t *testing.T) {
	task := NewTask("A", nil)
	assert.NoError(t, task.Run(context.Background()))
	assert.ErrorIs(t, task.Run(context.Background()), ErrTaskConsumed)
}
