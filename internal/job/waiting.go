package job

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"typesched/internal/sched"
)

// SleepWork returns a work function that just sleeps for the given duration.
func SleepWork(d time.Duration) sched.Work {
	return func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}
}

// RandomSleepWork sleeps for a random duration in [0, maxDur).
// The source is shared, so access to it is serialized.
func RandomSleepWork(rng *LockedRand, maxDur time.Duration) sched.Work {
	if maxDur <= 0 {
		return SleepWork(0)
	}
	return SleepWork(time.Duration(rng.Int63n(int64(maxDur))))
}

// BlockingWork returns once release is closed. started, if not nil, is
// closed when the body begins.
func BlockingWork(started chan<- struct{}, release <-chan struct{}) sched.Work {
	return func(ctx context.Context) error {
		if started != nil {
			close(started)
		}
		<-release
		return nil
	}
}

// PanicWork panics with v.
func PanicWork(v any) sched.Work {
	return func(ctx context.Context) error {
		panic(v)
	}
}

// NoopWork returns immediately.
func NoopWork() sched.Work {
	return func(ctx context.Context) error { return nil }
}

// LockedRand is a math/rand source safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLockedRand seeds a new LockedRand.
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rnd: rand.New(rand.NewSource(seed))}
}

// Int63n returns a non-negative pseudo-random number in [0,n).
func (r *LockedRand) Int63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Int63n(n)
}
