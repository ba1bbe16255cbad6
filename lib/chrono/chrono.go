package chrono

import (
	"context"
	"sync"
	"time"
)

// Sleeper blocks for a duration, it is injected wherever code waits so
// tests can run without real delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type RealSleeper struct{}

// Sleep returns ctx.Err() if the context ends first.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeSleeper records requested durations and returns immediately. Read
// Slept only once the sleeping goroutines are done.
type FakeSleeper struct {
	mu    sync.Mutex
	Slept []time.Duration
}

func (f *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.Slept = append(f.Slept, d)
	f.mu.Unlock()
	return nil
}

// Clock returns the current time, exporters use it to stamp filenames.
type Clock interface {
	Now() time.Time
}

type RealClock struct {
	Location *time.Location
}

func (c RealClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

type FixedClock struct {
	Time time.Time
}

func (c FixedClock) Now() time.Time {
	return c.Time
}
