package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"
	"waimai-crawler/lib/chrono"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errLimited = errors.New("limited")

func TestDoExhausts(t *testing.T) {
	sleeper := &chrono.FakeSleeper{}
	p := Default()
	p.Sleeper = sleeper
	p.Rand = rand.New(rand.NewPCG(1, 2))

	calls := 0
	err := p.Do(context.Background(), func(attempt int) error {
		calls++
		require.Equal(t, calls, attempt)
		return errLimited
	})
	require.ErrorIs(t, err, errLimited)
	require.Equal(t, 5, calls)
	require.Len(t, sleeper.Slept, 4)
	for _, d := range sleeper.Slept {
		require.GreaterOrEqual(t, d, 3*time.Second)
		require.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestDoSucceedsEarly(t *testing.T) {
	sleeper := &chrono.FakeSleeper{}
	p := Policy{MaxAttempts: 5, MinWait: time.Second, MaxWait: time.Second, Sleeper: sleeper}

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		if calls < 3 {
			return errLimited
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, time.Second}, sleeper.Slept)
}

func TestDoStop(t *testing.T) {
	p := Policy{MaxAttempts: 5, Sleeper: &chrono.FakeSleeper{}}
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return ErrStop{Err: context.Canceled}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestDoCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, Sleeper: &chrono.FakeSleeper{}}
	calls := 0
	err := p.Do(ctx, func(int) error {
		calls++
		cancel()
		return errLimited
	})
	require.ErrorIs(t, err, errLimited)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestDoSharedAcrossWorkers(t *testing.T) {
	sleeper := &chrono.FakeSleeper{}
	p := Default()
	p.Sleeper = sleeper
	p.Rand = rand.New(rand.NewPCG(3, 4))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Do(context.Background(), func(int) error {
				return errLimited
			})
			assert.ErrorIs(t, err, errLimited)
		}()
	}
	wg.Wait()

	require.Len(t, sleeper.Slept, 8*4)
	for _, d := range sleeper.Slept {
		require.GreaterOrEqual(t, d, 3*time.Second)
		require.LessOrEqual(t, d, 4*time.Second)
	}
}
