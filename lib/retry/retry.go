package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"
	"waimai-crawler/lib/chrono"
)

// Policy retries an operation a bounded number of times, waiting a
// uniformly jittered duration in [MinWait, MaxWait] between attempts.
type Policy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration

	Sleeper chrono.Sleeper
	// Rand picks the jitter, nil uses the global source. A policy is
	// shared by concurrent workers so reads of Rand go through randMu.
	Rand *rand.Rand
}

var randMu sync.Mutex

// Default is the geohash retry window: 5 attempts, 3-4s apart.
func Default() Policy {
	return Policy{
		MaxAttempts: 5,
		MinWait:     3 * time.Second,
		MaxWait:     4 * time.Second,
		Sleeper:     chrono.RealSleeper{},
	}
}

func (p Policy) wait() time.Duration {
	if p.MaxWait <= p.MinWait {
		return p.MinWait
	}
	span := int64(p.MaxWait - p.MinWait)
	var n int64
	if p.Rand != nil {
		randMu.Lock()
		n = p.Rand.Int64N(span + 1)
		randMu.Unlock()
	} else {
		n = rand.Int64N(span + 1)
	}
	return p.MinWait + time.Duration(n)
}

// ErrStop wraps an error that must not be retried.
type ErrStop struct {
	Err error
}

func (e ErrStop) Error() string { return e.Err.Error() }
func (e ErrStop) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, returns an ErrStop, the context ends or
// MaxAttempts is exhausted. fn receives the 1-based attempt number. The
// last error is returned. No wait follows the final attempt.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleeper := p.Sleeper
	if sleeper == nil {
		sleeper = chrono.RealSleeper{}
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(attempt)
		if err == nil {
			return nil
		}
		var stop ErrStop
		if errors.As(err, &stop) {
			return stop.Err
		}
		if attempt == attempts {
			break
		}
		if serr := sleeper.Sleep(ctx, p.wait()); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return err
}
