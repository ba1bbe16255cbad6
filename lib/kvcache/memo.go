package kvcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Key stringifies call arguments into a cache key.
func Key(namespace string, args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return namespace + ":" + strings.Join(parts, "\x1f")
}

// Memo caches the JSON encoding of T. Loads for the same key are
// serialized so two workers never compute and write the same entry
// concurrently, different keys proceed in parallel.
type Memo[T any] struct {
	cache Cache

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewMemo[T any](cache Cache) *Memo[T] {
	if cache == nil {
		cache = Nop{}
	}
	return &Memo[T]{cache: cache, locks: map[string]*keyLock{}}
}

func (m *Memo[T]) lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Load returns the cached value for key or calls compute and stores its
// result. Errors from compute are returned and never cached. Cache read
// and write failures are logged and otherwise ignored.
func (m *Memo[T]) Load(ctx context.Context, key string, compute func(context.Context) (T, error)) (T, error) {
	unlock := m.lock(key)
	defer unlock()

	raw, err := m.cache.Get(ctx, key)
	if err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		slog.WarnContext(ctx, "discarding undecodable cache entry", "key", key)
	} else if !errors.Is(err, ErrMiss) {
		slog.WarnContext(ctx, "cache read failed", "key", key, "err", err)
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		slog.WarnContext(ctx, "cache encode failed", "key", key, "err", err)
		return value, nil
	}
	if err := m.cache.Put(ctx, key, encoded); err != nil {
		slog.WarnContext(ctx, "cache write failed", "key", key, "err", err)
	}
	return value, nil
}
