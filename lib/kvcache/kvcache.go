// Package kvcache is the response cache: a small key-value interface with
// badger (on disk) and LRU (in memory) backends, plus Memo which
// serializes concurrent writers of the same key.
package kvcache

import (
	"context"
	"errors"
)

var ErrMiss = errors.New("cache miss")

type Cache interface {
	// Get returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }
func (Nop) Put(context.Context, string, []byte) error   { return nil }
