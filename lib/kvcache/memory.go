package kvcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory keeps at most size entries for ttl each (ttl <= 0 never expires).
func NewMemory(size int, ttl time.Duration) Memory {
	return Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m Memory) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return value, nil
}

func (m Memory) Put(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}
