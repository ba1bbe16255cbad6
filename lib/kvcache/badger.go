package kvcache

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("waimai.lib.kvcache")

type Badger struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadger opens an on-disk cache at dir, an empty dir opens an
// in-memory database. ttl <= 0 keeps entries forever.
func OpenBadger(dir string, ttl time.Duration) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db, ttl: ttl}, nil
}

func (c *Badger) Close() error {
	return c.db.Close()
}

func (c *Badger) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := tracer.Start(ctx, "badger:get")
	defer span.End()
	span.SetAttributes(attribute.String("cache_key", key))

	var value []byte
	err := c.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return nil, err
	}
	return value, nil
}

func (c *Badger) Put(ctx context.Context, key string, value []byte) error {
	_, span := tracer.Start(ctx, "badger:put")
	defer span.End()
	span.SetAttributes(attribute.String("cache_key", key))

	err := c.db.Update(func(tx *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return tx.SetEntry(entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
	}
	return err
}
