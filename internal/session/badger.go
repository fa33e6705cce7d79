package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "session:"

// BadgerKV stores values in an embedded BadgerDB for durability across restarts.
type BadgerKV struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadgerKV opens a BadgerDB at path; an empty path runs in memory.
func OpenBadgerKV(path string, ttl time.Duration) (*BadgerKV, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("session: open badger: %w", err)
	}
	return &BadgerKV{db: db, ttl: ttl}, nil
}

func (b *BadgerKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *BadgerKV) Set(ctx context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(badgerKeyPrefix+key), value)
		if b.ttl > 0 {
			entry = entry.WithTTL(b.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (b *BadgerKV) Delete(ctx context.Context, keys ...string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(badgerKeyPrefix + key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerKV) Close() error {
	return b.db.Close()
}
