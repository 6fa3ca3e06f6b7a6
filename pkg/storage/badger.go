package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend stores snapshots in an embedded BadgerDB.
type BadgerBackend struct {
	db     *badger.DB
	prefix string
}

// OpenBadgerBackend opens (or creates) a Badger database in dir. An empty dir
// opens an in-memory database.
func OpenBadgerBackend(dir, prefix string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open badger database: %w", err)
	}
	return NewBadgerBackend(db, prefix), nil
}

// NewBadgerBackend wraps an open Badger database.
func NewBadgerBackend(db *badger.DB, prefix string) *BadgerBackend {
	return &BadgerBackend{db: db, prefix: prefix}
}

func (b *BadgerBackend) Get(_ context.Context, id uint32) ([]byte, error) {
	var snapshot []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(championKey(b.prefix, id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get champion %d: %w", id, err)
		}
		snapshot, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (b *BadgerBackend) Put(_ context.Context, id uint32, snapshot []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(championKey(b.prefix, id)), snapshot)
	})
}

func (b *BadgerBackend) List(_ context.Context) ([]uint32, error) {
	var ids []uint32
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(b.prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if id, ok := parseChampionKey(b.prefix, string(it.Item().Key())); ok {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
