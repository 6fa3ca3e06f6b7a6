// Package registry gives callers exclusive, per-champion access to stored
// champions. Work on different champion ids proceeds in parallel; work on the
// same id is serialized.
package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/CTAG07/Zilean/pkg/champion"
	"github.com/CTAG07/Zilean/pkg/storage"
)

// Store is the subset of storage.Database the registry relies on.
type Store interface {
	Load(ctx context.Context, id uint32) *champion.Champion
	Fetch(ctx context.Context, id uint32) (*champion.Champion, error)
	Store(ctx context.Context, c *champion.Champion) error
}

// idLock is a lock that can be abandoned when a context ends. refs counts
// holders and waiters so the entry can be dropped once nobody needs it.
type idLock struct {
	ch   chan struct{}
	refs int
}

// Registry hands out exclusive access to one champion id at a time.
type Registry struct {
	store  Store
	opts   []champion.Option
	mu     sync.Mutex
	locks  map[uint32]*idLock
	logger *slog.Logger
}

// New returns a Registry backed by store. The options are used for
// champions created when nothing is stored yet.
func New(store Store, opts ...champion.Option) *Registry {
	return &Registry{
		store:  store,
		opts:   opts,
		locks:  make(map[uint32]*idLock),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Registry. By default, all logs are discarded.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Update loads the champion for id, passes it to fn and stores the result,
// all while holding the id's lock. Nothing is stored if fn returns an error.
//
// A backend error while loading aborts the update rather than replacing the
// stored champion with an empty one.
func (r *Registry) Update(ctx context.Context, id uint32, fn func(c *champion.Champion) error) error {
	unlock, err := r.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	c, err := r.store.Fetch(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		c = champion.New(id, r.opts...)
	} else if err != nil {
		return err
	}

	if err = fn(c); err != nil {
		return err
	}
	return r.store.Store(ctx, c)
}

// Replace restores data into a fresh champion for id and stores it while
// holding the id's lock. The stored champion is never read, so a corrupt
// snapshot can be overwritten. Nothing is stored if data is malformed.
func (r *Registry) Replace(ctx context.Context, id uint32, data []byte) error {
	unlock, err := r.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	c := champion.New(id, r.opts...)
	if err = c.Deserialize(data); err != nil {
		return err
	}
	return r.store.Store(ctx, c)
}

// View loads the champion for id and passes it to fn while holding the id's
// lock. Changes fn makes are not stored.
func (r *Registry) View(ctx context.Context, id uint32, fn func(c *champion.Champion) error) error {
	unlock, err := r.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	return fn(r.store.Load(ctx, id))
}

// lock acquires the lock for id, giving up when ctx is done.
func (r *Registry) lock(ctx context.Context, id uint32) (func(), error) {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &idLock{ch: make(chan struct{}, 1)}
		r.locks[id] = l
	}
	l.refs++
	r.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		r.release(id, l)
		r.logger.DebugContext(ctx, "Gave up waiting for champion lock",
			slog.Uint64("champion_id", uint64(id)),
		)
		return nil, ctx.Err()
	}

	return func() {
		<-l.ch
		r.release(id, l)
	}, nil
}

func (r *Registry) release(id uint32, l *idLock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, id)
	}
}

// held returns the number of ids that currently have a holder or waiter.
func (r *Registry) held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
