package storage

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryBackend keeps snapshots in memory. It is meant for tests and
// throwaway runs.
type MemoryBackend struct {
	mu        sync.RWMutex
	snapshots map[uint32][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{snapshots: make(map[uint32][]byte)}
}

func (b *MemoryBackend) Get(_ context.Context, id uint32) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snapshot, ok := b.snapshots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(snapshot), nil
}

func (b *MemoryBackend) Put(_ context.Context, id uint32, snapshot []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots[id] = slices.Clone(snapshot)
	return nil
}

func (b *MemoryBackend) List(_ context.Context) ([]uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.snapshots)), nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
