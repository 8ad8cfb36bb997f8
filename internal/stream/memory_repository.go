package stream

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	streams map[int64]Stream
	nextID  int64
}

// NewMemoryRepository constructs an in-memory stream store for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{streams: make(map[int64]Stream), nextID: 1}
}

func (r *memoryRepository) Create(_ context.Context, stream Stream) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stream.ID = r.nextID
	r.nextID++
	r.streams[stream.ID] = stream
	return stream.ID, nil
}

func (r *memoryRepository) Get(_ context.Context, id int64) (Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stream, ok := r.streams[id]
	if !ok {
		return Stream{}, ErrNotFound
	}
	return stream, nil
}

func (r *memoryRepository) UpdateWithdrawn(_ context.Context, id int64, withdrawn int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stream, ok := r.streams[id]
	if !ok {
		return ErrNotFound
	}
	stream.Withdrawn = withdrawn
	r.streams[id] = stream
	return nil
}
