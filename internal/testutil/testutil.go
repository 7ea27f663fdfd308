// Package testutil provides store doubles for tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// MemStore implements a concurrency-safe in-memory store for tests.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// RemoveFails, when set, makes Remove report failure and keep the
	// mapping, mimicking an undeletable backing file.
	RemoveFails bool
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Put buffers all of src under id.
func (s *MemStore) Put(_ context.Context, id string, src io.Reader) error {
	b, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[id] = b
	s.mu.Unlock()
	return nil
}

// Get returns a reader over the bytes mapped under id.
func (s *MemStore) Get(id string) (io.ReadCloser, bool) {
	s.mu.RLock()
	b, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return io.NopCloser(bytes.NewReader(b)), true
}

// Remove drops the mapping for id, unless RemoveFails is set.
func (s *MemStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return true
	}
	if s.RemoveFails {
		return false
	}
	delete(s.data, id)
	return true
}

// RemoveAll drops every mapping.
func (s *MemStore) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RemoveFails {
		return
	}
	clear(s.data)
}

// Len reports the number of mapped entries.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// FailingPutStore wraps MemStore with a Put that always fails, for
// exercising the copy-failure path.
type FailingPutStore struct {
	*MemStore
}

// NewFailingPutStore constructs a store whose Put never succeeds.
func NewFailingPutStore() *FailingPutStore {
	return &FailingPutStore{MemStore: NewMemStore()}
}

// Put drains src and fails without mapping id.
func (s *FailingPutStore) Put(_ context.Context, _ string, src io.Reader) error {
	_, _ = io.Copy(io.Discard, src)
	return errors.New("testutil: put failed")
}
