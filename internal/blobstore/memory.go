package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Memory keeps blobs in a map. Locations have the form mem://key.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemory returns an empty in-memory blob store.
func NewMemory() *Memory { return &Memory{objects: map[string][]byte{}} }

// Put reads r fully and stores it under key.
func (m *Memory) Put(ctx context.Context, key string, r io.Reader, _ int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("blobstore: read %s: %w", key, err)
	}
	m.mu.Lock()
	m.objects[key] = b
	m.mu.Unlock()
	return "mem://" + key, nil
}

// Delete removes the object; missing objects are not an error.
func (m *Memory) Delete(_ context.Context, location string) error {
	key, ok := strings.CutPrefix(location, "mem://")
	if !ok {
		return fmt.Errorf("%w: %s", ErrBadLocation, location)
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// Get returns the bytes stored at location.
func (m *Memory) Get(location string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[strings.TrimPrefix(location, "mem://")]
	return b, ok
}
