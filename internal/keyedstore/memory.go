package keyedstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Store. Used by tests and by the memory backend
// in config.
type Memory struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
	watch  *watchTable
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]json.RawMessage),
		watch:  newWatchTable(),
	}
}

// ReadOnce returns the value at path, or ErrAbsent.
func (m *Memory) ReadOnce(ctx context.Context, path string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[path]
	if !ok {
		return nil, fmt.Errorf("read %q: %w", path, ErrAbsent)
	}
	return v, nil
}

// Write overwrites the value at path and notifies subscribers.
func (m *Memory) Write(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}

	m.mu.Lock()
	m.values[path] = raw
	m.mu.Unlock()

	m.watch.notify(path, raw)
	return nil
}

// Subscribe delivers the current value (nil when absent), then every write.
func (m *Memory) Subscribe(path string) (<-chan json.RawMessage, func()) {
	m.mu.RLock()
	current := m.values[path]
	m.mu.RUnlock()
	return m.watch.add(path, current)
}
