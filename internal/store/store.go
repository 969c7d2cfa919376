// Package store persists view state snapshots under string keys.
package store

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Load when nothing is stored under a key.
var ErrNotFound = errors.New("store: key not found")

// Store loads and saves encoded snapshots.
type Store interface {
	Load(key string) (string, error)
	Save(key, value string) error
}

// Encode marshals v into the textual form kept in a Store.
func Encode(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(data), nil
}

// Decode unmarshals a value produced by Encode.
func Decode(s string, v any) error {
	if err := yaml.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return nil
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Load(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

// Entries returns a copy of the stored entries.
func (m *Memory) Entries() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}
