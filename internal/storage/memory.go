package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Backend. It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	data  map[string]string
	quota int64
}

// NewMemory creates an empty Memory backend. A zero quota means unlimited.
func NewMemory(quotaBytes int64) *Memory {
	return &Memory{data: make(map[string]string), quota: quotaBytes}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if overQuota(m.quota, m.used(), int64(len(m.data[key])), int64(len(value))) {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Usage(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used(), nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) used() int64 {
	var n int64
	for _, v := range m.data {
		n += int64(len(v))
	}
	return n
}
