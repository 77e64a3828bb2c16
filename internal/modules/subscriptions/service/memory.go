package service

import (
	"context"
	"sync"

	"github.com/samber/lo"
)

// Memory keeps subscriptions for the lifetime of the process only.
type Memory struct {
	mu    sync.Mutex
	users map[int64]map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{users: make(map[int64]map[string]struct{})}
}

func (m *Memory) Load(context.Context) (map[int64][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64][]string, len(m.users))
	for id, addrs := range m.users {
		out[id] = lo.Keys(addrs)
	}
	return out, nil
}

func (m *Memory) EnsureUser(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		m.users[userID] = make(map[string]struct{})
	}
	return nil
}

func (m *Memory) Add(_ context.Context, userID int64, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		m.users[userID] = make(map[string]struct{})
	}
	m.users[userID][address] = struct{}{}
	return nil
}

func (m *Memory) Remove(_ context.Context, userID int64, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users[userID], address)
	return nil
}
