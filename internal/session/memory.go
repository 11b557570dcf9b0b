package session

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore implements Store and LeaseStore in process. It is used by
// tests and by local single-node runs without Redis. Values are round-tripped
// through JSON so callers observe the same copy semantics as the Redis store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	leases   map[string][]byte
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		leases:   make(map[string][]byte),
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	raw, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return New(id), nil
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetLease(_ context.Context, taskmapID string) (*StagedOutput, error) {
	m.mu.RLock()
	raw, ok := m.leases[taskmapID]
	m.mu.RUnlock()
	if !ok {
		return &StagedOutput{State: StageNone}, nil
	}
	var out StagedOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) PutLease(_ context.Context, taskmapID string, out *StagedOutput) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.leases[taskmapID] = raw
	m.mu.Unlock()
	return nil
}
