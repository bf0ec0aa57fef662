package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps payloads in process. Used when REDIS_URL is empty.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memEntry
}

type memEntry struct {
	payload   *Payload
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memEntry)}
}

func (m *MemoryStore) Create(_ context.Context, p *Payload) error {
	if p == nil {
		return fmt.Errorf("nil board session payload")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookup(p.ID); ok {
		return ErrSessionExists
	}
	m.put(p)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.lookup(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return p.clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Payload) error) (*Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.lookup(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	cur := p.clone()
	if err := fn(cur); err != nil {
		return nil, err
	}
	m.put(cur)
	return cur.clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookup(id); !ok {
		return ErrSessionNotFound
	}
	delete(m.entries, id)
	return nil
}

// lookup expects m.mu held.
func (m *MemoryStore) lookup(id string) (*Payload, bool) {
	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, id)
		return nil, false
	}
	return e.payload, true
}

func (m *MemoryStore) put(p *Payload) {
	e := memEntry{payload: p.clone()}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[p.ID] = e
}
