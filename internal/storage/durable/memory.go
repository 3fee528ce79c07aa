package durable

import (
	"context"
	"sort"
	"sync"

	"github.com/yndnr/shopmate-go/internal/core/domain"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]*domain.DurableRecord
	closed  bool

	// FailInserts makes Insert return the given error. Tests use it to
	// exercise the retained-shadow path.
	FailInserts error
	// FailPing makes Ping return the given error.
	FailPing error
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]*domain.DurableRecord)}
}

func (m *Memory) Insert(ctx context.Context, rec *domain.DurableRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.FailInserts != nil {
		return m.FailInserts
	}
	cp := *rec
	m.records[rec.SessionID] = append(m.records[rec.SessionID], &cp)
	return nil
}

func (m *Memory) FindBySession(ctx context.Context, sessionID string) ([]*domain.DurableRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	recs := make([]*domain.DurableRecord, len(m.records[sessionID]))
	copy(recs, m.records[sessionID])
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}

// Count returns the number of stored records.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, recs := range m.records {
		n += len(recs)
	}
	return n
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	return m.FailPing
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

var _ Store = (*Memory)(nil)
