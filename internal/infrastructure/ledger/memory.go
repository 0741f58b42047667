package ledger

import (
	"context"
	"sync"

	"github.com/janhq/image-upload/internal/domain/tagging"
)

// Memory keeps duplicate records in process. Records are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	records map[string]tagging.DuplicateRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]tagging.DuplicateRecord)}
}

func (m *Memory) Record(_ context.Context, rec tagging.DuplicateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key] = rec
	return nil
}

func (m *Memory) Lookup(_ context.Context, key string) (tagging.DuplicateRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	return rec, ok, nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}
