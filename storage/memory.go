package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryDB keeps everything in process. It is the fallback when the
// configured backend cannot be opened, and the backend used by tests.
type MemoryDB struct {
	mu       sync.RWMutex
	pending  map[string]PendingDeletion
	closures []ClosureRecord
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{pending: make(map[string]PendingDeletion)}
}

func (m *MemoryDB) Init(context.Context) error  { return nil }
func (m *MemoryDB) Close(context.Context) error { return nil }

func (m *MemoryDB) AddPendingDeletion(_ context.Context, p PendingDeletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[p.ChannelID] = p
	return nil
}

func (m *MemoryDB) RemovePendingDeletion(_ context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, channelID)
	return nil
}

func (m *MemoryDB) PendingDeletions(context.Context) ([]PendingDeletion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PendingDeletion, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (m *MemoryDB) AddClosure(_ context.Context, c ClosureRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closures = append(m.closures, c)
	return nil
}

func (m *MemoryDB) Closures(_ context.Context, guildID, ownerID string, limit int) ([]ClosureRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ClosureRecord
	for i := len(m.closures) - 1; i >= 0 && len(out) < limit; i-- {
		c := m.closures[i]
		if c.GuildID != guildID || (ownerID != "" && c.OwnerID != ownerID) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
