package app

import (
	"sync"

	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/domain"
)

// LivenessTable maps live transport connections to the client connection
// they registered as. It only annotates "alive" in connection snapshots.
type LivenessTable struct {
	mu      sync.RWMutex
	records map[core.ConnID]domain.Connection
}

func NewLivenessTable() *LivenessTable {
	return &LivenessTable{records: make(map[core.ConnID]domain.Connection)}
}

func (t *LivenessTable) Put(id core.ConnID, c domain.Connection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[id] = c
}

func (t *LivenessTable) Remove(id core.ConnID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.records[id]
	delete(t.records, id)
	return ok
}

func (t *LivenessTable) Get(id core.ConnID) (domain.Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.records[id]
	return c, ok
}

// IsAlive reports whether any live transport registered as connectionID.
func (t *LivenessTable) IsAlive(connectionID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.records {
		if c.ID == connectionID {
			return true
		}
	}
	return false
}

func (t *LivenessTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
