package app

import (
	"context"
	"sync"

	"github.com/zonecast/synchub/internal/domain"
)

// PlayerAction reacts to a playback-affecting session update.
// It runs inline in the update handler and must not block indefinitely.
type PlayerAction func(ctx context.Context, update domain.UpdateSession) error

type PlayerActionTable struct {
	mu      sync.RWMutex
	actions map[int64]PlayerAction
}

func NewPlayerActionTable() *PlayerActionTable {
	return &PlayerActionTable{actions: make(map[int64]PlayerAction)}
}

// Add registers action for playerID, replacing any earlier one.
func (t *PlayerActionTable) Add(playerID int64, action PlayerAction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actions[playerID] = action
}

func (t *PlayerActionTable) Remove(playerID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.actions, playerID)
}

func (t *PlayerActionTable) Get(playerID int64) (PlayerAction, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.actions[playerID]
	return a, ok
}

func (t *PlayerActionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.actions)
}
