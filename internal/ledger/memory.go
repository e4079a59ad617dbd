package ledger

import (
	"context"
	"sync"
)

// MemoryLedger keeps committed ids in memory. Useful in tests and
// throwaway runs where persistence is not wanted.
type MemoryLedger struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewMemory builds an empty MemoryLedger.
func NewMemory() *MemoryLedger {
	return &MemoryLedger{ids: make(map[string]struct{})}
}

func (l *MemoryLedger) Contains(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok, nil
}

func (l *MemoryLedger) Commit(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids[id] = struct{}{}
	return nil
}
