package memory

import (
	"context"
	"fmt"
	"sync"

	"terptracker/internal/core"
)

// Store is an in-memory ExpenseWriter used in tests and local development.
type Store struct {
	mu    sync.Mutex
	items []core.ExpenseRecord
}

func New() *Store {
	return &Store{}
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, rec core.ExpenseRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, rec)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Items returns a copy of everything appended so far.
func (s *Store) Items() []core.ExpenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExpenseRecord(nil), s.items...)
}
