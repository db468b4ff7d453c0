// Package memory provides an in-memory ReportWriter for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"dealtrack/internal/core"
)

type Store struct {
	mu    sync.Mutex
	deals []core.Transaction
}

func New() *Store {
	return &Store{}
}

// AppendDeal stores the deal and returns a synthetic row reference.
func (s *Store) AppendDeal(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals = append(s.deals, t)
	return fmt.Sprintf("mem:%d", len(s.deals)), nil
}

// Deals returns a copy of everything appended so far.
func (s *Store) Deals() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.deals...)
}
