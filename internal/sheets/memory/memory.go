// Package memory keeps exported transfer rows in process. The worker uses
// it when no spreadsheet is configured, and tests use it as a fake.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fairshare/internal/core"
	ports "fairshare/internal/sheets"
)

var (
	_ ports.Exporter       = (*Store)(nil)
	_ ports.TransferLister = (*Store)(nil)
)

type Store struct {
	mu   sync.Mutex
	rows []ports.Row
	// failNext makes the next export fail; used to simulate outages.
	failNext error
}

func New() *Store {
	return &Store{}
}

// ExportTransaction appends the transaction's transfer rows and returns a
// synthetic row reference.
func (s *Store) ExportTransaction(_ context.Context, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return "", err
	}
	for i, r := range s.rows {
		if r.TransactionID == tx.ID {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	rows := ports.RowsFor(tx)
	if len(rows) == 0 {
		return "", nil
	}
	first := len(s.rows) + 1
	s.rows = append(s.rows, rows...)
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

// DeleteTransaction removes every row of the transaction.
func (s *Store) DeleteTransaction(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	removed := 0
	for _, r := range s.rows {
		if r.TransactionID == id {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return removed, nil
}

// ListRows returns a copy of the stored rows in export order.
func (s *Store) ListRows(_ context.Context) ([]ports.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Row(nil), s.rows...), nil
}

// FailNext makes the next ExportTransaction call return err.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}
