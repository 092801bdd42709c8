// Package memory is the default, volatile ledger store. All data lives
// for the life of the process, matching the reference system.
package memory

import (
	"context"
	"sync"

	"ventas/internal/core"
)

// Store keeps sales in insertion order behind a single mutex. Every
// read-modify-write sequence in the engine goes through that lock, so
// the store is safe behind a concurrent front end.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []*core.Sale
	index  map[int64]*core.Sale
}

func New() *Store {
	return &Store{index: make(map[int64]*core.Sale)}
}

func (s *Store) NextID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID, nil
}

func (s *Store) Insert(_ context.Context, sale *core.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clone(sale)
	s.items = append(s.items, cp)
	s.index[cp.ID] = cp
	return nil
}

func (s *Store) Update(_ context.Context, sale *core.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.index[sale.ID]
	if !ok {
		return nil
	}
	*stored = *clone(sale)
	return nil
}

func (s *Store) Remove(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return false, nil
	}
	delete(s.index, id)
	kept := s.items[:0]
	for _, it := range s.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	s.items = kept
	return true, nil
}

func (s *Store) Get(_ context.Context, id int64) (*core.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.index[id]
	if !ok {
		return nil, nil
	}
	return clone(sale), nil
}

func (s *Store) All(_ context.Context) ([]*core.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.Sale, len(s.items))
	for i, it := range s.items {
		out[i] = clone(it)
	}
	return out, nil
}

// clone hands out an independent copy so callers can never mutate
// stored state without going through Update.
func clone(s *core.Sale) *core.Sale {
	cp := *s
	cp.Categories = append([]string(nil), s.Categories...)
	cp.Payments = append([]core.Payment(nil), s.Payments...)
	if s.ClosePeriod != nil {
		p := *s.ClosePeriod
		cp.ClosePeriod = &p
	}
	return &cp
}
