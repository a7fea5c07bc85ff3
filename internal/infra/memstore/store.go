// Package memstore is an in-memory record store used by tests and by the
// console when STORE_DRIVER=memory.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hojiakbarsobirov/admin-pannel-sub000/internal/domain/record"
)

type table struct {
	docs  map[string]record.Document
	order []string // insertion order of ids
}

func newTable() *table {
	return &table{docs: map[string]record.Document{}}
}

// Store keeps every collection in process memory. Documents are deep-copied
// on the way in and out.
type Store struct {
	mu     sync.RWMutex
	tables map[record.Collection]*table
}

func New() *Store {
	return &Store{tables: map[record.Collection]*table{}}
}

func (s *Store) list(c record.Collection, keep func(record.Document) bool) ([]record.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[c]
	if !ok {
		return []record.Document{}, nil
	}
	out := make([]record.Document, 0, len(t.order))
	for _, id := range t.order {
		doc := t.docs[id]
		if keep != nil && !keep(doc) {
			continue
		}
		cp, err := record.Clone(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *Store) ListAll(_ context.Context, c record.Collection) ([]record.Document, error) {
	return s.list(c, nil)
}

func (s *Store) ListWhere(_ context.Context, c record.Collection, field string, value interface{}) ([]record.Document, error) {
	want, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("memstore: encode filter value: %w", err)
	}
	return s.list(c, func(doc record.Document) bool {
		v, ok := doc[field]
		if !ok {
			return false
		}
		got, err := json.Marshal(v)
		return err == nil && bytes.Equal(got, want)
	})
}

func (s *Store) GetByID(_ context.Context, c record.Collection, id string) (record.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[c]
	if !ok {
		return nil, record.ErrNotFound
	}
	doc, ok := t.docs[id]
	if !ok {
		return nil, record.ErrNotFound
	}
	return record.Clone(doc)
}

func (s *Store) Upsert(_ context.Context, c record.Collection, id string, fields record.Document) error {
	if id == "" {
		return fmt.Errorf("memstore: upsert into %s: empty id", c)
	}
	doc, err := record.Clone(fields)
	if err != nil {
		return err
	}
	doc[record.FieldID] = id

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[c]
	if !ok {
		t = newTable()
		s.tables[c] = t
	}
	if _, exists := t.docs[id]; !exists {
		t.order = append(t.order, id)
	}
	t.docs[id] = doc
	return nil
}

func (s *Store) Insert(ctx context.Context, c record.Collection, fields record.Document) (string, error) {
	id := uuid.NewString()
	if err := s.Upsert(ctx, c, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Delete(_ context.Context, c record.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[c]
	if !ok {
		return nil
	}
	if _, exists := t.docs[id]; !exists {
		return nil
	}
	delete(t.docs, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of documents in c.
func (s *Store) Count(c record.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[c]; ok {
		return len(t.docs)
	}
	return 0
}

func (s *Store) snapshot() map[record.Collection]*table {
	cp := make(map[record.Collection]*table, len(s.tables))
	for c, t := range s.tables {
		nt := newTable()
		nt.order = append([]string(nil), t.order...)
		for id, doc := range t.docs {
			nt.docs[id] = doc
		}
		cp[c] = nt
	}
	return cp
}

// TxStore is a Store that also offers all-or-nothing batches. Batches are
// serialized; writes made outside a batch while it runs may be lost on
// rollback.
type TxStore struct {
	*Store
	txMu sync.Mutex
}

func NewTransactional() *TxStore {
	return &TxStore{Store: New()}
}

// WithinTx runs fn and restores the previous contents if it fails.
func (s *TxStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx record.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	saved := s.snapshot()
	s.mu.RUnlock()

	if err := fn(ctx, s.Store); err != nil {
		s.mu.Lock()
		s.tables = saved
		s.mu.Unlock()
		return err
	}
	return nil
}
