// Package memstore is an in-memory record store used by tests and storeless
// development runs. Rows are deep-copied on the way in and out so callers
// cannot alias internal state.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"atlasforge.io/internal/store"
)

// Store holds tables and blob buckets in process memory.
type Store struct {
	mu      sync.RWMutex
	tables  map[string][]store.Row
	buckets map[string]map[string][]byte
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		tables:  make(map[string][]store.Row),
		buckets: make(map[string]map[string][]byte),
	}
}

func (s *Store) Select(_ context.Context, table string, filter store.Filter) ([]store.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Row
	for _, row := range s.tables[table] {
		if matches(row, filter) {
			out = append(out, copyRow(row))
		}
	}
	return out, nil
}

func (s *Store) Insert(_ context.Context, table string, row store.Row) (store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := row["id"]; ok {
		for _, existing := range s.tables[table] {
			if existing["id"] == id {
				return nil, store.ErrConflict
			}
		}
	}
	stored := copyRow(row)
	s.tables[table] = append(s.tables[table], stored)
	return copyRow(stored), nil
}

func (s *Store) Update(_ context.Context, table string, patch store.Row, filter store.Filter) ([]store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Row
	for _, row := range s.tables[table] {
		if !matches(row, filter) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		out = append(out, copyRow(row))
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, table string, filter store.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tables[table][:0]
	for _, row := range s.tables[table] {
		if !matches(row, filter) {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept
	return nil
}

func (s *Store) Upload(_ context.Context, bucket, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		s.buckets[bucket] = b
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	b[path] = cp
	return nil
}

func (s *Store) Download(_ context.Context, bucket, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.buckets[bucket][path]
	if !ok {
		return nil, store.ErrNoRows
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *Store) List(_ context.Context, bucket, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var paths []string
	for p := range s.buckets[bucket] {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Count reports the number of rows currently in table. Test helper.
func (s *Store) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

func matches(row store.Row, filter store.Filter) bool {
	for k, want := range filter {
		if row[k] != want {
			return false
		}
	}
	return true
}

func copyRow(row store.Row) store.Row {
	cp := make(store.Row, len(row))
	for k, v := range row {
		cp[k] = v
	}
	return cp
}
