// Package memory is an in-process Store for tests and single-run tools.
package memory

import (
	"sort"

	"github.com/sasha-s/go-deadlock"

	"xdao.co/idreg/storage"
)

// Store keeps entries in a map. Values are copied on the way in and out.
type Store struct {
	mu deadlock.RWMutex
	m  map[string][]byte
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Batcher = (*Store)(nil)
	_ storage.Scanner = (*Store)(nil)
)

func New() *Store {
	return &Store{m: map[string][]byte{}}
}

func (s *Store) Has(key []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[string(key)]
	return ok
}

func (s *Store) Get(key []byte) ([]byte, error) {
	if err := storage.CheckKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[string(key)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(key, value []byte) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[string(key)] = append([]byte(nil), value...)
	return nil
}

// SetBatch applies all entries under one lock acquisition.
func (s *Store) SetBatch(entries []storage.Entry) error {
	for _, e := range entries {
		if err := storage.CheckKey(e.Key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.m[string(e.Key)] = append([]byte(nil), e.Value...)
	}
	return nil
}

func (s *Store) ForEach(fn func(key, value []byte) error) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	snapshot := make(map[string][]byte, len(s.m))
	for k, v := range s.m {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), append([]byte(nil), snapshot[k]...)); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
