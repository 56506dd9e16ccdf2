package storage

import (
	"errors"
)

// MultiStore provides deterministic, ordered fallback across multiple stores.
//
// Read order is the slice order in Stores; callers MUST supply a fixed order.
//
// Writes go only to the first store.
type MultiStore struct {
	Stores []Store
}

var (
	_ Store   = MultiStore{}
	_ Batcher = MultiStore{}
)

func (m MultiStore) Set(key, value []byte) error {
	if len(m.Stores) == 0 {
		return errors.New("storage: MultiStore has no stores")
	}
	return m.Stores[0].Set(key, value)
}

func (m MultiStore) SetBatch(entries []Entry) error {
	if len(m.Stores) == 0 {
		return errors.New("storage: MultiStore has no stores")
	}
	return SetAll(m.Stores[0], entries)
}

func (m MultiStore) Get(key []byte) ([]byte, error) {
	for _, s := range m.Stores {
		b, err := s.Get(key)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m MultiStore) Has(key []byte) bool {
	for _, s := range m.Stores {
		if s.Has(key) {
			return true
		}
	}
	return false
}
