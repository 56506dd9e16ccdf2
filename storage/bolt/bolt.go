// Package bolt provides a BoltDB-backed Store with atomic batches.
package bolt

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"xdao.co/idreg/storage"
)

var kvBucket = []byte("kv")

// Store keeps all registry entries in a single bucket.
type Store struct {
	db *bbolt.DB
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Batcher = (*Store)(nil)
	_ storage.Scanner = (*Store)(nil)
)

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(kvBucket); err != nil {
			return fmt.Errorf("create kv bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Has(key []byte) bool {
	_, err := s.Get(key)
	return err == nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, storage.ErrClosed
	}
	if err := storage.CheckKey(key); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(kvBucket).Get(key)
		if v == nil {
			return storage.ErrNotFound
		}
		// v is only valid inside the transaction.
		out = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Set(key, value []byte) error {
	return s.SetBatch([]storage.Entry{{Key: key, Value: value}})
}

// SetBatch writes all entries in one bolt transaction.
func (s *Store) SetBatch(entries []storage.Entry) error {
	if s == nil || s.db == nil {
		return storage.ErrClosed
	}
	for _, e := range entries {
		if err := storage.CheckKey(e.Key); err != nil {
			return err
		}
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(kvBucket)
		for _, e := range entries {
			value := e.Value
			if value == nil {
				value = []byte{}
			}
			if err := b.Put(e.Key, value); err != nil {
				return fmt.Errorf("put kv: %w", err)
			}
		}
		return nil
	})
}

// ForEach visits entries in ascending key order.
func (s *Store) ForEach(fn func(key, value []byte) error) error {
	if s == nil || s.db == nil {
		return storage.ErrClosed
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(kvBucket).ForEach(func(k, v []byte) error {
			return fn(append([]byte(nil), k...), append([]byte(nil), v...))
		})
	})
}
