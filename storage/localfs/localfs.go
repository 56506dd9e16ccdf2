// Package localfs is a Store keeping one file per key under a directory.
package localfs

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/idreg/cidutil"
	"xdao.co/idreg/storage"
)

const keySuffix = ".key"

// Store is a local filesystem-backed key-value store.
//
// Each key is named by the CID of its bytes (see cidutil.KeyName). The value
// lives in <root>/<name[:2]>/<name> and the raw key in a ".key" sibling so the
// store can be enumerated. Values are replaced by rename, so a reader sees
// either the old or the new value. Writes of several keys are not atomic
// together.
type Store struct {
	root string
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Scanner = (*Store)(nil)
)

// New constructs a filesystem store rooted at root. The directory will be created if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Set(key, value []byte) error {
	if err := storage.CheckKey(key); err != nil {
		return err
	}
	path := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path + keySuffix); os.IsNotExist(err) {
		if err := writeFileAtomic(path+keySuffix, key); err != nil {
			return err
		}
	}
	return writeFileAtomic(path, value)
}

func (s *Store) Get(key []byte) ([]byte, error) {
	if err := storage.CheckKey(key); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *Store) Has(key []byte) bool {
	if len(key) == 0 {
		return false
	}
	_, err := os.Stat(s.pathFor(key))
	return err == nil
}

// ForEach visits every stored entry in ascending key order.
func (s *Store) ForEach(fn func(key, value []byte) error) error {
	var keys [][]byte
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, keySuffix) {
			return nil
		}
		k, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if s.Has(k) {
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(keys, func(i, j int) bool { return string(keys[i]) < string(keys[j]) })
	for _, k := range keys {
		v, err := s.Get(k)
		if err != nil {
			return err
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) pathFor(key []byte) string {
	name := cidutil.KeyName(key)
	if len(name) < 2 {
		return filepath.Join(s.root, name)
	}
	return filepath.Join(s.root, name[:2], name)
}

func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
