package storage

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrReplicaMismatch is returned by Verify when backends disagree on a value.
var ErrReplicaMismatch = errors.New("storage: replica mismatch")

// NamedStore associates a Store with a stable backend name.
type NamedStore struct {
	Name  string
	Store Store
}

// ReplicatingStore writes to all configured backends.
//
// Reads fall back in order. A write fails on the first backend error; backends
// written before the failure keep the new value and later ones are not tried.
// A failed batch is therefore only atomic per backend: callers that see an
// error may still read the new values, and Verify names the lagging backends.
type ReplicatingStore struct {
	Backends []NamedStore
}

var (
	_ Store   = ReplicatingStore{}
	_ Batcher = ReplicatingStore{}
)

// SetBatchAll writes entries to every backend and returns the names written, in order.
func (r ReplicatingStore) SetBatchAll(entries []Entry) ([]string, error) {
	if len(r.Backends) == 0 {
		return nil, fmt.Errorf("storage: ReplicatingStore has no backends")
	}
	written := make([]string, 0, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store == nil {
			return written, fmt.Errorf("storage: nil store for backend %q", b.Name)
		}
		if err := SetAll(b.Store, entries); err != nil {
			return written, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		written = append(written, b.Name)
	}
	return written, nil
}

func (r ReplicatingStore) SetBatch(entries []Entry) error {
	_, err := r.SetBatchAll(entries)
	return err
}

func (r ReplicatingStore) Set(key, value []byte) error {
	_, err := r.SetBatchAll([]Entry{{Key: key, Value: value}})
	return err
}

func (r ReplicatingStore) Get(key []byte) ([]byte, error) {
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		out, err := b.Store.Get(key)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (r ReplicatingStore) Has(key []byte) bool {
	for _, b := range r.Backends {
		if b.Store != nil && b.Store.Has(key) {
			return true
		}
	}
	return false
}

// Verify checks that every backend holding key holds the same value.
// It returns the names of backends missing the key.
func (r ReplicatingStore) Verify(key []byte) (missing []string, err error) {
	var want []byte
	var seen bool
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		got, err := b.Store.Get(key)
		if IsNotFound(err) {
			missing = append(missing, b.Name)
			continue
		}
		if err != nil {
			return missing, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		if !seen {
			want, seen = got, true
			continue
		}
		if !bytes.Equal(want, got) {
			return missing, fmt.Errorf("%w: backend %q", ErrReplicaMismatch, b.Name)
		}
	}
	return missing, nil
}
