package storage

// Store is the registry's flat key-value space.
//
// Contract:
// - Keys are opaque, non-empty byte strings compared byte for byte.
// - Get MUST return ErrNotFound when the key is absent.
// - Set MUST be atomic for a single key: a reader sees the old or the new value, never a mix.
// - Implementations MUST NOT retain or mutate caller slices.
type Store interface {
	Has(key []byte) bool
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// Entry is one key/value pair.
type Entry struct {
	Key   []byte
	Value []byte
}

// Batcher is implemented by stores that can apply several writes atomically.
// Txn.Commit uses it when available.
type Batcher interface {
	SetBatch(entries []Entry) error
}

// Scanner is implemented by stores that can enumerate their contents.
//
// ForEach visits entries in ascending key order and stops at the first error fn returns.
type Scanner interface {
	ForEach(fn func(key, value []byte) error) error
}

// CheckKey rejects keys no backend can store.
func CheckKey(key []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	return nil
}

// SetAll writes entries through b when s is a Batcher, otherwise one Set at a time.
func SetAll(s Store, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if b, ok := s.(Batcher); ok {
		return b.SetBatch(entries)
	}
	for _, e := range entries {
		if err := s.Set(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}
