package storage

// Txn buffers the writes of one registry call over a base Store.
//
// Reads see the transaction's own writes first. Nothing reaches the base
// store until Commit; Discard drops everything. A Txn is not safe for
// concurrent use.
type Txn struct {
	base    Store
	pending map[string][]byte
	order   []string
	done    bool
}

var _ Store = (*Txn)(nil)

func NewTxn(base Store) *Txn {
	return &Txn{base: base, pending: map[string][]byte{}}
}

func (t *Txn) Has(key []byte) bool {
	if t.done {
		return false
	}
	if _, ok := t.pending[string(key)]; ok {
		return true
	}
	return t.base.Has(key)
}

func (t *Txn) Get(key []byte) ([]byte, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	if v, ok := t.pending[string(key)]; ok {
		return append([]byte(nil), v...), nil
	}
	return t.base.Get(key)
}

func (t *Txn) Set(key, value []byte) error {
	if t.done {
		return ErrTxnDone
	}
	if err := CheckKey(key); err != nil {
		return err
	}
	k := string(key)
	if _, ok := t.pending[k]; !ok {
		t.order = append(t.order, k)
	}
	t.pending[k] = append([]byte(nil), value...)
	return nil
}

// Entries returns the buffered writes in first-write order, each with its latest value.
func (t *Txn) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Entry{Key: []byte(k), Value: t.pending[k]})
	}
	return out
}

// Commit applies the buffered writes to the base store, atomically when the
// base store is a Batcher.
func (t *Txn) Commit() error {
	if t.done {
		return ErrTxnDone
	}
	t.done = true
	return SetAll(t.base, t.Entries())
}

// Discard drops the buffered writes. It is safe to call after Commit.
func (t *Txn) Discard() {
	t.done = true
	t.pending = nil
	t.order = nil
}
