// Package testkit holds reusable conformance checks for storage.Store implementations.
package testkit

import (
	"bytes"
	"errors"
	"testing"

	"xdao.co/idreg/storage"
)

// NewStore constructs a fresh, empty Store for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("SetGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		key := []byte{0x82, 0x01, 0x00}
		want := []byte("hello, registry storage")

		if err := s.Set(key, want); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := s.Get(key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch: got %q want %q", got, want)
		}
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		s := newStore(t)
		key := []byte("k")
		if err := s.Set(key, []byte("first")); err != nil {
			t.Fatalf("Set(1) failed: %v", err)
		}
		if err := s.Set(key, []byte("second, longer value")); err != nil {
			t.Fatalf("Set(2) failed: %v", err)
		}
		got, err := s.Get(key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "second, longer value" {
			t.Fatalf("Get after overwrite: got %q", got)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		key := []byte("missing")

		if s.Has(key) {
			t.Fatalf("Has returned true for missing key")
		}
		_, err := s.Get(key)
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if err := s.Set(key, []byte("now present")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if !s.Has(key) {
			t.Fatalf("Has returned false after Set")
		}
	})

	t.Run("KeysAreByteExact", func(t *testing.T) {
		s := newStore(t)
		a := []byte{0x00, 0x01}
		b := []byte{0x00, 0x01, 0x00}
		if err := s.Set(a, []byte("a")); err != nil {
			t.Fatalf("Set(a) failed: %v", err)
		}
		if err := s.Set(b, []byte("b")); err != nil {
			t.Fatalf("Set(b) failed: %v", err)
		}
		got, err := s.Get(a)
		if err != nil || string(got) != "a" {
			t.Fatalf("Get(a): got %q, %v", got, err)
		}
		got, err = s.Get(b)
		if err != nil || string(got) != "b" {
			t.Fatalf("Get(b): got %q, %v", got, err)
		}
	})

	t.Run("RejectEmptyKey", func(t *testing.T) {
		s := newStore(t)
		if s.Has(nil) {
			t.Fatalf("Has should be false for empty key")
		}
		if err := s.Set(nil, []byte("x")); err == nil {
			t.Fatalf("Set should fail for empty key")
		}
		if _, err := s.Get(nil); err == nil || storage.IsNotFound(err) {
			t.Fatalf("Get should fail with a non-NotFound error for empty key, got %v", err)
		}
	})

	t.Run("CallerSlicesNotRetained", func(t *testing.T) {
		s := newStore(t)
		key := []byte("alias")
		val := []byte("original")
		if err := s.Set(key, val); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		copy(val, "XXXXXXXX")
		got, err := s.Get(key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "original" {
			t.Fatalf("store retained caller value slice: %q", got)
		}
		got[0] = 'Y'
		again, err := s.Get(key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(again) != "original" {
			t.Fatalf("store returned an aliased slice: %q", again)
		}
	})

	t.Run("TxnCommitAndDiscard", func(t *testing.T) {
		s := newStore(t)
		txn := storage.NewTxn(s)
		if err := txn.Set([]byte("n"), []byte("1")); err != nil {
			t.Fatalf("txn Set failed: %v", err)
		}
		if err := txn.Set([]byte("r"), []byte("rec")); err != nil {
			t.Fatalf("txn Set failed: %v", err)
		}
		if s.Has([]byte("n")) {
			t.Fatalf("uncommitted write visible in base store")
		}
		if err := txn.Commit(); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		if !s.Has([]byte("n")) || !s.Has([]byte("r")) {
			t.Fatalf("committed writes missing")
		}

		txn = storage.NewTxn(s)
		if err := txn.Set([]byte("n"), []byte("2")); err != nil {
			t.Fatalf("txn Set failed: %v", err)
		}
		txn.Discard()
		got, err := s.Get([]byte("n"))
		if err != nil || string(got) != "1" {
			t.Fatalf("discarded write leaked: %q, %v", got, err)
		}
	})

	t.Run("BatchIfSupported", func(t *testing.T) {
		s := newStore(t)
		b, ok := s.(storage.Batcher)
		if !ok {
			t.Skip("store does not implement storage.Batcher")
		}
		entries := []storage.Entry{
			{Key: []byte("b1"), Value: []byte("one")},
			{Key: []byte("b2"), Value: []byte("two")},
		}
		if err := b.SetBatch(entries); err != nil {
			t.Fatalf("SetBatch failed: %v", err)
		}
		for _, e := range entries {
			got, err := s.Get(e.Key)
			if err != nil || !bytes.Equal(got, e.Value) {
				t.Fatalf("Get(%s): got %q, %v", e.Key, got, err)
			}
		}
		bad := []storage.Entry{{Key: []byte("b3"), Value: []byte("three")}, {Key: nil, Value: []byte("x")}}
		if err := b.SetBatch(bad); err == nil {
			t.Fatalf("SetBatch should fail on an empty key")
		}
		if s.Has([]byte("b3")) {
			t.Fatalf("failed batch left a partial write")
		}
	})

	t.Run("ForEachIfSupported", func(t *testing.T) {
		s := newStore(t)
		sc, ok := s.(storage.Scanner)
		if !ok {
			t.Skip("store does not implement storage.Scanner")
		}
		for _, k := range []string{"c", "a", "b"} {
			if err := s.Set([]byte(k), []byte("v"+k)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
		}
		var seen []string
		err := sc.ForEach(func(key, value []byte) error {
			if string(value) != "v"+string(key) {
				t.Fatalf("ForEach value mismatch for %q: %q", key, value)
			}
			seen = append(seen, string(key))
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach failed: %v", err)
		}
		if len(seen) != 3 || seen[0] != "a" || seen[1] != "b" || seen[2] != "c" {
			t.Fatalf("ForEach order: got %v", seen)
		}

		stop := errors.New("stop")
		n := 0
		err = sc.ForEach(func(key, value []byte) error {
			n++
			return stop
		})
		if !errors.Is(err, stop) || n != 1 {
			t.Fatalf("ForEach should stop at the first error: n=%d err=%v", n, err)
		}
	})
}
