package bolt

import (
	"path/filepath"
	"testing"

	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/testkit"
)

func TestBolt_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		t.Helper()
		s, err := Open(filepath.Join(t.TempDir(), "idreg.bolt"))
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idreg.bolt")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.SetBatch([]storage.Entry{{Key: []byte("n"), Value: []byte{0x01}}, {Key: []byte("r"), Value: []byte("rec")}}); err != nil {
		t.Fatalf("SetBatch failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := s.Get([]byte("n")); err != storage.ErrClosed {
		t.Fatalf("Get after close: got %v want ErrClosed", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	got, err := s.Get([]byte("r"))
	if err != nil || string(got) != "rec" {
		t.Fatalf("Get after reopen: %q, %v", got, err)
	}
}
