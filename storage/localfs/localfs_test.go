package localfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xdao.co/idreg/cidutil"
	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		t.Helper()
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return s
	})
}

func TestLocalFS_Layout(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	key := []byte{0x81, 0x03}
	if err := s.Set(key, []byte("admin")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	name := cidutil.KeyName(key)
	path := filepath.Join(dir, name[:2], name)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected value file at %s: %v", path, err)
	}
	if string(b) != "admin" {
		t.Fatalf("unexpected value file contents %q", b)
	}
	k, err := os.ReadFile(path + keySuffix)
	if err != nil {
		t.Fatalf("expected key file: %v", err)
	}
	if string(k) != string(key) {
		t.Fatalf("unexpected key file contents %x", k)
	}

	// No temp files left behind after overwrite.
	if err := s.Set(key, []byte("admin2")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLocalFS_ReopenSeesData(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s2, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	got, err := s2.Get([]byte("k"))
	if err != nil || string(got) != "v" {
		t.Fatalf("Get after reopen: %q, %v", got, err)
	}
}
