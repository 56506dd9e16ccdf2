package storeconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xdao.co/idreg/model"
	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/backend"
	_ "xdao.co/idreg/storage/localfs"
	_ "xdao.co/idreg/storage/memory"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFile_YAMLAndJSON(t *testing.T) {
	y := writeConfig(t, "store.yaml", `
write_policy: all
backends:
  - name: localfs
    config:
      localfs-dir: /tmp/a
  - name: memory
    id: cache
`)
	cfg, err := LoadFile(y)
	if err != nil {
		t.Fatalf("LoadFile(yaml): %v", err)
	}
	if cfg.WritePolicy != "all" || len(cfg.Backends) != 2 || cfg.Backends[0].Config["localfs-dir"] != "/tmp/a" || cfg.Backends[1].ID != "cache" {
		t.Fatalf("unexpected yaml config: %+v", cfg)
	}

	j := writeConfig(t, "store.json", `{"backends":[{"name":"memory"}]}`)
	cfg, err = LoadFile(j)
	if err != nil {
		t.Fatalf("LoadFile(json): %v", err)
	}
	if len(cfg.Backends) != 1 || cfg.Backends[0].Name != "memory" {
		t.Fatalf("unexpected json config: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]Config{
		"empty":     {},
		"no name":   {Backends: []BackendConfig{{}}},
		"duplicate": {Backends: []BackendConfig{{Name: "memory"}, {Name: "memory"}}},
		"policy":    {WritePolicy: "some", Backends: []BackendConfig{{Name: "memory"}}},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestOpen_WritePolicies(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	cfg := Config{Backends: []BackendConfig{
		{Name: "localfs", ID: "a", Config: map[string]string{"localfs-dir": dirA}},
		{Name: "localfs", ID: "b", Config: map[string]string{"localfs-dir": dirB}},
	}}

	s, closeFn, err := cfg.Open(backend.UsageDaemon, "b")
	if err != nil {
		t.Fatalf("Open(first): %v", err)
	}
	defer closeFn()
	multi, ok := s.(storage.MultiStore)
	if !ok || len(multi.Stores) != 2 {
		t.Fatalf("expected MultiStore with 2 stores, got %T", s)
	}
	if err := s.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	entries, _ := os.ReadDir(dirA)
	if len(entries) != 0 {
		t.Fatalf("write policy first with preferred b wrote to a")
	}

	cfg.WritePolicy = "all"
	s, closeFn2, err := cfg.Open(backend.UsageDaemon, "")
	if err != nil {
		t.Fatalf("Open(all): %v", err)
	}
	defer closeFn2()
	rep, ok := s.(storage.ReplicatingStore)
	if !ok {
		t.Fatalf("expected ReplicatingStore, got %T", s)
	}
	if err := s.Set([]byte("k2"), []byte("v2")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	missing, err := rep.Verify([]byte("k2"))
	if err != nil || len(missing) != 0 {
		t.Fatalf("Verify: missing=%v err=%v", missing, err)
	}
	missing, err = rep.Verify([]byte("k"))
	if err != nil || len(missing) != 1 || missing[0] != "a" {
		t.Fatalf("Verify(k): missing=%v err=%v", missing, err)
	}
}

func TestOpen_Errors(t *testing.T) {
	cfg := Config{Backends: []BackendConfig{{Name: "memory"}}}
	if _, _, err := cfg.Open(backend.UsageCLI, "nope"); model.RuleID(err) != "IDREG-CONF-006" {
		t.Fatalf("expected unknown preferred backend to fail, got %v", err)
	}
	cfg = Config{Backends: []BackendConfig{{Name: "no-such-backend"}}}
	if _, _, err := cfg.Open(backend.UsageCLI, ""); model.RuleID(err) != "IDREG-CONF-004" || !strings.Contains(err.Error(), "no-such-backend") {
		t.Fatalf("expected unknown backend to fail, got %v", err)
	}
	cfg = Config{Backends: []BackendConfig{{Name: "localfs"}}}
	if _, _, err := cfg.Open(backend.UsageCLI, ""); err == nil {
		t.Fatalf("expected missing localfs-dir to fail")
	}
}
