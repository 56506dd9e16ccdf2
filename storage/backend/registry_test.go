package backend

import (
	"bytes"
	"flag"
	"strings"
	"testing"

	"xdao.co/idreg/model"
	"xdao.co/idreg/storage"
)

type nopStore struct{}

func (nopStore) Has([]byte) bool             { return false }
func (nopStore) Get([]byte) ([]byte, error)  { return nil, storage.ErrNotFound }
func (nopStore) Set(key, value []byte) error { return nil }

func testBackend(name string, usage Usage, flagName string, got *map[string]string) Backend {
	var v string
	return Backend{
		Name:  name,
		Usage: usage,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&v, flagName, "", "test flag")
		},
		Open: func() (storage.Store, func() error, error) {
			*got = map[string]string{flagName: v}
			return nopStore{}, nil, nil
		},
		OpenConfig: func(cfg map[string]string) (storage.Store, func() error, error) {
			*got = cfg
			return nopStore{}, nil, nil
		},
	}
}

func TestRegister_Validation(t *testing.T) {
	if err := Register(Backend{}); err == nil {
		t.Fatalf("expected missing name to fail")
	}
	if err := Register(Backend{Name: "x"}); err == nil {
		t.Fatalf("expected missing callbacks to fail")
	}

	var got map[string]string
	b := testBackend("test-dup", UsageCLI, "test-dup-flag", &got)
	if err := Register(b); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register(b); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate registration to fail, got %v", err)
	}
}

func TestFlagsAndUsage(t *testing.T) {
	var got map[string]string
	MustRegister(testBackend("test-cli", UsageCLI, "test-cli-dir", &got))

	for _, n := range Names(UsageDaemon) {
		if n == "test-cli" {
			t.Fatalf("CLI-only backend listed for daemons")
		}
	}
	if _, _, err := Open("test-cli", UsageDaemon); err == nil {
		t.Fatalf("expected usage mismatch to fail")
	}
	if _, _, err := Open("no-such-backend", UsageCLI); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs, UsageCLI)
	if err := fs.Parse([]string{"--test-cli-dir", "/tmp/x"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, _, err := Open("test-cli", UsageCLI); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got["test-cli-dir"] != "/tmp/x" {
		t.Fatalf("flag value not seen by Open: %v", got)
	}

	if _, _, err := OpenWithConfig("test-cli", UsageCLI, map[string]string{"test-cli-dir": "/srv"}); err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	if got["test-cli-dir"] != "/srv" {
		t.Fatalf("config not passed through: %v", got)
	}
}

func TestLookupErrors(t *testing.T) {
	var got map[string]string
	MustRegister(testBackend("test-daemon", UsageDaemon, "test-daemon-dir", &got))

	_, _, err := Open("missing", UsageCLI)
	if model.RuleID(err) != "IDREG-CONF-004" {
		t.Fatalf("unknown backend: got %v", err)
	}
	_, _, err = OpenWithConfig("test-daemon", UsageCLI, nil)
	if model.RuleID(err) != "IDREG-CONF-005" || !strings.Contains(err.Error(), "cli programs") {
		t.Fatalf("usage mismatch: got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	var got map[string]string
	b := testBackend("test-described", UsageCLI|UsageDaemon, "test-described-dir", &got)
	b.Description = "for listing"
	MustRegister(b)

	var out bytes.Buffer
	if err := Describe(&out, UsageDaemon); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if !strings.Contains(out.String(), "test-described\tfor listing\n") {
		t.Fatalf("missing described line:\n%s", out.String())
	}
	if strings.Contains(out.String(), "test-cli") {
		t.Fatalf("CLI-only backend described for daemons:\n%s", out.String())
	}
}
