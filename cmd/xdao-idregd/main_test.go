package main

import (
	"bytes"
	"context"
	"flag"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/idreg/keys"
	"xdao.co/idreg/model"
	"xdao.co/idreg/registry"
	"xdao.co/idreg/registry/grpcreg"
	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/grpckv"
	"xdao.co/idreg/storage/memory"
)

func parseConfig(t *testing.T, args ...string) (config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	configPath := registerConfigFlags(fs)
	require.NoError(t, fs.Parse(args))
	return loadConfig(fs, *configPath)
}

func TestLoadConfig_Precedence(t *testing.T) {
	cfg, err := parseConfig(t)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7788", cfg.Listen)
	assert.Equal(t, "bolt", cfg.Backend)
	assert.False(t, cfg.ServeKV)

	path := filepath.Join(t.TempDir(), "idregd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: 0.0.0.0:9000\nnetwork: filenet\nserve_kv: true\noverwrite_policy: owner-only\n"), 0o644))

	t.Setenv("IDREGD_NETWORK", "envnet")
	cfg, err = parseConfig(t, "-config", path, "-log-level", "debug")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "envnet", cfg.Network)
	assert.Equal(t, "owner-only", cfg.OverwritePolicy)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.ServeKV)

	cfg, err = parseConfig(t, "-config", path, "-network", "flagnet")
	require.NoError(t, err)
	assert.Equal(t, "flagnet", cfg.Network)

	_, err = parseConfig(t, "-config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewService_RejectsBadConfig(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	_, err := newService(config{Contract: "nothex"}, memory.New(), log)
	assert.Error(t, err)
	_, err = newService(config{OverwritePolicy: "whoever"}, memory.New(), log)
	assert.Error(t, err)

	svc, err := newService(config{Network: "n", OverwritePolicy: "owner-only"}, memory.New(), log)
	require.NoError(t, err)
	assert.Equal(t, registry.OverwriteOwnerOnly, svc.Policy())
}

func TestRun_ListBackends(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"-list-backends"}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	for _, name := range []string{"bolt", "localfs", "memory", "sqlite"} {
		assert.Contains(t, out.String(), name)
	}
	assert.NotContains(t, out.String(), "grpc\t")
}

func TestRun_BadFlags(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"-nope"}, &out, &errOut))
	assert.Equal(t, 2, run(context.Background(), []string{"-backend", "memory", "-log-format", "xml"}, &out, &errOut))
	assert.Equal(t, 2, run(context.Background(), []string{"-backend", "bolt"}, &out, &errOut))
	assert.True(t, strings.Contains(errOut.String(), "bolt-path"))
}

func TestServe_RegistryAndKV(t *testing.T) {
	store := memory.New()
	log, _ := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	cfg := config{Network: "daemon-test", OverwritePolicy: "any"}
	svc, err := newService(cfg, store, log)
	require.NoError(t, err)

	lis := bufconn.Listen(1024 * 1024)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, lis, svc, store, true, log) }()

	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	reg := grpcreg.NewClient(cc)
	kv := grpckv.NewClient(cc)

	seed := bytes.Repeat([]byte{7}, keys.SeedSize)
	s, err := keys.NewSigner(model.SchemeEd25519, seed)
	require.NoError(t, err)
	var key model.IdenKey
	sig, err := keys.SignCall(s, svc.Domain(), registry.FnWriteIden, registry.WriteIdenArgs(s.Identifier(), 0, key)...)
	require.NoError(t, err)

	rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer rcancel()
	require.NoError(t, reg.WriteIden(rctx, grpcreg.WriteIdenParams{Key: key, Name: []byte("tdep"), Sig: sig}))

	rk, err := model.EncodeKey(model.RegisteredKey{ID: key})
	require.NoError(t, err)
	assert.True(t, kv.Has(rk))
	_, err = kv.Get([]byte("absent"))
	assert.True(t, storage.IsNotFound(err))

	require.NoError(t, cc.Close())
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
