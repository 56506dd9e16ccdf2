package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"xdao.co/idreg/auth"
	"xdao.co/idreg/keys"
	"xdao.co/idreg/model"
	"xdao.co/idreg/registry"
	"xdao.co/idreg/registry/grpcreg"
	"xdao.co/idreg/storage/memory"
)

var (
	seedHex = strings.Repeat("01", 32)
	keyHex  = strings.Repeat("00", 32)
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	code, out, errOut := runCLI(t, args...)
	require.Equal(t, 0, code, "args=%v stderr=%s", args, errOut)
	return out
}

func seedSigner(t *testing.T) keys.Signer {
	t.Helper()
	seed, err := hex.DecodeString(seedHex)
	require.NoError(t, err)
	s, err := keys.NewSigner(model.SchemeEd25519, seed)
	require.NoError(t, err)
	return s
}

func TestRun_Usage(t *testing.T) {
	code, _, errOut := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage:")

	code, _, _ = runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)

	code, out, _ := runCLI(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "xdao-idreg write")
}

func TestKeyCommands(t *testing.T) {
	t.Setenv("XDAO_IDREG_KEYS_DIR", t.TempDir())

	out := mustRun(t, "key", "init", "--name", "alice", "--seed-hex", seedHex)
	want := seedSigner(t).Identifier().String()
	assert.Contains(t, out, "Created root key: "+want)

	code, _, errOut := runCLI(t, "key", "init", "--name", "alice", "--seed-hex", seedHex)
	assert.Equal(t, 1, code, "existing key without --force")
	assert.NotEmpty(t, errOut)

	mustRun(t, "key", "derive", "--from", "alice", "--role", "ops")
	out = mustRun(t, "key", "list")
	assert.Contains(t, out, "alice\t"+want)
	assert.Contains(t, out, "  - ops")

	assert.Equal(t, want+"\n", mustRun(t, "key", "show", "--name", "alice"))
	roleOut := mustRun(t, "key", "show", "--name", "alice", "--role", "ops")
	assert.NotEqual(t, want+"\n", roleOut)

	out = mustRun(t, "key", "init", "--name", "bob", "--scheme", "schnorr")
	assert.Contains(t, out, "Created root key: schnorr:")

	code, _, _ = runCLI(t, "key", "init", "--name", "carol", "--scheme", "rsa")
	assert.Equal(t, 2, code)
}

func TestLocalRegistryFlow(t *testing.T) {
	t.Setenv("XDAO_IDREG_KEYS_DIR", t.TempDir())
	db := filepath.Join(t.TempDir(), "idreg.db")
	local := []string{"--backend", "sqlite", "--sqlite-path", db, "--network", "cli-test"}
	with := func(args ...string) []string { return append(args, local...) }

	assert.Equal(t, "0\n", mustRun(t, with("nonce", "--seed-hex", seedHex)...))

	code, _, errOut := runCLI(t, with("get", "--key", keyHex)...)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "IDREG-IDEN-001")

	mustRun(t, with("write", "--key", keyHex,
		"--name", "tdep",
		"--descr", "A developer that build stuff",
		"--link", "personal blog=https://heytdep.github.io/",
		"--seed-hex", seedHex)...)
	assert.Equal(t, "1\n", mustRun(t, with("nonce", "--seed-hex", seedHex)...))

	var view identityView
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, with("get", "--key", keyHex)...)), &view))
	assert.Equal(t, "tdep", view.Name)
	assert.Equal(t, "A developer that build stuff", view.Description)
	assert.Equal(t, []linkView{{Description: "personal blog", URL: "https://heytdep.github.io/"}}, view.Links)
	assert.Equal(t, seedSigner(t).Identifier().String(), view.Owner)

	code, _, errOut = runCLI(t, with("write", "--key", keyHex, "--name", "again", "--nonce", "0", "--seed-hex", seedHex)...)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "IDREG-AUTH-201")

	code, _, errOut = runCLI(t, with("get-admin")...)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "IDREG-ADMIN-002")
	mustRun(t, with("set-admin", "--seed-hex", seedHex)...)
	assert.Equal(t, seedSigner(t).Identifier().String()+"\n", mustRun(t, with("get-admin")...))
	code, _, errOut = runCLI(t, with("set-admin", "--seed-hex", seedHex)...)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "AlreadyInitialized")
}

func TestOwnerOnlyLocal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "idreg.bolt")
	local := []string{"--backend", "bolt", "--bolt-path", db, "--overwrite-policy", "owner-only"}
	mustRun(t, append([]string{"write", "--key", keyHex, "--name", "a", "--seed-hex", seedHex}, local...)...)
	code, _, errOut := runCLI(t, append([]string{"write", "--key", keyHex, "--name", "b", "--seed-hex", strings.Repeat("02", 32)}, local...)...)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "IDREG-IDEN-002")
}

func TestPayload(t *testing.T) {
	s := seedSigner(t)
	contract := strings.Repeat("ab", 32)
	out := mustRun(t, "payload", "--key", keyHex, "--nonce", "3", "--identifier", s.Identifier().String(), "--network", "n", "--contract", contract)

	d, err := auth.ParseDomain("n", contract)
	require.NoError(t, err)
	var key model.IdenKey
	msg, err := registry.WriteIdenMessage(d, s.Identifier(), 3, key)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(msg)+"\n", out)

	code, _, _ := runCLI(t, "payload", "--key", keyHex)
	assert.Equal(t, 2, code)
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	src := []string{"--backend", "sqlite", "--sqlite-path", filepath.Join(dir, "src.db")}
	dst := []string{"--backend", "bolt", "--bolt-path", filepath.Join(dir, "dst.bolt")}
	bundlePath := filepath.Join(dir, "idreg.tar")

	mustRun(t, append([]string{"write", "--key", keyHex, "--name", "tdep", "--seed-hex", seedHex}, src...)...)
	mustRun(t, append([]string{"export", "--out", bundlePath, "--label", "tdep=" + keyHex}, src...)...)
	out := mustRun(t, append([]string{"import", "--in", bundlePath}, dst...)...)
	assert.Equal(t, "Imported 2 entries\n", out)

	var view identityView
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, append([]string{"get", "--key", keyHex}, dst...)...)), &view))
	assert.Equal(t, "tdep", view.Name)
	assert.Equal(t, "1\n", mustRun(t, append([]string{"nonce", "--seed-hex", seedHex}, dst...)...))

	only := filepath.Join(dir, "only.tar")
	mustRun(t, append([]string{"export", "--out", only, "--key", keyHex}, src...)...)
	out = mustRun(t, append([]string{"import", "--in", only}, "--backend", "memory")...)
	assert.Equal(t, "Imported 1 entries\n", out)

	code, _, _ := runCLI(t, "export", "--out", filepath.Join(dir, "x.tar"))
	assert.Equal(t, 1, code)
}

func TestRemoteRegistry(t *testing.T) {
	svc, err := registry.New(memory.New(), registry.Options{Domain: auth.Domain{Network: "remote-test"}})
	require.NoError(t, err)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	grpcreg.RegisterRegistryServer(srv, &grpcreg.Server{Service: svc})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	t.Setenv("XDAO_IDREG_TARGET", lis.Addr().String())
	t.Setenv("XDAO_IDREG_NETWORK", "remote-test")

	mustRun(t, "write", "--key", keyHex, "--name", "tdep", "--seed-hex", seedHex)
	assert.Equal(t, "1\n", mustRun(t, "nonce", "--seed-hex", seedHex))

	iden, err := svc.GetIden(model.IdenKey{})
	require.NoError(t, err)
	assert.Equal(t, "tdep", string(iden.Name))

	code, _, errOut := runCLI(t, "write", "--key", keyHex, "--name", "x", "--seed-hex", seedHex, "--network", "other")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "IDREG-AUTH-101")
}
