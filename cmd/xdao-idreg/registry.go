package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"xdao.co/idreg/auth"
	"xdao.co/idreg/keys"
	"xdao.co/idreg/model"
	"xdao.co/idreg/registry"
	"xdao.co/idreg/registry/grpcreg"
	"xdao.co/idreg/storage"
	"xdao.co/idreg/storage/backend"
	"xdao.co/idreg/storage/storeconfig"
)

// registryAPI is the registry surface the CLI drives, remote or in-process.
type registryAPI interface {
	SetAdmin(ctx context.Context, admin model.Identifier) error
	GetAdmin(ctx context.Context) (model.Identifier, error)
	GetIden(ctx context.Context, key model.IdenKey) (model.Identity, error)
	WriteIden(ctx context.Context, p grpcreg.WriteIdenParams) error
	Nonce(ctx context.Context, signer model.Identifier) (uint64, error)
}

var _ registryAPI = (*grpcreg.Client)(nil)

// localRegistry runs a registry.Service against a store opened by this process.
type localRegistry struct {
	svc *registry.Service
}

func (l localRegistry) SetAdmin(_ context.Context, admin model.Identifier) error {
	return l.svc.SetAdmin(admin)
}

func (l localRegistry) GetAdmin(context.Context) (model.Identifier, error) { return l.svc.GetAdmin() }

func (l localRegistry) GetIden(_ context.Context, key model.IdenKey) (model.Identity, error) {
	return l.svc.GetIden(key)
}

func (l localRegistry) WriteIden(_ context.Context, p grpcreg.WriteIdenParams) error {
	return l.svc.WriteIden(p.Key, p.Name, p.Descr, p.Links, p.Sig, p.Nonce)
}

func (l localRegistry) Nonce(_ context.Context, signer model.Identifier) (uint64, error) {
	return l.svc.Nonce(signer)
}

// storeFlags selects a local store by backend name or storage config file.
type storeFlags struct {
	backend      string
	storeConfig  string
	listBackends bool
}

func (f *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.backend, "backend", "", "Local storage backend name")
	fs.StringVar(&f.storeConfig, "store-config", "", "Local storage config file (YAML or JSON)")
	fs.BoolVar(&f.listBackends, "list-backends", false, "List supported backends and exit")
	backend.RegisterFlags(fs, backend.UsageCLI)
}

func (f *storeFlags) local() bool { return f.backend != "" || f.storeConfig != "" }

func (f *storeFlags) open() (storage.Store, func() error, error) {
	if f.storeConfig != "" {
		sc, err := storeconfig.LoadFile(f.storeConfig)
		if err != nil {
			return nil, nil, err
		}
		return sc.Open(backend.UsageCLI, f.backend)
	}
	if f.backend == "" {
		return nil, nil, errors.New("missing --backend or --store-config")
	}
	return backend.Open(f.backend, backend.UsageCLI)
}

func printBackends(w io.Writer) {
	_ = backend.Describe(w, backend.UsageCLI)
}

// registryFlags picks a remote registry (--target) or a local store.
type registryFlags struct {
	store    storeFlags
	target   string
	network  string
	contract string
	policy   string
}

func (f *registryFlags) register(fs *flag.FlagSet, cfg envConfig) {
	f.store.register(fs)
	fs.StringVar(&f.target, "target", cfg.Target, "Remote registry address")
	fs.StringVar(&f.network, "network", cfg.Network, "Network passphrase of the signing domain")
	fs.StringVar(&f.contract, "contract", cfg.Contract, "Registry instance id (64 hex chars)")
	fs.StringVar(&f.policy, "overwrite-policy", "any", "Overwrite policy for local stores: any|owner-only")
}

func (f *registryFlags) domain() (auth.Domain, error) {
	return auth.ParseDomain(f.network, f.contract)
}

func (f *registryFlags) open(cfg envConfig) (registryAPI, func() error, error) {
	if !f.store.local() {
		c, err := grpcreg.Dial(f.target, grpcreg.DialOptions{Timeout: cfg.Timeout})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
	d, err := f.domain()
	if err != nil {
		return nil, nil, err
	}
	policy, err := registry.ParseOverwritePolicy(f.policy)
	if err != nil {
		return nil, nil, err
	}
	store, closeFn, err := f.store.open()
	if err != nil {
		return nil, nil, err
	}
	svc, err := registry.New(store, registry.Options{Domain: d, Policy: policy})
	if err != nil {
		if closeFn != nil {
			_ = closeFn()
		}
		return nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return localRegistry{svc: svc}, closeFn, nil
}

// withRegistry opens the registry selected by f and runs fn under the configured timeout.
func withRegistry(cfg envConfig, f *registryFlags, out, errOut io.Writer, fn func(ctx context.Context, reg registryAPI) error) int {
	if f.store.listBackends {
		printBackends(out)
		return 0
	}
	reg, closeFn, err := f.open(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "open registry: %v\n", err)
		return 1
	}
	defer func() { _ = closeFn() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := fn(ctx, reg); err != nil {
		reportError(errOut, err)
		return 1
	}
	return 0
}

func reportError(w io.Writer, err error) {
	if rule := model.RuleID(err); rule != "" {
		fmt.Fprintf(w, "%s [%s]: %v\n", model.KindOf(err), rule, err)
		return
	}
	fmt.Fprintln(w, err)
}

func cmdNonce(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("nonce", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var rf registryFlags
	var sf signerFlags
	var identifier string
	rf.register(fs, cfg)
	sf.register(fs)
	fs.StringVar(&identifier, "identifier", "", "Signer identifier <scheme>:<hex pubkey>")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if identifier == "" && !sf.set() {
		fmt.Fprintln(errOut, "missing --identifier or signer flags")
		return 2
	}
	id, err := sf.identity(cfg, identifier)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 2
	}
	return withRegistry(cfg, &rf, out, errOut, func(ctx context.Context, reg registryAPI) error {
		n, err := reg.Nonce(ctx, id)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, n)
		return nil
	})
}

type linkView struct {
	Description string `json:"description"`
	URL         string `json:"url"`
}

type identityView struct {
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Links       []linkView `json:"links"`
	Owner       string     `json:"owner"`
}

func viewOf(key model.IdenKey, iden model.Identity) identityView {
	v := identityView{
		Key:         key.String(),
		Name:        string(iden.Name),
		Description: string(iden.Descr),
		Links:       []linkView{},
		Owner:       iden.Owner.String(),
	}
	for _, l := range iden.Links {
		v.Links = append(v.Links, linkView{Description: string(l.Descr), URL: string(l.URL)})
	}
	return v
}

func cmdGet(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var rf registryFlags
	var keyHex string
	rf.register(fs, cfg)
	fs.StringVar(&keyHex, "key", "", "Identifier to look up (64 hex chars)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	key, err := model.ParseIdenKey(keyHex)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --key: %v\n", err)
		return 2
	}
	return withRegistry(cfg, &rf, out, errOut, func(ctx context.Context, reg registryAPI) error {
		iden, err := reg.GetIden(ctx, key)
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(viewOf(key, iden), "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(b))
		return nil
	})
}

func parseLinks(items []string) ([]model.Link, error) {
	var links []model.Link
	for _, it := range items {
		descr, url, ok := strings.Cut(it, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --link %q (want <descr>=<url>)", it)
		}
		links = append(links, model.Link{Descr: []byte(descr), URL: []byte(url)})
	}
	return links, nil
}

func cmdWrite(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("write", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var rf registryFlags
	var sf signerFlags
	var keyHex, name, descr string
	var nonce int64
	var linkItems stringList
	rf.register(fs, cfg)
	sf.register(fs)
	fs.StringVar(&keyHex, "key", "", "Identifier to register under (64 hex chars)")
	fs.StringVar(&name, "name", "", "Display name")
	fs.StringVar(&descr, "descr", "", "Description")
	fs.Var(&linkItems, "link", "Link as <descr>=<url> (repeatable)")
	fs.Int64Var(&nonce, "nonce", -1, "Signer nonce (default: fetch the current one)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	key, err := model.ParseIdenKey(keyHex)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --key: %v\n", err)
		return 2
	}
	links, err := parseLinks(linkItems)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if !sf.set() {
		fmt.Fprintln(errOut, "missing signer flags")
		return 2
	}
	signer, err := sf.resolve(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 2
	}
	d, err := rf.domain()
	if err != nil {
		fmt.Fprintf(errOut, "domain: %v\n", err)
		return 2
	}

	return withRegistry(cfg, &rf, out, errOut, func(ctx context.Context, reg registryAPI) error {
		n := uint64(nonce)
		if nonce < 0 {
			cur, err := reg.Nonce(ctx, signer.Identifier())
			if err != nil {
				return err
			}
			n = cur
		}
		sig, err := keys.SignCall(signer, d, registry.FnWriteIden, registry.WriteIdenArgs(signer.Identifier(), n, key)...)
		if err != nil {
			return err
		}
		if err := reg.WriteIden(ctx, grpcreg.WriteIdenParams{
			Key:   key,
			Name:  []byte(name),
			Descr: []byte(descr),
			Links: links,
			Sig:   sig,
			Nonce: n,
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s as %s (nonce %d)\n", key, signer.Identifier(), n)
		return nil
	})
}

func cmdSetAdmin(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("set-admin", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var rf registryFlags
	var sf signerFlags
	var identifier string
	rf.register(fs, cfg)
	sf.register(fs)
	fs.StringVar(&identifier, "identifier", "", "Admin identifier <scheme>:<hex pubkey>")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if identifier == "" && !sf.set() {
		fmt.Fprintln(errOut, "missing --identifier or signer flags")
		return 2
	}
	admin, err := sf.identity(cfg, identifier)
	if err != nil {
		fmt.Fprintf(errOut, "admin: %v\n", err)
		return 2
	}
	return withRegistry(cfg, &rf, out, errOut, func(ctx context.Context, reg registryAPI) error {
		if err := reg.SetAdmin(ctx, admin); err != nil {
			return err
		}
		fmt.Fprintf(out, "Admin set: %s\n", admin)
		return nil
	})
}

func cmdGetAdmin(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("get-admin", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var rf registryFlags
	rf.register(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return withRegistry(cfg, &rf, out, errOut, func(ctx context.Context, reg registryAPI) error {
		admin, err := reg.GetAdmin(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, admin)
		return nil
	})
}

func cmdPayload(cfg envConfig, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("payload", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sf signerFlags
	var identifier, keyHex, network, contract string
	var nonce uint64
	sf.register(fs)
	fs.StringVar(&identifier, "identifier", "", "Signer identifier <scheme>:<hex pubkey>")
	fs.StringVar(&keyHex, "key", "", "Identifier to register under (64 hex chars)")
	fs.Uint64Var(&nonce, "nonce", 0, "Signer nonce")
	fs.StringVar(&network, "network", cfg.Network, "Network passphrase of the signing domain")
	fs.StringVar(&contract, "contract", cfg.Contract, "Registry instance id (64 hex chars)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	key, err := model.ParseIdenKey(keyHex)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --key: %v\n", err)
		return 2
	}
	if identifier == "" && !sf.set() {
		fmt.Fprintln(errOut, "missing --identifier or signer flags")
		return 2
	}
	id, err := sf.identity(cfg, identifier)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 2
	}
	d, err := auth.ParseDomain(network, contract)
	if err != nil {
		fmt.Fprintf(errOut, "domain: %v\n", err)
		return 2
	}
	msg, err := registry.WriteIdenMessage(d, id, nonce, key)
	if err != nil {
		reportError(errOut, err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "%x\n", msg)
	return 0
}
